package log

import (
	"bytes"
	"strings"
	"testing"
)

func TestSetVerbose(t *testing.T) {
	t.Setenv("JOBHARVEST_DEBUG", "")
	var buf bytes.Buffer
	initLogger(&buf)
	t.Cleanup(InitLogger)

	Debug("hidden", "k", "v")
	if strings.Contains(buf.String(), "hidden") {
		t.Fatalf("debug message written at info level: %q", buf.String())
	}

	SetVerbose(true)
	Debug("shown", "k", "v")
	if !strings.Contains(buf.String(), "msg=shown") {
		t.Errorf("debug message missing after SetVerbose(true): %q", buf.String())
	}

	SetVerbose(false)
	buf.Reset()
	Debug("hidden again")
	Info("info", "page", 2)
	got := buf.String()
	if strings.Contains(got, "hidden again") {
		t.Errorf("debug message written after SetVerbose(false): %q", got)
	}
	if !strings.Contains(got, "page=2") {
		t.Errorf("info attributes missing: %q", got)
	}
}
