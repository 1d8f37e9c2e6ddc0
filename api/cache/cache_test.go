package cache

import (
	"errors"
	"testing"
	"time"
)

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{key: "https://acme.wd1.myworkdayjobs.com/wday/cxs/acme/Ext/jobs?o=0", want: "https_/acme.wd1.myworkdayjobs.com/wday/cxs/acme/Ext/jobs_o_0"},
		{key: "../../etc/passwd", want: "././etc/passwd"},
		{key: "a b:c", want: "a_b_c"},
	}
	for _, tt := range tests {
		if got := normalizeKey(tt.key); got != tt.want {
			t.Errorf("normalizeKey(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestGetOrSet(t *testing.T) {
	c, err := New[[]byte](t.TempDir(), "pages", time.Hour)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	calls := 0
	fetch := func() ([]byte, error) {
		calls++
		return []byte(`{"jobPostings":[]}`), nil
	}

	for i := 0; i < 3; i++ {
		got, err := c.GetOrSet("offset-0", fetch, false)
		if err != nil {
			t.Fatalf("GetOrSet() error = %v", err)
		}
		if string(got) != `{"jobPostings":[]}` {
			t.Errorf("GetOrSet() = %s", got)
		}
	}
	if calls != 1 {
		t.Errorf("fetch called %d times, want 1", calls)
	}

	if _, err := c.GetOrSet("offset-0", fetch, true); err != nil {
		t.Fatalf("GetOrSet(force) error = %v", err)
	}
	if calls != 2 {
		t.Errorf("forceUpdate did not bypass cache: calls = %d", calls)
	}
}

func TestGetOrSetExpiredAndErrors(t *testing.T) {
	c, err := New[string](t.TempDir(), "strings", time.Hour)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	boom := errors.New("boom")
	if _, err := c.GetOrSet("k", func() (string, error) { return "", boom }, false); !errors.Is(err, boom) {
		t.Fatalf("GetOrSet() error = %v, want %v", err, boom)
	}

	// errors are not cached
	got, err := c.GetOrSet("k", func() (string, error) { return "v1", nil }, false)
	if err != nil || got != "v1" {
		t.Fatalf("GetOrSet() = %q, %v", got, err)
	}

	c.SetTTL(0)
	got, err = c.GetOrSet("k", func() (string, error) { return "v2", nil }, false)
	if err != nil || got != "v2" {
		t.Errorf("expired entry not refreshed: got %q, %v", got, err)
	}

	c.SetTTL(time.Hour)
	if err := c.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	got, err = c.GetOrSet("k", func() (string, error) { return "v3", nil }, false)
	if err != nil || got != "v3" {
		t.Errorf("cleared entry served: got %q, %v", got, err)
	}
}
