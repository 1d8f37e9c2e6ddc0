package config

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Duration accepts either bare seconds ("1.5") or a Go duration ("1500ms").
// It implements pflag.Value and yaml.Unmarshaler.
type Duration time.Duration

// ParseDuration parses bare seconds or a Go duration string
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		if secs < 0 {
			return 0, fmt.Errorf("negative duration %q", s)
		}
		return time.Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: use seconds (1.5) or a unit (1500ms)", s)
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %q", s)
	}
	return d, nil
}

func (d Duration) D() time.Duration { return time.Duration(d) }

func (d *Duration) String() string { return time.Duration(*d).String() }

func (d *Duration) Set(s string) error {
	v, err := ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d *Duration) Type() string { return "duration" }

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", node.Line)
	}
	return d.Set(node.Value)
}

var durationType = reflect.TypeOf(Duration(0))

// durationHook lets mapstructure decode strings and numbers into Duration
func durationHook(from, to reflect.Type, data any) (any, error) {
	if to != durationType {
		return data, nil
	}
	switch from.Kind() {
	case reflect.String:
		v, err := ParseDuration(data.(string))
		return Duration(v), err
	case reflect.Float32, reflect.Float64, reflect.Int, reflect.Int64:
		var s string
		if err := mapstructure.WeakDecode(data, &s); err != nil {
			return nil, err
		}
		v, err := ParseDuration(s)
		return Duration(v), err
	}
	return data, nil
}
