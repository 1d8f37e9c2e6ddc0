package cli

import (
	"fmt"
	"slices"
	"strings"

	"github.com/morikuni/failure/v2"
	"github.com/spf13/pflag"
)

// facetFlag collects repeated --filter key=value pairs into appliedFacets.
// Values for the same key accumulate: --filter locations=a --filter locations=b
type facetFlag map[string][]string

// String implements pflag.Value.
func (f facetFlag) String() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, strings.Join(f[k], ",")))
	}
	return strings.Join(parts, " ")
}

func (f facetFlag) Set(value string) error {
	key, v, ok := strings.Cut(value, "=")
	key, v = strings.TrimSpace(key), strings.TrimSpace(v)
	if !ok || key == "" || v == "" {
		return failure.New(InvalidFilter,
			failure.Message("Filter must look like key=value"),
			failure.Context{"filter": value},
		)
	}
	f[key] = append(f[key], v)
	return nil
}

func (f facetFlag) Type() string {
	return "key=value"
}

// merge adds the collected facets to filters, creating it when nil
func (f facetFlag) merge(filters map[string]any) map[string]any {
	if len(f) == 0 {
		return filters
	}
	if filters == nil {
		filters = map[string]any{}
	}
	for k, v := range f {
		filters[k] = slices.Clone(v)
	}
	return filters
}

var _ pflag.Value = facetFlag{}
