// Package configutil validates and decodes the free-form settings maps of
// vendor and notification blocks.
package configutil

import (
	"sort"
	"strings"
)

// Schema lists the keys a settings block accepts.
type Schema struct {
	Required     []string
	Optional     []string
	AllowUnknown bool
}

// SettingsError reports every problem found in one settings block.
type SettingsError struct {
	Path    string
	Missing []string
	Unknown []string
}

func (e *SettingsError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Unknown) > 0 {
		parts = append(parts, "unknown: "+strings.Join(e.Unknown, ", "))
	}
	msg := strings.Join(parts, "; ")
	if e.Path != "" {
		return e.Path + ": " + msg
	}
	return msg
}

// Validate checks input against schema. Keys match regardless of case,
// underscores and hyphens; required keys must hold a non-blank value.
func Validate(path string, input map[string]any, schema Schema) error {
	required := make(map[string]string, len(schema.Required))
	for _, k := range schema.Required {
		required[normalizeKey(k)] = k
	}
	allowed := make(map[string]struct{}, len(schema.Required)+len(schema.Optional))
	for _, k := range schema.Required {
		allowed[normalizeKey(k)] = struct{}{}
	}
	for _, k := range schema.Optional {
		allowed[normalizeKey(k)] = struct{}{}
	}

	serr := &SettingsError{Path: path}
	present := make(map[string]bool, len(input))
	for k, v := range input {
		nk := normalizeKey(k)
		if _, ok := allowed[nk]; !ok && !schema.AllowUnknown {
			serr.Unknown = append(serr.Unknown, k)
			continue
		}
		if isBlank(v) {
			continue
		}
		present[nk] = true
	}
	for nk, key := range required {
		if !present[nk] {
			serr.Missing = append(serr.Missing, key)
		}
	}
	if len(serr.Missing) == 0 && len(serr.Unknown) == 0 {
		return nil
	}
	sort.Strings(serr.Missing)
	sort.Strings(serr.Unknown)
	return serr
}

func isBlank(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	default:
		return false
	}
}

func normalizeKey(value string) string {
	value = strings.ToLower(value)
	value = strings.ReplaceAll(value, "_", "")
	value = strings.ReplaceAll(value, "-", "")
	return value
}
