package catalog

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/OpenTTD/bananas-server/content"
)

// rawRecord is the merged global.yaml + versions/*.yaml map, kept generic
// because YAML keys may come from either file and the set of keys a given
// version record carries varies entry to entry (spec.md §4.3 step 2).
type rawRecord map[string]any

func loadYAMLFile(path string) (rawRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m rawRecord
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if m == nil {
		m = rawRecord{}
	}
	return m, nil
}

// mergeMissing copies keys present in global but absent in version into
// version, in place (spec.md §4.3 step 2: "merge in missing keys from
// global.yaml").
func mergeMissing(version, global rawRecord) {
	for k, v := range global {
		if _, ok := version[k]; !ok {
			version[k] = v
		}
	}
}

func (r rawRecord) bool(key string) bool {
	v, ok := r[key]
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

func (r rawRecord) string(key string) (string, bool) {
	v, ok := r[key]
	if !ok {
		return "", false
	}
	switch s := v.(type) {
	case string:
		return s, true
	default:
		return fmt.Sprint(s), true
	}
}

func (r rawRecord) requireString(key string) (string, error) {
	s, ok := r.string(key)
	if !ok {
		return "", fmt.Errorf("missing required field %q", key)
	}
	return s, nil
}

func (r rawRecord) uint32(key string) (uint32, error) {
	v, ok := r[key]
	if !ok {
		return 0, fmt.Errorf("missing required field %q", key)
	}
	switch n := v.(type) {
	case int:
		return uint32(n), nil
	case int64:
		return uint32(n), nil
	case uint64:
		return uint32(n), nil
	case string:
		i, err := strconv.ParseUint(n, 10, 32)
		if err != nil {
			return 0, fmt.Errorf("field %q: %w", key, err)
		}
		return uint32(i), nil
	default:
		return 0, fmt.Errorf("field %q: unexpected type %T", key, v)
	}
}

func (r rawRecord) uploadDate() (time.Time, error) {
	v, ok := r["upload-date"]
	if !ok {
		return time.Time{}, fmt.Errorf("missing required field \"upload-date\"")
	}
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, nil
			}
		}
		return time.Time{}, fmt.Errorf("upload-date %q is not a recognized timestamp", t)
	default:
		return time.Time{}, fmt.Errorf("upload-date: unexpected type %T", v)
	}
}

func (r rawRecord) stringSlice(key string) []string {
	v, ok := r[key]
	if !ok {
		return nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		out = append(out, fmt.Sprint(item))
	}
	return out
}

func hexBytes(s string, n int) ([]byte, error) {
	s = strings.TrimSpace(s)
	b := make([]byte, n)
	if len(s) != n*2 {
		return nil, fmt.Errorf("expected %d hex chars, got %d", n*2, len(s))
	}
	for i := 0; i < n; i++ {
		hi, err := hexDigit(s[i*2])
		if err != nil {
			return nil, err
		}
		lo, err := hexDigit(s[i*2+1])
		if err != nil {
			return nil, err
		}
		b[i] = hi<<4 | lo
	}
	return b, nil
}

func hexDigit(c byte) (byte, error) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', nil
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, nil
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, nil
	default:
		return 0, fmt.Errorf("invalid hex digit %q", c)
	}
}

// parseCompatibility implements spec.md §4.3 step 4: each "conditions"
// clause beginning with ">=" sets Min, "<" sets Max, anything else is an
// error for the owning entry.
func parseCompatibility(r rawRecord) (map[string]content.VersionRange, error) {
	v, ok := r["compatibility"]
	if !ok {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("compatibility: expected a list")
	}

	out := make(map[string]content.VersionRange, len(list))
	for _, item := range list {
		clause, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("compatibility: expected a mapping entry")
		}
		name, ok := clause["name"].(string)
		if !ok {
			return nil, fmt.Errorf("compatibility: entry missing \"name\"")
		}
		condsRaw, _ := clause["conditions"].([]any)

		var vr content.VersionRange
		for _, c := range condsRaw {
			cond := fmt.Sprint(c)
			switch {
			case strings.HasPrefix(cond, ">="):
				ver, err := parseDottedVersion(cond[2:])
				if err != nil {
					return nil, fmt.Errorf("compatibility %q: %w", name, err)
				}
				vr.Min = ver
			case strings.HasPrefix(cond, "<"):
				ver, err := parseDottedVersion(cond[1:])
				if err != nil {
					return nil, fmt.Errorf("compatibility %q: %w", name, err)
				}
				vr.Max = ver
			default:
				return nil, fmt.Errorf("compatibility %q: invalid condition %q", name, cond)
			}
		}
		out[name] = vr
	}
	return out, nil
}

func parseDottedVersion(s string) ([]int, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	out := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid version component %q", p)
		}
		out[i] = n
	}
	return out, nil
}

// classification extracts tagclassifications, validating that every value is
// either a string or a bool (spec.md §3 "classification map").
func classification(r rawRecord) (map[string]any, error) {
	v, ok := r["tagclassifications"]
	if !ok {
		return nil, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("tagclassifications: expected a mapping")
	}
	out := make(map[string]any, len(m))
	for k, val := range m {
		switch val.(type) {
		case string, bool:
			out[k] = val
		default:
			return nil, fmt.Errorf("tagclassifications[%q]: invalid value type %T", k, val)
		}
	}
	return out, nil
}
