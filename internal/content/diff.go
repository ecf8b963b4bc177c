package content

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/sitewand/sitewand-backend/internal/domain"
)

// Summarize compares two documents section by section and field by
// field, producing an ordered list of human-readable change
// descriptions. The output is deterministic: the same pair of documents
// always yields the same list, and identical documents yield an empty
// one.
func Summarize(before, after domain.Document) []string {
	var out []string

	beforeByID := make(map[string]int, len(before.Sections))
	for i, s := range before.Sections {
		beforeByID[s.ID] = i
	}
	afterByID := make(map[string]int, len(after.Sections))
	for i, s := range after.Sections {
		afterByID[s.ID] = i
	}

	// Additions, in after order.
	for _, s := range after.Sections {
		if _, ok := beforeByID[s.ID]; !ok {
			out = append(out, fmt.Sprintf("Added a new %q section", s.ComponentType))
		}
	}

	// Removals, in before order.
	for _, s := range before.Sections {
		if _, ok := afterByID[s.ID]; !ok {
			out = append(out, fmt.Sprintf("Removed the %q section", s.ComponentType))
		}
	}

	// Moves and field changes, in after order.
	for afterIdx, s := range after.Sections {
		beforeIdx, ok := beforeByID[s.ID]
		if !ok {
			continue
		}
		if beforeIdx != afterIdx {
			out = append(out, fmt.Sprintf("Moved the %q section from position %d to position %d",
				s.ComponentType, beforeIdx, afterIdx))
		}
		out = append(out, diffProps(s.ComponentType, before.Sections[beforeIdx].Props, s.Props)...)
	}

	return out
}

func diffProps(componentType string, before, after map[string]interface{}) []string {
	var out []string

	keys := make(map[string]struct{}, len(before)+len(after))
	for k := range before {
		keys[k] = struct{}{}
	}
	for k := range after {
		keys[k] = struct{}{}
	}
	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	for _, key := range sorted {
		oldVal, hadOld := before[key]
		newVal, hasNew := after[key]

		switch {
		case !hadOld:
			out = append(out, fmt.Sprintf("Set %s in the %q section to %s",
				key, componentType, formatValue(newVal)))
		case !hasNew:
			out = append(out, fmt.Sprintf("Removed %s from the %q section", key, componentType))
		case valueEqual(oldVal, newVal):
			// unchanged
		default:
			oldArr, oldIsArr := oldVal.([]interface{})
			newArr, newIsArr := newVal.([]interface{})
			if oldIsArr && newIsArr {
				out = append(out, summarizeArrayChange(key, componentType, oldArr, newArr))
			} else {
				out = append(out, fmt.Sprintf("Changed %s in the %q section from %s to %s",
					key, componentType, formatValue(oldVal), formatValue(newVal)))
			}
		}
	}

	return out
}

// summarizeArrayChange reports element counts rather than enumerating
// every element of a list field.
func summarizeArrayChange(key, componentType string, before, after []interface{}) string {
	added, removed := 0, 0
	if len(after) > len(before) {
		added = len(after) - len(before)
	} else {
		removed = len(before) - len(after)
	}

	changed := 0
	min := len(before)
	if len(after) < min {
		min = len(after)
	}
	for i := 0; i < min; i++ {
		if !valueEqual(before[i], after[i]) {
			changed++
		}
	}

	var parts []string
	if added > 0 {
		parts = append(parts, fmt.Sprintf("%d added", added))
	}
	if removed > 0 {
		parts = append(parts, fmt.Sprintf("%d removed", removed))
	}
	if changed > 0 {
		parts = append(parts, fmt.Sprintf("%d changed", changed))
	}
	if len(parts) == 0 {
		// Same length, elements compare unequal at container level only.
		parts = append(parts, "reordered")
	}

	return fmt.Sprintf("Updated the %s list in the %q section (%s)",
		key, componentType, strings.Join(parts, ", "))
}

// valueEqual compares two JSON-shaped values, normalizing numeric types
// so documents decoded from JSON compare equal to ones built in code.
func valueEqual(a, b interface{}) bool {
	return reflect.DeepEqual(normalize(a), normalize(b))
}

func normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case int:
		return float64(t)
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case float32:
		return float64(t)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, e := range t {
			out[k] = normalize(e)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = normalize(e)
		}
		return out
	default:
		return v
	}
}

const maxValueDisplay = 80

// formatValue renders a value for a change description, truncating long
// strings and collapsing objects to compact JSON.
func formatValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return "(empty)"
	case string:
		return fmt.Sprintf("%q", truncate(t, maxValueDisplay))
	case bool, float64, float32, int, int32, int64:
		return fmt.Sprintf("%v", t)
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return truncate(string(data), maxValueDisplay)
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
