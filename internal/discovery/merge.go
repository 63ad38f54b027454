package discovery

import (
	"log"
	"reflect"
	"sort"
	"strings"
)

// fieldAlias maps an extraction key onto a schema field.
type fieldAlias struct {
	side  StateSide
	field string
	wrap  func(any) any
}

// Extraction output uses a few names that differ from the schema.
var fieldAliases = map[CategoryID]map[string]fieldAlias{
	CurrentProblems: {
		"performance_issues": {side: CurrentSide, field: "reliability_issues"},
		"operational_issues": {side: CurrentSide, field: "operational_risks"},
	},
	ImplementationContext: {
		"current_technology": {side: CurrentSide, field: "technical_constraints"},
		"project_type":       {side: FutureSide, field: "business_constraints", wrap: projectTypeLabel},
	},
}

func projectTypeLabel(v any) any {
	switch x := v.(type) {
	case string:
		if strings.TrimSpace(x) == "" {
			return x
		}
		return []any{"Project Type: " + x}
	case []any:
		out := make([]any, 0, len(x))
		for _, item := range x {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, "Project Type: "+s)
			}
		}
		return out
	default:
		return v
	}
}

// MergeReport lists the fields a merge touched and the ones it skipped,
// as "category.field".
type MergeReport struct {
	Applied []string
	Skipped []string
}

// Changed reports whether any field was updated.
func (r MergeReport) Changed() bool { return len(r.Applied) > 0 }

// Merge folds a loosely typed extraction result into the model. Lists are
// appended to, mappings are merged key by key, text is overwritten by a
// non-blank value. Nothing is ever removed. Unknown categories and fields
// are ignored and a value of the wrong shape skips only that field.
func (d *CollectedBusinessData) Merge(extracted map[string]any) MergeReport {
	var report MergeReport
	for _, id := range CategoryOrder {
		raw, ok := extracted[string(id)]
		if !ok || raw == nil {
			continue
		}
		fields, ok := raw.(map[string]any)
		if !ok {
			log.Printf("[Merge] skipping %s: expected object, got %T", id, raw)
			report.Skipped = append(report.Skipped, string(id))
			continue
		}
		for _, key := range sortedKeys(fields) {
			value := fields[key]
			if key == string(CurrentSide) || key == string(FutureSide) {
				nested, ok := value.(map[string]any)
				if !ok {
					log.Printf("[Merge] skipping %s.%s: expected object, got %T", id, key, value)
					report.Skipped = append(report.Skipped, string(id)+"."+key)
					continue
				}
				for _, sub := range sortedKeys(nested) {
					d.mergeField(id, StateSide(key), sub, nested[sub], &report)
				}
				continue
			}
			d.mergeField(id, "", key, value, &report)
		}
	}
	return report
}

func (d *CollectedBusinessData) mergeField(id CategoryID, side StateSide, key string, value any, report *MergeReport) {
	c := d.categories[id]
	if alias, ok := fieldAliases[id][key]; ok && (side == "" || side == alias.side) {
		side, key = alias.side, alias.field
		if alias.wrap != nil {
			value = alias.wrap(value)
		}
	}

	resolved, spec, ok := c.schema().lookup(side, key)
	if !ok {
		return
	}
	label := string(id) + "." + spec.Name
	state := c.state(resolved)

	switch spec.Kind {
	case KindList:
		items, ok := asList(value)
		if !ok {
			log.Printf("[Merge] skipping %s: expected list, got %T", label, value)
			report.Skipped = append(report.Skipped, label)
			return
		}
		if len(items) == 0 {
			return
		}
		existing, _ := state[spec.Name].([]any)
		merged := existing
		for _, item := range items {
			if !containsValue(merged, item) {
				merged = append(merged, item)
			}
		}
		if len(merged) == len(existing) {
			return
		}
		state[spec.Name] = merged

	case KindMap:
		incoming, ok := value.(map[string]any)
		if !ok {
			if isFilled(value) {
				log.Printf("[Merge] skipping %s: expected object, got %T", label, value)
				report.Skipped = append(report.Skipped, label)
			}
			return
		}
		existing, _ := state[spec.Name].(map[string]any)
		if existing == nil {
			existing = map[string]any{}
		}
		changed := false
		for k, v := range incoming {
			if !isFilled(v) {
				continue
			}
			existing[k] = deepCopy(v)
			changed = true
		}
		if !changed {
			return
		}
		state[spec.Name] = existing

	case KindText:
		s, ok := asText(value)
		if !ok {
			log.Printf("[Merge] skipping %s: expected text, got %T", label, value)
			report.Skipped = append(report.Skipped, label)
			return
		}
		if strings.TrimSpace(s) == "" {
			return
		}
		state[spec.Name] = s
	}

	c.refresh()
	report.Applied = append(report.Applied, label)
}

// containsValue reports whether list already holds a deep-equal item.
func containsValue(list []any, v any) bool {
	for _, x := range list {
		if reflect.DeepEqual(x, v) {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
