package selection

import (
	"encoding/json"
	"time"
)

// Layouts tried when parsing date-like values coming back from the backend.
var parseLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func scalarExtractor(field string, isDate bool, layout string) Extractor {
	return func(row map[string]interface{}) interface{} {
		value, ok := row[field]
		if !ok || value == nil {
			return nil
		}
		if isDate {
			return formatDate(value, layout)
		}
		return value
	}
}

// objectExtractor resolves a relation cell: the chosen display field's value,
// falling back to a "name" property, then "id" (unless embedded), then a
// JSON dump of the whole object.
func objectExtractor(field, display string, embedded, displayIsDate bool, layout string) Extractor {
	return func(row map[string]interface{}) interface{} {
		raw, ok := row[field]
		if !ok || raw == nil {
			return nil
		}
		nested, ok := raw.(map[string]interface{})
		if !ok {
			return raw
		}
		if display != "" {
			if value, ok := nested[display]; ok && value != nil {
				if displayIsDate {
					return formatDate(value, layout)
				}
				return value
			}
		}
		if value, ok := nested["name"]; ok && value != nil {
			return value
		}
		if !embedded {
			if value, ok := nested["id"]; ok && value != nil {
				return value
			}
		}
		dumped, err := json.Marshal(nested)
		if err != nil {
			return nil
		}
		return string(dumped)
	}
}

// formatDate reformats a date-like value for display, tolerating unparsable
// input by returning it unchanged.
func formatDate(value interface{}, layout string) interface{} {
	str, ok := value.(string)
	if !ok {
		return value
	}
	for _, parse := range parseLayouts {
		if t, err := time.Parse(parse, str); err == nil {
			return t.Format(layout)
		}
	}
	return value
}
