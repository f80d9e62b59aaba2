package introspection

import (
	"regexp"
	"strings"
)

// Scalar classification is heuristic: the backend annotates some scalars
// explicitly but names most by convention, including validated-scalar names
// of the form "X_Y" whose suffix carries the base type. A scalar whose
// suffix matches none of these vocabularies is treated as an opaque string.

var dateTimeScalarNames = map[string]struct{}{
	"date":            {},
	"datetime":        {},
	"timestamp":       {},
	"isodate":         {},
	"graphqldate":     {},
	"graphqldatetime": {},
}

var numericScalarNames = map[string]struct{}{
	"int":      {},
	"float":    {},
	"idnumber": {},
}

var dateTimeFieldPattern = regexp.MustCompile(`(?i)date|time|at$`)

// baseScalarName unwraps a compound validated-scalar name ("X_Y") to its
// suffix and lowercases it.
func baseScalarName(name string) string {
	if idx := strings.LastIndex(name, "_"); idx >= 0 && idx < len(name)-1 {
		name = name[idx+1:]
	}
	return strings.ToLower(name)
}

// IsDateTimeScalar reports whether the scalar name denotes a date or time
// value by naming convention.
func IsDateTimeScalar(name string) bool {
	_, ok := dateTimeScalarNames[baseScalarName(name)]
	return ok
}

// IsNumericScalar reports whether the scalar name denotes a numeric value by
// naming convention.
func IsNumericScalar(name string) bool {
	_, ok := numericScalarNames[baseScalarName(name)]
	return ok
}

// IsBooleanScalar reports whether the scalar name denotes a boolean.
func IsBooleanScalar(name string) bool {
	return baseScalarName(name) == "boolean"
}

// LooksLikeDateTimeField is a field-name fallback used only for display
// formatting when the scalar-name heuristic is inconclusive.
func LooksLikeDateTimeField(name string) bool {
	return dateTimeFieldPattern.MatchString(name)
}
