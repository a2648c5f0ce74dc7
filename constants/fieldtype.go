package constants

import (
	"strings"
)

// FieldType is the declared extraction type of a template field.
type FieldType string

const (
	FieldText    FieldType = "text"
	FieldNumber  FieldType = "number"
	FieldDate    FieldType = "date"
	FieldBoolean FieldType = "boolean"
)

var allFieldTypes = []FieldType{
	FieldText,
	FieldNumber,
	FieldDate,
	FieldBoolean,
}

func FieldTypesAsStrings() []string {
	result := make([]string, len(allFieldTypes))
	for i, ft := range allFieldTypes {
		result[i] = string(ft)
	}
	return result
}

// ParseFieldType canonicalizes user-supplied type labels from template
// imports. Unknown labels fall back to text so a sloppy template still
// yields something rather than nothing.
func ParseFieldType(input string) (FieldType, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))

	// synonyms seen in exported template files
	synonyms := map[string]FieldType{
		"string":  FieldText,
		"str":     FieldText,
		"float":   FieldNumber,
		"numeric": FieldNumber,
		"int":     FieldNumber,
		"bool":    FieldBoolean,
		"flag":    FieldBoolean,
	}

	if ft, ok := synonyms[normalized]; ok {
		return ft, true
	}

	for _, ft := range allFieldTypes {
		if normalized == string(ft) {
			return ft, true
		}
	}

	return FieldText, false
}
