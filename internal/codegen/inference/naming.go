package inference

import (
	"strings"

	"github.com/go-openapi/inflect"
)

// FieldName converts a column name such as user_name into userName.
func FieldName(column string) string {
	return inflect.CamelizeDownFirst(normalizeIdentifier(column))
}

// ClassName converts a table name into an exported type name.
// When autoRemovePrefix is set the first matching prefix is stripped first.
func ClassName(table string, prefixes []string, autoRemovePrefix bool) string {
	name := normalizeIdentifier(table)
	if autoRemovePrefix {
		name = RemovePrefix(name, prefixes)
	}
	return inflect.Camelize(name)
}

// RemovePrefix strips the first prefix of prefixes that table starts with.
func RemovePrefix(table string, prefixes []string) string {
	for _, prefix := range prefixes {
		prefix = strings.TrimSpace(prefix)
		if prefix != "" && strings.HasPrefix(table, prefix) && len(table) > len(prefix) {
			return table[len(prefix):]
		}
	}
	return table
}

// BusinessName is the last underscore segment of a table name, as used in routes.
func BusinessName(table string) string {
	name := normalizeIdentifier(table)
	if idx := strings.LastIndex(name, "_"); idx >= 0 && idx < len(name)-1 {
		return name[idx+1:]
	}
	return name
}

// FunctionName derives a human readable feature name from a table comment, falling back to the table name.
func FunctionName(table, comment string) string {
	comment = strings.TrimSpace(comment)
	if comment != "" {
		return comment
	}
	return inflect.Humanize(normalizeIdentifier(table))
}

// normalizeIdentifier lowercases all-caps identifiers so camel-casing keeps word boundaries.
func normalizeIdentifier(name string) string {
	name = strings.TrimSpace(name)
	if name == strings.ToUpper(name) {
		return strings.ToLower(name)
	}
	return name
}
