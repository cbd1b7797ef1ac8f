package inference

import (
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/router-for-me/CodegenAdmin/internal/introspect"
)

// Rule patches the attributes of columns whose name contains one of its patterns.
// Rules are applied in ascending priority; later rules overwrite keys set by earlier ones.
type Rule struct {
	Name     string
	Patterns []string // Case-insensitive substrings of the column name.
	Priority int
	Apply    func(col introspect.Column) Patch
}

// Matches reports whether the rule applies to columnName.
func (r Rule) Matches(columnName string) bool {
	lower := strings.ToLower(columnName)
	for _, pattern := range r.Patterns {
		pattern = strings.ToLower(strings.TrimSpace(pattern))
		if pattern != "" && strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

// Engine infers column configs. The rule chain is safe for concurrent use.
type Engine struct {
	mu    sync.RWMutex
	rules []Rule
}

// NewEngine builds an engine with the default rule chain plus extra rules.
func NewEngine(extra ...Rule) *Engine {
	e := &Engine{rules: append(DefaultRules(), extra...)}
	sortRules(e.rules)
	return e
}

// Register adds a rule and re-sorts the chain. Rules cannot be removed.
func (e *Engine) Register(rule Rule) {
	if rule.Apply == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules = append(e.rules, rule)
	sortRules(e.rules)
}

// Rules returns a copy of the current chain in application order.
func (e *Engine) Rules() []Rule {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Rule, len(e.rules))
	copy(out, e.rules)
	return out
}

// Infer returns one config per column, in input order.
func (e *Engine) Infer(columns []introspect.Column) []Config {
	rules := e.Rules()
	out := make([]Config, 0, len(columns))
	for _, col := range columns {
		out = append(out, inferColumn(rules, col))
	}
	return out
}

// InferColumn returns the config of a single column.
func (e *Engine) InferColumn(col introspect.Column) Config {
	return inferColumn(e.Rules(), col)
}

func sortRules(rules []Rule) {
	sort.SliceStable(rules, func(i, j int) bool { return rules[i].Priority < rules[j].Priority })
}

func inferColumn(rules []Rule, col introspect.Column) Config {
	cfg := Config{
		ColumnName:  col.Name,
		Comment:     col.Comment,
		NativeType:  col.Type,
		FieldName:   FieldName(col.Name),
		FieldType:   FieldString,
		WidgetType:  SentinelWidget,
		DictType:    SentinelDict,
		QueryType:   SentinelQuery,
		IsPK:        col.PrimaryKey,
		IsIncrement: col.AutoIncrement,
		IsRequired:  !col.Nullable && col.Default == nil,
		IsInsert:    true,
		IsEdit:      true,
		IsList:      true,
		IsQuery:     true,
	}

	base := BaseType(col.Type)
	switch {
	case isTemporal(base):
		cfg.FieldType = FieldDate
		cfg.WidgetType = WidgetDatetime
		cfg.QueryType = QueryBetween
	case isNumeric(base):
		cfg.FieldType = FieldNumber
	default:
		if isText(base) || maxLength(col) >= textareaMinLength {
			cfg.WidgetType = WidgetTextarea
		}
	}

	switch {
	case col.PrimaryKey && col.AutoIncrement:
		cfg.IsInsert = false
		cfg.IsEdit = true
		cfg.IsList = true
		cfg.IsQuery = true
	case IsBookkeeping(col.Name):
		cfg.IsInsert = false
		cfg.IsEdit = false
		cfg.IsList = false
		cfg.IsQuery = false
	}

	for _, rule := range rules {
		if rule.Apply == nil || !rule.Matches(col.Name) {
			continue
		}
		rule.Apply(col).applyTo(&cfg)
	}
	return cfg
}

// BaseType lowercases a native type and strips its length and modifiers,
// so "VARCHAR(64)" is "varchar" and "timestamp without time zone" is "timestamp".
func BaseType(nativeType string) string {
	base := strings.ToLower(strings.TrimSpace(nativeType))
	if idx := strings.IndexAny(base, "( "); idx >= 0 {
		base = base[:idx]
	}
	return base
}

func maxLength(col introspect.Column) int64 {
	if col.MaxLength > 0 {
		return col.MaxLength
	}
	open := strings.Index(col.Type, "(")
	if open < 0 {
		return 0
	}
	rest := col.Type[open+1:]
	end := strings.IndexAny(rest, ",)")
	if end < 0 {
		return 0
	}
	n, err := strconv.ParseInt(strings.TrimSpace(rest[:end]), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

var temporalTypes = map[string]struct{}{
	"datetime": {}, "timestamp": {}, "timestamptz": {}, "date": {}, "time": {}, "timetz": {}, "year": {},
}

var numericTypes = map[string]struct{}{
	"tinyint": {}, "smallint": {}, "mediumint": {}, "int": {}, "integer": {}, "bigint": {},
	"int2": {}, "int4": {}, "int8": {}, "serial": {}, "smallserial": {}, "bigserial": {},
	"float": {}, "float4": {}, "float8": {}, "double": {}, "real": {}, "decimal": {}, "numeric": {}, "number": {},
}

var textTypes = map[string]struct{}{
	"tinytext": {}, "text": {}, "mediumtext": {}, "longtext": {},
}

func isTemporal(base string) bool {
	_, ok := temporalTypes[base]
	return ok
}

func isNumeric(base string) bool {
	_, ok := numericTypes[base]
	return ok
}

func isText(base string) bool {
	_, ok := textTypes[base]
	return ok
}

var bookkeepingNames = map[string]struct{}{
	"createby": {}, "createtime": {}, "updateby": {}, "updatetime": {}, "delflag": {},
}

// IsBookkeeping reports whether name is an audit column such as create_time or updateBy.
func IsBookkeeping(name string) bool {
	normalized := strings.NewReplacer("_", "", "-", "").Replace(strings.ToLower(strings.TrimSpace(name)))
	_, ok := bookkeepingNames[normalized]
	return ok
}
