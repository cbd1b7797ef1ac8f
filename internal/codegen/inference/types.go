// Package inference derives generation settings for columns from their metadata.
package inference

// Field types.
const (
	FieldString = "string"
	FieldNumber = "number"
	FieldDate   = "date"
)

// Form widgets.
const (
	WidgetInput       = "input"
	WidgetTextarea    = "textarea"
	WidgetSelect      = "select"
	WidgetRadio       = "radio"
	WidgetCheckbox    = "checkbox"
	WidgetDatetime    = "datetime"
	WidgetImageUpload = "image-upload"
	WidgetFileUpload  = "file-upload"
	WidgetEditor      = "editor"
)

// Query operators.
const (
	QueryEQ      = "eq"
	QueryNE      = "ne"
	QueryGT      = "gt"
	QueryGTE     = "gte"
	QueryLT      = "lt"
	QueryLTE     = "lte"
	QueryLike    = "like"
	QueryBetween = "between"
)

// Engine defaults for the soft attributes. Sync compares persisted values against these.
const (
	SentinelWidget = WidgetInput
	SentinelQuery  = QueryEQ
	SentinelDict   = ""
)

// Dictionary references set by the default rules.
const (
	DictUserSex       = "sys_user_sex"
	DictNormalDisable = "sys_normal_disable"
)

// textareaMinLength is the declared length from which strings get a textarea.
const textareaMinLength = 500

var widgets = map[string]struct{}{
	WidgetInput: {}, WidgetTextarea: {}, WidgetSelect: {}, WidgetRadio: {}, WidgetCheckbox: {},
	WidgetDatetime: {}, WidgetImageUpload: {}, WidgetFileUpload: {}, WidgetEditor: {},
}

var queryOperators = map[string]struct{}{
	QueryEQ: {}, QueryNE: {}, QueryGT: {}, QueryGTE: {}, QueryLT: {}, QueryLTE: {}, QueryLike: {}, QueryBetween: {},
}

// ValidWidget reports whether w is a known widget.
func ValidWidget(w string) bool {
	_, ok := widgets[w]
	return ok
}

// ValidQueryOperator reports whether op is a known query operator.
func ValidQueryOperator(op string) bool {
	_, ok := queryOperators[op]
	return ok
}

// Config is the inferred generation setting of one column.
type Config struct {
	ColumnName  string `json:"column_name"`
	Comment     string `json:"comment"`
	NativeType  string `json:"native_type"`
	FieldName   string `json:"field_name"`
	FieldType   string `json:"field_type"`
	WidgetType  string `json:"widget_type"`
	DictType    string `json:"dict_type"`
	QueryType   string `json:"query_type"`
	IsPK        bool   `json:"is_pk"`
	IsIncrement bool   `json:"is_increment"`
	IsRequired  bool   `json:"is_required"`
	IsInsert    bool   `json:"is_insert"`
	IsEdit      bool   `json:"is_edit"`
	IsList      bool   `json:"is_list"`
	IsQuery     bool   `json:"is_query"`
}

// Patch is a partial attribute set; nil fields are left untouched.
type Patch struct {
	FieldType  *string
	WidgetType *string
	DictType   *string
	QueryType  *string
	IsRequired *bool
	IsInsert   *bool
	IsEdit     *bool
	IsList     *bool
	IsQuery    *bool
}

func (p Patch) applyTo(cfg *Config) {
	setString(&cfg.FieldType, p.FieldType)
	setString(&cfg.WidgetType, p.WidgetType)
	setString(&cfg.DictType, p.DictType)
	setString(&cfg.QueryType, p.QueryType)
	setBool(&cfg.IsRequired, p.IsRequired)
	setBool(&cfg.IsInsert, p.IsInsert)
	setBool(&cfg.IsEdit, p.IsEdit)
	setBool(&cfg.IsList, p.IsList)
	setBool(&cfg.IsQuery, p.IsQuery)
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

// Str returns a pointer to s for building patches.
func Str(s string) *string { return &s }

// Bool returns a pointer to b for building patches.
func Bool(b bool) *bool { return &b }
