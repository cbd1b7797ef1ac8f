package inference

import "github.com/router-for-me/CodegenAdmin/internal/introspect"

// Default rule priorities, applied lowest first.
const (
	PriorityName    = 10
	PriorityFile    = 20
	PriorityTime    = 30
	PriorityType    = 40
	PriorityContent = 50
	PriorityImage   = 60
	PriorityStatus  = 70
)

func constant(p Patch) func(introspect.Column) Patch {
	return func(introspect.Column) Patch { return p }
}

// DefaultRules returns the built-in rule chain.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "name-like", Patterns: []string{"name"}, Priority: PriorityName,
			Apply: constant(Patch{QueryType: Str(QueryLike)})},
		{Name: "file-upload", Patterns: []string{"file"}, Priority: PriorityFile,
			Apply: constant(Patch{WidgetType: Str(WidgetFileUpload)})},
		{Name: "datetime", Patterns: []string{"time", "date"}, Priority: PriorityTime,
			Apply: constant(Patch{WidgetType: Str(WidgetDatetime), FieldType: Str(FieldDate), QueryType: Str(QueryBetween)})},
		{Name: "type-select", Patterns: []string{"type"}, Priority: PriorityType,
			Apply: constant(Patch{WidgetType: Str(WidgetSelect)})},
		{Name: "sex-select", Patterns: []string{"sex"}, Priority: PriorityType,
			Apply: constant(Patch{WidgetType: Str(WidgetSelect), DictType: Str(DictUserSex)})},
		{Name: "content-editor", Patterns: []string{"content"}, Priority: PriorityContent,
			Apply: constant(Patch{WidgetType: Str(WidgetEditor)})},
		{Name: "remark-textarea", Patterns: []string{"remark"}, Priority: PriorityContent,
			Apply: constant(Patch{WidgetType: Str(WidgetTextarea)})},
		{Name: "image-upload", Patterns: []string{"image", "avatar"}, Priority: PriorityImage,
			Apply: constant(Patch{WidgetType: Str(WidgetImageUpload)})},
		{Name: "status-radio", Patterns: []string{"status"}, Priority: PriorityStatus,
			Apply: constant(Patch{WidgetType: Str(WidgetRadio), DictType: Str(DictNormalDisable)})},
	}
}
