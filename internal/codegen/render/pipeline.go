package render

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/router-for-me/CodegenAdmin/internal/models"
	log "github.com/sirupsen/logrus"
)

// ErrorMarker prefixes the content of a template that failed to render.
const ErrorMarker = "@@CODEGEN_RENDER_ERROR@@"

// IsErrorContent reports whether content is a failed-render placeholder.
func IsErrorContent(content string) bool {
	return strings.HasPrefix(content, ErrorMarker)
}

// Output is the result of one template: content on success, Err on failure.
type Output struct {
	TemplateID string
	Name       string
	Path       string
	Language   string
	Content    string
	Err        error
}

// Failed reports whether the template failed.
func (o Output) Failed() bool { return o.Err != nil }

// Outputs is the ordered result of a render run.
type Outputs []Output

// Map returns path to content. Failed slots carry their error marker content.
func (o Outputs) Map() map[string]string {
	out := make(map[string]string, len(o))
	for _, item := range o {
		out[item.Path] = item.Content
	}
	return out
}

// Failures returns the failed outputs.
func (o Outputs) Failures() Outputs {
	var out Outputs
	for _, item := range o {
		if item.Failed() {
			out = append(out, item)
		}
	}
	return out
}

// Render runs every applicable definition against ctx. A failing or panicking
// template yields an error-marker output for its slot and never stops the others.
func Render(ctx *Context, defs []Definition) Outputs {
	vars := ctx.Vars()
	out := make(Outputs, 0, len(defs))
	for _, def := range defs {
		if !def.Applies(ctx) {
			continue
		}
		out = append(out, renderOne(ctx, vars, def))
	}
	return out
}

func renderOne(ctx *Context, vars map[string]string, def Definition) (result Output) {
	outPath := strings.TrimPrefix(path.Clean("/"+Substitute(def.PathTemplate, vars)), "/")
	if outPath == "" || outPath == "." {
		outPath = "errors/" + def.ID + ".txt"
	}
	result = Output{
		TemplateID: def.ID,
		Name:       def.Name,
		Path:       outPath,
		Language:   def.Language,
	}
	if result.Name == "" {
		result.Name = path.Base(outPath)
	}
	if result.Language == "" {
		result.Language = LanguageForPath(outPath)
	}

	defer func() {
		if recovered := recover(); recovered != nil {
			result.Err = fmt.Errorf("render: template %s panicked: %v", def.ID, recovered)
			result.Content = errorContent(def.ID, result.Err)
			log.WithField("template", def.ID).WithError(result.Err).Warn("template render panicked")
		}
	}()

	content, errRender := def.Render(ctx)
	if errRender != nil {
		result.Err = fmt.Errorf("render: template %s: %w", def.ID, errRender)
		result.Content = errorContent(def.ID, result.Err)
		log.WithField("template", def.ID).WithError(errRender).Warn("template render failed")
		return result
	}
	result.Content = content
	return result
}

func errorContent(templateID string, err error) string {
	return ErrorMarker + " " + templateID + ": " + err.Error()
}

// CustomDefinitions turns user-authored templates into definitions, ordered by sort then id.
func CustomDefinitions(templates []models.CustomTemplate) []Definition {
	defs := make([]Definition, 0, len(templates))
	for _, tpl := range sortedTemplates(templates) {
		content := tpl.Content
		defs = append(defs, Definition{
			ID:           fmt.Sprintf("custom-%d", tpl.ID),
			Name:         tpl.Name,
			PathTemplate: tpl.PathTemplate,
			Language:     tpl.Language,
			Render: func(ctx *Context) (string, error) {
				return Substitute(content, ctx.Vars()), nil
			},
		})
	}
	return defs
}

func sortedTemplates(templates []models.CustomTemplate) []models.CustomTemplate {
	out := make([]models.CustomTemplate, len(templates))
	copy(out, templates)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Sort != out[j].Sort {
			return out[i].Sort < out[j].Sort
		}
		return out[i].ID < out[j].ID
	})
	return out
}
