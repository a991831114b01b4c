package prompt

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
	"sync"
	"text/template"
)

//go:embed prompts
var builtin embed.FS

var (
	defaultRegistry *Registry
	defaultErr      error
	once            sync.Once
)

// Default returns the registry of built-in prompts.
func Default() (*Registry, error) {
	once.Do(func() {
		defaultRegistry = NewRegistry()
		defaultErr = LoadFS(defaultRegistry, builtin, "prompts")
	})
	return defaultRegistry, defaultErr
}

// LoadFromDirectory registers every prompt found under dir, replacing
// built-ins with the same ID. Layout:
//
//	dir/
//	  narrative/
//	    sales.json
//	  reminder/
//	    upload.json
func LoadFromDirectory(r *Registry, dir string) error {
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("prompts directory: %w", err)
	}
	return LoadFS(r, os.DirFS(dir), ".")
}

// LoadFS walks root inside fsys and registers each .json prompt.
func LoadFS(r *Registry, fsys fs.FS, root string) error {
	return fs.WalkDir(fsys, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path.Ext(p) != ".json" {
			return nil
		}

		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", p, err)
		}

		var pt PromptTemplate
		if err := json.Unmarshal(data, &pt); err != nil {
			return fmt.Errorf("failed to parse %s: %w", p, err)
		}
		if pt.ID == "" {
			pt.ID = idFromPath(p, root)
		}
		if pt.Category == "" {
			pt.Category = strings.SplitN(pt.ID, ".", 2)[0]
		}
		if err := r.Register(&pt); err != nil {
			return fmt.Errorf("failed to register %s: %w", p, err)
		}
		return nil
	})
}

// idFromPath maps "prompts/narrative/sales.json" to "narrative.sales".
func idFromPath(p, root string) string {
	rel := strings.TrimPrefix(strings.TrimPrefix(p, root), "/")
	rel = strings.TrimSuffix(rel, ".json")
	return strings.ReplaceAll(rel, "/", ".")
}

var templateFuncs = template.FuncMap{
	"inc":  func(i int) int { return i + 1 },
	"join": strings.Join,
	"yesno": func(b bool) string {
		if b {
			return "yes"
		}
		return "no"
	},
}

// RenderUserPrompt executes the user template against data.
func RenderUserPrompt(pt *PromptTemplate, data interface{}) (string, error) {
	tmpl, err := template.New(pt.ID).Funcs(templateFuncs).Option("missingkey=error").Parse(pt.UserPromptTmpl)
	if err != nil {
		return "", fmt.Errorf("failed to parse template %s: %w", pt.ID, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", pt.ID, err)
	}
	return buf.String(), nil
}
