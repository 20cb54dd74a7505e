package shader

import (
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/vizwave/api/internal/model"
)

//go:embed shaders/*.glsl
var shaderFS embed.FS

// Catalog holds the bundled background shaders, keyed by file name.
type Catalog struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// Entry is one cataloged shader: parsed metadata plus raw source.
type Entry struct {
	Info   model.ShaderInfo
	Source string
}

// NewCatalog loads and indexes every embedded shader. Shaders that fail
// static validation are skipped with an error so a broken bundle is caught
// at startup rather than at render time.
func NewCatalog() (*Catalog, error) {
	files, err := shaderFS.ReadDir("shaders")
	if err != nil {
		return nil, fmt.Errorf("failed to read shader bundle: %w", err)
	}

	c := &Catalog{entries: make(map[string]*Entry)}
	for _, f := range files {
		name := f.Name()
		data, err := shaderFS.ReadFile(path.Join("shaders", name))
		if err != nil {
			return nil, fmt.Errorf("failed to read shader %s: %w", name, err)
		}
		source := string(data)

		if err := Validate(name, source); err != nil {
			return nil, fmt.Errorf("bundled shader %s is invalid: %w", name, err)
		}

		info := parseMetadata(name, source)
		c.entries[name] = &Entry{Info: info, Source: source}
	}
	return c, nil
}

// Get returns a shader by file name, e.g. "plasma.glsl".
func (c *Catalog) Get(name string) (*Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[name]
	return e, ok
}

// List returns catalog entries sorted by name.
func (c *Catalog) List() []model.ShaderInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()

	infos := make([]model.ShaderInfo, 0, len(c.entries))
	for _, e := range c.entries {
		infos = append(infos, e.Info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// parseMetadata reads the leading comment block of a shader source.
// Convention:
//
//	// Plasma Waves
//	// category: procedural
//	// Slowly shifting sine-interference color field.
func parseMetadata(name, source string) model.ShaderInfo {
	info := model.ShaderInfo{
		Name: name,
		Path: "shaders/" + name,
	}

	var descLines []string
	for _, line := range strings.Split(source, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "//") {
			break
		}
		text := strings.TrimSpace(strings.TrimPrefix(line, "//"))
		if text == "" {
			continue
		}
		switch {
		case info.Title == "":
			info.Title = text
		case strings.HasPrefix(strings.ToLower(text), "category:"):
			info.Category = strings.TrimSpace(text[len("category:"):])
		default:
			descLines = append(descLines, text)
		}
	}
	info.Description = strings.Join(descLines, " ")
	if info.Title == "" {
		info.Title = strings.TrimSuffix(name, ".glsl")
	}
	return info
}
