// Package catalog holds the static field schemas the generation engine works
// against. Each content type (landing page, case study, …) declares its
// editable fields, their semantic types, and which fields the engine must
// never touch. Catalogs are data, not code: they are loaded from YAML files
// in a config directory so the host application controls the schema.
//
// The registry is read-mostly: lookups take a read lock, and Reload swaps the
// whole type map atomically so in-flight requests keep a consistent view.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/contentforge/contentforge/internal/domain"
)

// Catalog lookup errors.
var (
	// ErrUnknownContentType indicates the requested content type is not
	// declared in any loaded catalog file.
	ErrUnknownContentType = errors.New("unknown content type")

	// ErrUnknownField indicates a selected field is not declared for the
	// content type.
	ErrUnknownField = errors.New("unknown field")

	// ErrFieldExcluded indicates a selected field is declared but marked
	// excluded, so the engine must not generate content for it.
	ErrFieldExcluded = errors.New("field is excluded from generation")
)

// ContentTypeDef is the immutable schema of one content type. Construct via
// Load or NewContentType; do not mutate after publication.
type ContentTypeDef struct {
	Name        string                   `yaml:"name"`
	DisplayName string                   `yaml:"display_name"`
	Guidance    string                   `yaml:"guidance"`
	Fields      []domain.FieldDefinition `yaml:"fields"`

	byName map[string]int
}

// Field returns the definition for name and whether it exists.
func (d *ContentTypeDef) Field(name string) (domain.FieldDefinition, bool) {
	i, ok := d.byName[name]
	if !ok {
		return domain.FieldDefinition{}, false
	}
	return d.Fields[i], true
}

// Selectable returns the fields the engine may generate content for, in
// declaration order.
func (d *ContentTypeDef) Selectable() []domain.FieldDefinition {
	out := make([]domain.FieldDefinition, 0, len(d.Fields))
	for _, f := range d.Fields {
		if !f.Excluded {
			out = append(out, f)
		}
	}
	return out
}

// ValidateSelection checks that every name resolves to a declared,
// non-excluded field. The first offending name is reported.
func (d *ContentTypeDef) ValidateSelection(names []string) error {
	for _, n := range names {
		f, ok := d.Field(n)
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownField, n)
		}
		if f.Excluded {
			return fmt.Errorf("%w: %q", ErrFieldExcluded, n)
		}
	}
	return nil
}

// DisplayNameOf returns the display name for a field, falling back to a
// title-cased version of the raw name when the field is unknown.
func (d *ContentTypeDef) DisplayNameOf(name string) string {
	if f, ok := d.Field(name); ok && f.DisplayName != "" {
		return f.DisplayName
	}
	return deriveDisplayName(name)
}

// finalize validates the definition and builds the lookup index. It also
// fills in derived display names and defaults the semantic type to text.
func (d *ContentTypeDef) finalize() error {
	if strings.TrimSpace(d.Name) == "" {
		return errors.New("content type name must not be empty")
	}
	if d.DisplayName == "" {
		d.DisplayName = deriveDisplayName(d.Name)
	}
	if len(d.Fields) == 0 {
		return fmt.Errorf("content type %q declares no fields", d.Name)
	}
	d.byName = make(map[string]int, len(d.Fields))
	for i := range d.Fields {
		f := &d.Fields[i]
		if strings.TrimSpace(f.Name) == "" {
			return fmt.Errorf("content type %q: field %d has no name", d.Name, i)
		}
		if _, dup := d.byName[f.Name]; dup {
			return fmt.Errorf("content type %q: duplicate field %q", d.Name, f.Name)
		}
		if f.Type == "" {
			f.Type = domain.TypeText
		}
		if !f.Type.Valid() {
			return fmt.Errorf("content type %q: field %q has unknown type %q", d.Name, f.Name, f.Type)
		}
		if f.MaxLength < 0 {
			return fmt.Errorf("content type %q: field %q has negative max_length", d.Name, f.Name)
		}
		if f.DisplayName == "" {
			f.DisplayName = deriveDisplayName(f.Name)
		}
		d.byName[f.Name] = i
	}
	return nil
}

// Catalog is the registry of all loaded content types. Safe for concurrent
// use; Reload replaces the whole map under the write lock.
type Catalog struct {
	mu    sync.RWMutex
	dir   string
	types map[string]*ContentTypeDef
}

// NewContentType builds a validated ContentTypeDef in code. Intended for
// tests and embedded defaults.
func NewContentType(name, guidance string, fields []domain.FieldDefinition) (*ContentTypeDef, error) {
	d := &ContentTypeDef{Name: name, Guidance: guidance, Fields: fields}
	if err := d.finalize(); err != nil {
		return nil, err
	}
	return d, nil
}

// New builds a catalog from in-memory definitions (no directory attached).
func New(defs ...*ContentTypeDef) *Catalog {
	types := make(map[string]*ContentTypeDef, len(defs))
	for _, d := range defs {
		types[d.Name] = d
	}
	return &Catalog{types: types}
}

// Load reads every *.yaml / *.yml file under dir, one content type per file.
// A directory with no catalog files is an error: the engine cannot validate
// anything without a schema.
func Load(dir string) (*Catalog, error) {
	c := &Catalog{dir: dir}
	types, err := loadDir(dir)
	if err != nil {
		return nil, err
	}
	c.types = types
	return c, nil
}

// Reload re-reads the catalog directory and atomically swaps the registry.
// On any error the current registry is left untouched.
func (c *Catalog) Reload() error {
	if c.dir == "" {
		return errors.New("catalog has no backing directory")
	}
	types, err := loadDir(c.dir)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.types = types
	c.mu.Unlock()
	return nil
}

// ContentType returns the schema for name or ErrUnknownContentType.
func (c *Catalog) ContentType(name string) (*ContentTypeDef, error) {
	c.mu.RLock()
	d, ok := c.types[name]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownContentType, name)
	}
	return d, nil
}

// Types returns the sorted names of all loaded content types.
func (c *Catalog) Types() []string {
	c.mu.RLock()
	out := make([]string, 0, len(c.types))
	for n := range c.types {
		out = append(out, n)
	}
	c.mu.RUnlock()
	sort.Strings(out)
	return out
}

// loadDir parses every catalog file in dir into a fresh type map.
func loadDir(dir string) (map[string]*ContentTypeDef, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	types := make(map[string]*ContentTypeDef)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		path := filepath.Join(dir, e.Name())
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		var d ContentTypeDef
		if err := yaml.Unmarshal(b, &d); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		if err := d.finalize(); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if _, dup := types[d.Name]; dup {
			return nil, fmt.Errorf("%s: content type %q already declared", path, d.Name)
		}
		types[d.Name] = &d
	}
	if len(types) == 0 {
		return nil, fmt.Errorf("no catalog files found in %s", dir)
	}
	return types, nil
}

// titleCaser converts snake_case field names into display names.
var titleCaser = cases.Title(language.English)

// deriveDisplayName turns "hero_headline" into "Hero Headline".
func deriveDisplayName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool { return r == '_' || r == '-' })
	for i, p := range parts {
		parts[i] = titleCaser.String(p)
	}
	return strings.Join(parts, " ")
}
