package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/contentforge/contentforge/internal/domain"
)

const landingPageYAML = `name: landing_page
display_name: Landing Page
guidance: |
  Keep headlines short and benefit-led.
fields:
  - name: title
    type: text
    max_length: 120
  - name: hero_headline
    type: text
  - name: body
    type: richText
  - name: contact_email
    type: email
  - name: slug
    excluded: true
`

func writeCatalogDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func TestLoad_ParsesTypes(t *testing.T) {
	dir := writeCatalogDir(t, map[string]string{"landing_page.yaml": landingPageYAML})

	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	d, err := c.ContentType("landing_page")
	if err != nil {
		t.Fatalf("ContentType: %v", err)
	}
	if d.DisplayName != "Landing Page" {
		t.Fatalf("DisplayName = %q", d.DisplayName)
	}
	if d.Guidance == "" {
		t.Fatalf("expected guidance text")
	}

	f, ok := d.Field("title")
	if !ok || f.Type != domain.TypeText || f.MaxLength != 120 {
		t.Fatalf("title field = %+v, ok=%v", f, ok)
	}

	// Display name derived from snake_case when absent.
	if got := d.DisplayNameOf("hero_headline"); got != "Hero Headline" {
		t.Fatalf("DisplayNameOf(hero_headline) = %q", got)
	}
}

func TestLoad_ErrorCases(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatalf("expected error for missing directory")
	}

	dir := writeCatalogDir(t, map[string]string{"README.txt": "nothing here"})
	if _, err := Load(dir); err == nil {
		t.Fatalf("expected error when no catalog files are present")
	}

	dir = writeCatalogDir(t, map[string]string{"bad.yaml": "name: x\nfields: []\n"})
	if _, err := Load(dir); err == nil {
		t.Fatalf("expected error for type with no fields")
	}

	dir = writeCatalogDir(t, map[string]string{
		"bad.yaml": "name: x\nfields:\n  - name: a\n    type: hologram\n",
	})
	if _, err := Load(dir); err == nil {
		t.Fatalf("expected error for unknown semantic type")
	}
}

func TestContentType_Unknown(t *testing.T) {
	c := New()
	_, err := c.ContentType("nope")
	if !errors.Is(err, ErrUnknownContentType) {
		t.Fatalf("err = %v; want ErrUnknownContentType", err)
	}
}

func TestValidateSelection(t *testing.T) {
	d, err := NewContentType("landing_page", "", []domain.FieldDefinition{
		{Name: "title", Type: domain.TypeText},
		{Name: "slug", Type: domain.TypeText, Excluded: true},
	})
	if err != nil {
		t.Fatalf("NewContentType: %v", err)
	}

	if err := d.ValidateSelection([]string{"title"}); err != nil {
		t.Fatalf("valid selection rejected: %v", err)
	}
	if err := d.ValidateSelection([]string{"title", "missing"}); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("err = %v; want ErrUnknownField", err)
	}
	// Excluded fields never pass validation.
	if err := d.ValidateSelection([]string{"slug"}); !errors.Is(err, ErrFieldExcluded) {
		t.Fatalf("err = %v; want ErrFieldExcluded", err)
	}
}

func TestSelectable_OmitsExcluded(t *testing.T) {
	d, err := NewContentType("t", "", []domain.FieldDefinition{
		{Name: "title"},
		{Name: "slug", Excluded: true},
		{Name: "body", Type: domain.TypeRichText},
	})
	if err != nil {
		t.Fatalf("NewContentType: %v", err)
	}
	sel := d.Selectable()
	if len(sel) != 2 {
		t.Fatalf("Selectable() = %d fields; want 2", len(sel))
	}
	for _, f := range sel {
		if f.Excluded {
			t.Fatalf("excluded field %q leaked into Selectable()", f.Name)
		}
	}
}

func TestReload_SwapsRegistry(t *testing.T) {
	dir := writeCatalogDir(t, map[string]string{"landing_page.yaml": landingPageYAML})
	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	extra := "name: case_study\nfields:\n  - name: headline\n"
	if err := os.WriteFile(filepath.Join(dir, "case_study.yaml"), []byte(extra), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := c.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	got := c.Types()
	if len(got) != 2 || got[0] != "case_study" || got[1] != "landing_page" {
		t.Fatalf("Types() = %v", got)
	}

	// A broken file leaves the previous registry intact.
	if err := os.WriteFile(filepath.Join(dir, "case_study.yaml"), []byte("{broken"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := c.Reload(); err == nil {
		t.Fatalf("expected reload error")
	}
	if got := c.Types(); len(got) != 2 {
		t.Fatalf("registry should be unchanged after failed reload, got %v", got)
	}
}

func TestDeriveDisplayName(t *testing.T) {
	cases := map[string]string{
		"title":          "Title",
		"hero_headline":  "Hero Headline",
		"cta-button-txt": "Cta Button Txt",
	}
	for in, want := range cases {
		if got := deriveDisplayName(in); got != want {
			t.Fatalf("deriveDisplayName(%q) = %q; want %q", in, got, want)
		}
	}
}
