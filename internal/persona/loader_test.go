package persona

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/loanintake/intake-engine/internal/model"
)

func TestPersonaSetLoadsEmbeddedDefault(t *testing.T) {
	p := NewPersonaSet("", false)
	text, err := p.Load(Coordinator)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text == "" {
		t.Fatal("expected non-empty embedded coordinator persona")
	}
}

func TestPersonaSetDiskOverrideTakesPriority(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "coordinator.md"), []byte("override text"), 0o644); err != nil {
		t.Fatalf("write override: %v", err)
	}
	p := NewPersonaSet(dir, false)
	text, err := p.Load(Coordinator)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "override text" {
		t.Fatalf("expected disk override, got %q", text)
	}
}

func TestPersonaSetTolerateMissingFallsBackForNonCoordinator(t *testing.T) {
	p := NewPersonaSet("", true)
	text, err := p.Load("nonexistent")
	if err != nil {
		t.Fatalf("expected fallback, got error: %v", err)
	}
	if text == "" {
		t.Fatal("expected non-empty fallback text")
	}

	strict := NewPersonaSet("", false)
	if _, err := strict.Load("nonexistent"); err == nil {
		t.Fatal("expected MissingPersona when tolerateMissing is false")
	} else if kind, ok := model.KindOf(err); !ok || kind != model.KindMissingPersona {
		t.Fatalf("expected KindMissingPersona, got %v", err)
	}
}

func TestPersonaSetReloadPicksUpDiskChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "intake.md")
	if err := os.WriteFile(path, []byte("v1"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	p := NewPersonaSet(dir, false)
	first, err := p.Load(Intake)
	if err != nil || first != "v1" {
		t.Fatalf("first load = %q, %v", first, err)
	}
	if err := os.WriteFile(path, []byte("v2"), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	stale, _ := p.Load(Intake)
	if stale != "v1" {
		t.Fatalf("expected cached value before Reload, got %q", stale)
	}
	p.Reload()
	fresh, err := p.Load(Intake)
	if err != nil || fresh != "v2" {
		t.Fatalf("after reload = %q, %v", fresh, err)
	}
}
