// Package persona implements a two-layer persona text loader:
//
//   - L1: embedded defaults shipped with the binary (personas/*.md)
//   - L2: a runtime override directory (PERSONAS_DIR), checked first
//
// PersonaSet is safe for concurrent use.
package persona

import (
	"embed"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/loanintake/intake-engine/internal/model"
)

// defaultPersonas embeds the L1 persona files shipped with the binary.
//
//go:embed personas/*.md
var defaultPersonas embed.FS

// Recognized persona keys. Coordinator is the only one whose absence is
// always fatal, regardless of PersonaSet.tolerateMissing.
const (
	Coordinator = "coordinator"
	Intake      = "intake"
	Credit      = "credit"
	Income      = "income"
	Risk        = "risk"
)

// PersonaSet loads and caches persona text for the five agent keys.
type PersonaSet struct {
	dir             string // runtime override directory; may be empty
	tolerateMissing bool

	mu    sync.RWMutex
	cache map[string]string
}

// NewPersonaSet creates a PersonaSet reading overrides from dir (may be
// empty to use only embedded defaults). tolerateMissing controls whether a
// missing non-coordinator persona falls back to a short generic persona
// instead of returning model.MissingPersona.
func NewPersonaSet(dir string, tolerateMissing bool) *PersonaSet {
	return &PersonaSet{
		dir:             dir,
		tolerateMissing: tolerateMissing,
		cache:           make(map[string]string),
	}
}

// Load returns the persona text for key, following the priority chain:
// disk override -> embedded default -> (tolerate-missing fallback |
// MissingPersona). The coordinator key never tolerates absence.
func (p *PersonaSet) Load(key string) (string, error) {
	p.mu.RLock()
	if v, ok := p.cache[key]; ok {
		p.mu.RUnlock()
		return v, nil
	}
	p.mu.RUnlock()

	text, found := p.loadUncached(key)
	if !found {
		if key == Coordinator || !p.tolerateMissing {
			return "", model.NewMissingPersona(key)
		}
		text = genericFallback(key)
	}

	p.mu.Lock()
	p.cache[key] = text
	p.mu.Unlock()
	return text, nil
}

func (p *PersonaSet) loadUncached(key string) (text string, found bool) {
	name := key + ".md"

	if p.dir != "" {
		diskPath := filepath.Join(p.dir, name)
		data, err := os.ReadFile(diskPath)
		if err == nil {
			return string(data), true
		}
		if !os.IsNotExist(err) {
			log.Printf("[persona] read %q failed: %v; falling back to embedded default", diskPath, err)
		}
	}

	data, err := fs.ReadFile(defaultPersonas, "personas/"+name)
	if err == nil {
		return string(data), true
	}
	return "", false
}

// Reload clears the cache so the next Load call re-reads from disk/embed.
func (p *PersonaSet) Reload() {
	p.mu.Lock()
	p.cache = make(map[string]string)
	p.mu.Unlock()
}

// genericFallback is the short persona substituted for a missing
// non-coordinator key when PersonaSet tolerates absence.
func genericFallback(key string) string {
	return "You are the " + key + " specialist in a loan-intake pipeline. " +
		"Respond only in the requested structured format."
}
