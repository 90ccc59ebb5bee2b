// Package persona holds the catalogue of discussion modes and personas and
// composes the system instruction for one (persona, mode) pair.
package persona

import (
	"fmt"

	"github.com/ohtakaisei/ronpaou/pkg/apperr"
	"github.com/ohtakaisei/ronpaou/pkg/config"
)

// Mode is a discussion style, e.g. evidence-based rebuttal or proposal review.
type Mode struct {
	ID          string
	Label       string
	Description string
	Icon        string
	Directive   string
}

// Persona is the character the assistant speaks as.
type Persona struct {
	ID          string
	Label       string
	Description string
	Icon        string
	Directive   string
}

// Registry is a read-only, ordered catalogue. It is safe for concurrent use
// because nothing mutates it after NewRegistry returns.
type Registry struct {
	modes        []Mode
	personas     []Persona
	modeIndex    map[string]int
	personaIndex map[string]int
}

// NewRegistry validates and indexes the catalogue. Ids must be non-empty and
// unique within their kind, and each kind needs at least one entry.
func NewRegistry(modes []Mode, personas []Persona) (*Registry, error) {
	if len(modes) == 0 || len(personas) == 0 {
		return nil, apperr.New(apperr.KindConfiguration, "persona.NewRegistry", "catalogue needs at least one mode and one persona")
	}

	r := &Registry{
		modes:        append([]Mode(nil), modes...),
		personas:     append([]Persona(nil), personas...),
		modeIndex:    make(map[string]int, len(modes)),
		personaIndex: make(map[string]int, len(personas)),
	}
	for i, m := range r.modes {
		if m.ID == "" {
			return nil, apperr.New(apperr.KindConfiguration, "persona.NewRegistry", fmt.Sprintf("mode #%d has an empty id", i))
		}
		if _, dup := r.modeIndex[m.ID]; dup {
			return nil, apperr.New(apperr.KindConfiguration, "persona.NewRegistry", fmt.Sprintf("duplicate mode id %q", m.ID))
		}
		r.modeIndex[m.ID] = i
	}
	for i, p := range r.personas {
		if p.ID == "" {
			return nil, apperr.New(apperr.KindConfiguration, "persona.NewRegistry", fmt.Sprintf("persona #%d has an empty id", i))
		}
		if _, dup := r.personaIndex[p.ID]; dup {
			return nil, apperr.New(apperr.KindConfiguration, "persona.NewRegistry", fmt.Sprintf("duplicate persona id %q", p.ID))
		}
		r.personaIndex[p.ID] = i
	}
	return r, nil
}

// FromConfig builds the registry from the config.json catalogue, or the
// built-in one when cfg is nil.
func FromConfig(cfg *config.CatalogConfig) (*Registry, error) {
	if cfg == nil {
		return Default(), nil
	}
	modes := make([]Mode, 0, len(cfg.Modes))
	for _, e := range cfg.Modes {
		modes = append(modes, Mode(e))
	}
	personas := make([]Persona, 0, len(cfg.Personas))
	for _, e := range cfg.Personas {
		personas = append(personas, Persona(e))
	}
	return NewRegistry(modes, personas)
}

// Mode looks up a mode by id.
func (r *Registry) Mode(id string) (Mode, bool) {
	i, ok := r.modeIndex[id]
	if !ok {
		return Mode{}, false
	}
	return r.modes[i], true
}

// Persona looks up a persona by id.
func (r *Registry) Persona(id string) (Persona, bool) {
	i, ok := r.personaIndex[id]
	if !ok {
		return Persona{}, false
	}
	return r.personas[i], true
}

// Modes returns the modes in declaration order.
func (r *Registry) Modes() []Mode {
	return append([]Mode(nil), r.modes...)
}

// Personas returns the personas in declaration order.
func (r *Registry) Personas() []Persona {
	return append([]Persona(nil), r.personas...)
}

func (r *Registry) DefaultModeID() string    { return r.modes[0].ID }
func (r *Registry) DefaultPersonaID() string { return r.personas[0].ID }
