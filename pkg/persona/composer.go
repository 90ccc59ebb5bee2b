package persona

import (
	"fmt"
	"strings"

	"github.com/ohtakaisei/ronpaou/pkg/apperr"
)

const basePreamble = `あなたは「悪魔の代弁者(Devil's Advocate)」です。
ユーザーの意見にあえて反対の立場を取り、思考の盲点を突くことで、より強い結論へ導くのが役割です。
回答は日本語で行い、反論は具体的かつ建設的にしてください。`

// Composer builds system instructions from the registry it was given.
type Composer struct {
	registry *Registry
}

func NewComposer(r *Registry) *Composer {
	return &Composer{registry: r}
}

// Registry returns the catalogue backing this composer.
func (c *Composer) Registry() *Registry { return c.registry }

// Compose returns the system instruction for the pair. The result depends
// only on the two entries, so identical ids always yield identical text.
func (c *Composer) Compose(personaID, modeID string) (string, error) {
	p, ok := c.registry.Persona(personaID)
	if !ok {
		return "", apperr.New(apperr.KindConfiguration, "persona.Compose", fmt.Sprintf("unknown persona %q", personaID))
	}
	m, ok := c.registry.Mode(modeID)
	if !ok {
		return "", apperr.New(apperr.KindConfiguration, "persona.Compose", fmt.Sprintf("unknown mode %q", modeID))
	}

	var sb strings.Builder
	sb.WriteString(basePreamble)
	sb.WriteString("\n\n")
	sb.WriteString(p.Directive)
	sb.WriteString("\n\n")
	sb.WriteString(m.Directive)
	return sb.String(), nil
}
