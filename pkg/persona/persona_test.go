package persona

import (
	"testing"

	"github.com/ohtakaisei/ronpaou/pkg/apperr"
	"github.com/ohtakaisei/ronpaou/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComposeEveryPair(t *testing.T) {
	reg := Default()
	c := NewComposer(reg)

	for _, m := range reg.Modes() {
		for _, p := range reg.Personas() {
			got, err := c.Compose(p.ID, m.ID)
			require.NoError(t, err)
			assert.NotEmpty(t, got)
			assert.Contains(t, got, m.Directive)
			assert.Contains(t, got, p.Directive)

			again, err := c.Compose(p.ID, m.ID)
			require.NoError(t, err)
			assert.Equal(t, got, again)
		}
	}
}

func TestComposeUnknownIDs(t *testing.T) {
	c := NewComposer(Default())

	_, err := c.Compose("nobody", ModeFreeDebate)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindConfiguration))

	_, err = c.Compose(PersonaCritic, "nothing")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindConfiguration))
}

func TestDefaultCatalogueOrder(t *testing.T) {
	reg := Default()

	var modeIDs, personaIDs []string
	for _, m := range reg.Modes() {
		modeIDs = append(modeIDs, m.ID)
	}
	for _, p := range reg.Personas() {
		personaIDs = append(personaIDs, p.ID)
	}
	assert.Equal(t, []string{ModeFilterBubble, ModeProposalReview, ModeFreeDebate}, modeIDs)
	assert.Equal(t, []string{PersonaCritic, PersonaInvestor, PersonaRiskManager}, personaIDs)
	assert.Equal(t, ModeFilterBubble, reg.DefaultModeID())
	assert.Equal(t, PersonaCritic, reg.DefaultPersonaID())

	m, ok := reg.Mode(ModeProposalReview)
	require.True(t, ok)
	assert.Equal(t, "企画書の穴埋め", m.Label)
}

func TestNewRegistryRejectsBadCatalogue(t *testing.T) {
	p := []Persona{{ID: "a"}}

	_, err := NewRegistry([]Mode{{ID: "x"}, {ID: "x"}}, p)
	assert.True(t, apperr.Is(err, apperr.KindConfiguration))

	_, err = NewRegistry([]Mode{{ID: ""}}, p)
	assert.True(t, apperr.Is(err, apperr.KindConfiguration))

	_, err = NewRegistry(nil, p)
	assert.True(t, apperr.Is(err, apperr.KindConfiguration))
}

func TestFromConfig(t *testing.T) {
	reg, err := FromConfig(nil)
	require.NoError(t, err)
	assert.Len(t, reg.Modes(), 3)

	reg, err = FromConfig(&config.CatalogConfig{
		Modes:    []config.CatalogEntry{{ID: "m", Directive: "mode directive"}},
		Personas: []config.CatalogEntry{{ID: "p", Directive: "persona directive"}},
	})
	require.NoError(t, err)

	got, err := NewComposer(reg).Compose("p", "m")
	require.NoError(t, err)
	assert.Contains(t, got, "mode directive")
	assert.Contains(t, got, "persona directive")
}
