package session

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreIsolatesSessions(t *testing.T) {
	st := NewStore(0)
	a := st.Get("web:1")
	b := st.Get("web:2")

	a.SetMode("free_debate")
	a.SetCredential("k")
	assert.Same(t, a, st.Get("web:1"))
	assert.Empty(t, b.Mode())
	assert.Empty(t, b.Credential())
	assert.Equal(t, 2, st.Len())
}

func TestAppendTruncatesObservations(t *testing.T) {
	s := NewStore(0).Get("k")
	long := strings.Repeat("あ", 800)
	steps := []Step{{Tool: "web_search", Input: "q", Observation: long}}

	s.Append(Entry{Role: RoleAssistant, Content: "answer", Steps: steps})

	h := s.History()
	require.Len(t, h, 1)
	assert.Equal(t, 500, len([]rune(h[0].Steps[0].Observation)))
	assert.Equal(t, long, steps[0].Observation, "caller slice must be untouched")
	assert.False(t, h[0].CreatedAt.IsZero())
}

func TestCustomObservationLimit(t *testing.T) {
	s := NewStore(3).Get("k")
	s.Append(Entry{Role: RoleAssistant, Steps: []Step{{Observation: "abcdef"}}})
	assert.Equal(t, "abc", s.History()[0].Steps[0].Observation)
}

func TestResetKeepsSelections(t *testing.T) {
	s := NewStore(0).Get("k")
	s.SetMode("m")
	s.SetPersona("p")
	s.SetCredential("c")
	s.Append(Entry{Role: RoleUser, Content: "hi"})

	s.Reset()
	assert.Empty(t, s.History())
	assert.Equal(t, "m", s.Mode())
	assert.Equal(t, "p", s.Persona())
	assert.Equal(t, "c", s.Credential())
}

func TestHistoryIsACopy(t *testing.T) {
	s := NewStore(0).Get("k")
	s.Append(Entry{Role: RoleUser, Content: "hi"})
	h := s.History()
	h[0].Content = "changed"
	assert.Equal(t, "hi", s.History()[0].Content)
}

func TestConcurrentGet(t *testing.T) {
	st := NewStore(0)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s := st.Get(fmt.Sprintf("k%d", i%5))
			s.Append(Entry{Role: RoleUser, Content: "x"})
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 5, st.Len())
	assert.Len(t, st.Get("k0").History(), 10)
}
