package tools

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTool struct{ name string }

func (s stubTool) Name() string        { return s.name }
func (s stubTool) Description() string { return s.name + " tool" }
func (s stubTool) Invoke(context.Context, string) (string, error) {
	return s.name, nil
}

func TestToolRegistry(t *testing.T) {
	tr := NewToolRegistry(stubTool{"web_search"})
	tr.Register(stubTool{"calc"})

	got, ok := tr.Get("web_search")
	require.True(t, ok)
	assert.Equal(t, "web_search", got.Name())

	assert.Equal(t, []string{"calc", "web_search"}, tr.Names())

	tr.Unregister("calc")
	_, ok = tr.Get("calc")
	assert.False(t, ok)
	assert.Len(t, tr.GetAll(), 1)
}

func TestToolRegistryConcurrentAccess(t *testing.T) {
	tr := NewToolRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			tr.Register(stubTool{"web_search"})
		}()
		go func() {
			defer wg.Done()
			_ = tr.Names()
		}()
	}
	wg.Wait()
	assert.Equal(t, []string{"web_search"}, tr.Names())
}
