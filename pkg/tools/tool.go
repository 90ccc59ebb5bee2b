package tools

import (
	"sort"
	"sync"

	"github.com/ohtakaisei/ronpaou/pkg/api"
)

// Tool is re-exported so callers need not import api.
type Tool = api.Tool

// ToolRegistry acts as a central inventory for all tools available to the agent.
type ToolRegistry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

var _ api.ToolRegistry = (*ToolRegistry)(nil)

// NewToolRegistry creates a registry pre-filled with the given tools.
func NewToolRegistry(tools ...Tool) *ToolRegistry {
	tr := &ToolRegistry{
		tools: make(map[string]Tool),
	}
	for _, t := range tools {
		tr.tools[t.Name()] = t
	}
	return tr
}

// Register adds a tool to the registry, replacing one with the same name.
func (tr *ToolRegistry) Register(tool Tool) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.tools[tool.Name()] = tool
}

// Unregister removes a tool from the registry
func (tr *ToolRegistry) Unregister(name string) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	delete(tr.tools, name)
}

// Get retrieves a tool by name
func (tr *ToolRegistry) Get(name string) (Tool, bool) {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	tool, ok := tr.tools[name]
	return tool, ok
}

// GetAll returns all registered tools sorted by name, so that the prompt
// catalogue is stable between turns.
func (tr *ToolRegistry) GetAll() []Tool {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	tools := make([]Tool, 0, len(tr.tools))
	for _, tool := range tr.tools {
		tools = append(tools, tool)
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name() < tools[j].Name() })
	return tools
}

// Names returns the sorted tool names.
func (tr *ToolRegistry) Names() []string {
	all := tr.GetAll()
	names := make([]string, len(all))
	for i, t := range all {
		names[i] = t.Name()
	}
	return names
}
