package api

import "context"

// Tool is a capability the reasoning loop can invoke by name. The name is a
// literal token of the text protocol, so it must be unique and free of spaces.
type Tool interface {
	Name() string
	// Description is shown to the model in the tool catalogue.
	Description() string
	// Invoke runs the tool on a free-text input and returns the observation.
	Invoke(ctx context.Context, input string) (string, error)
}

// ToolRegistry defines the interface for managing and accessing tools.
type ToolRegistry interface {
	Register(tool Tool)
	Unregister(name string)
	Get(name string) (Tool, bool)
	GetAll() []Tool
	Names() []string
}
