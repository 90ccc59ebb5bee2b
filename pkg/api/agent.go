package api

// ReplyKind tells a channel how to render a Reply.
type ReplyKind string

const (
	ReplyAnswer  ReplyKind = "answer"
	ReplyError   ReplyKind = "error"
	ReplyInfo    ReplyKind = "info"
	ReplyHistory ReplyKind = "history"
	ReplyCatalog ReplyKind = "catalog"
)

// TraceStep is the display form of one reasoning step.
type TraceStep struct {
	Tool        string `json:"tool"`
	Input       string `json:"input"`
	Observation string `json:"observation"`
}

// HistoryItem is the display form of a stored conversation entry.
type HistoryItem struct {
	Role    string      `json:"role"`
	Content string      `json:"content"`
	Steps   []TraceStep `json:"steps,omitempty"`
}

// CatalogItem describes a selectable mode or persona.
type CatalogItem struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// Catalog lists the selectable modes and personas plus the session's current choice.
type Catalog struct {
	Modes          []CatalogItem `json:"modes"`
	Personas       []CatalogItem `json:"personas"`
	CurrentMode    string        `json:"current_mode"`
	CurrentPersona string        `json:"current_persona"`
}

// Reply is everything the handler sends back for one user message.
// Channels that cannot render structure fall back to Text.
type Reply struct {
	Kind    ReplyKind     `json:"type"`
	Text    string        `json:"text,omitempty"`
	Steps   []TraceStep   `json:"steps,omitempty"`
	History []HistoryItem `json:"history,omitempty"`
	Catalog *Catalog      `json:"catalog,omitempty"`
}
