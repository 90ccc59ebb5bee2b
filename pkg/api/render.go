package api

import (
	"fmt"
	"strings"
)

// RenderText flattens a reply for channels that only display plain text.
// Steps are listed before the answer when showSteps is set.
func RenderText(r Reply, showSteps bool) string {
	var sb strings.Builder

	if showSteps && len(r.Steps) > 0 {
		sb.WriteString("🔍 思考プロセス\n")
		for i, s := range r.Steps {
			fmt.Fprintf(&sb, "%d. %s: %s\n", i+1, s.Tool, s.Input)
		}
		sb.WriteString("\n")
	}

	switch {
	case r.Catalog != nil:
		sb.WriteString(renderCatalog(r.Catalog))
	case len(r.History) > 0 && r.Text == "":
		for _, h := range r.History {
			fmt.Fprintf(&sb, "[%s] %s\n", h.Role, h.Content)
		}
	}
	sb.WriteString(r.Text)
	return strings.TrimRight(sb.String(), "\n")
}

func renderCatalog(c *Catalog) string {
	var sb strings.Builder
	writeItems := func(title, current string, items []CatalogItem) {
		sb.WriteString(title + "\n")
		for _, it := range items {
			mark := "  "
			if it.ID == current {
				mark = "▶ "
			}
			fmt.Fprintf(&sb, "%s%s %s (%s): %s\n", mark, it.Icon, it.Label, it.ID, it.Description)
		}
	}
	if len(c.Modes) > 0 {
		writeItems("モード", c.CurrentMode, c.Modes)
	}
	if len(c.Personas) > 0 {
		if len(c.Modes) > 0 {
			sb.WriteString("\n")
		}
		writeItems("ペルソナ", c.CurrentPersona, c.Personas)
	}
	return sb.String()
}
