// Package autoload registers every LLM provider through blank imports.
package autoload

import (
	_ "github.com/ohtakaisei/ronpaou/pkg/llm/gemini"
	_ "github.com/ohtakaisei/ronpaou/pkg/llm/ollama"
	_ "github.com/ohtakaisei/ronpaou/pkg/llm/openailm"
)
