package llm

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/ohtakaisei/ronpaou/pkg/monitor"
	"github.com/ohtakaisei/ronpaou/pkg/utils"
)

// DefaultDebugDir is where prompt dumps are written.
var DefaultDebugDir = filepath.Join("debug", "prompts")

// PromptDebugger wraps a Client and dumps every prompt/response pair to disk.
// Dumps of one turn share a directory named after the trace id in ctx.
type PromptDebugger struct {
	Client
	dir string
	seq atomic.Uint64
}

// NewPromptDebugger wraps c, writing under dir.
func NewPromptDebugger(c Client, dir string) *PromptDebugger {
	return &PromptDebugger{Client: c, dir: dir}
}

func (d *PromptDebugger) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	out, err := d.Client.Generate(ctx, prompt)
	d.dump(ctx, prompt, out, err, time.Since(start))
	return out, err
}

func (d *PromptDebugger) dump(ctx context.Context, prompt, out string, genErr error, elapsed time.Duration) {
	dir := d.dir
	if id := monitor.TraceID(ctx); id != "" {
		dir = filepath.Join(dir, id)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		slog.Error("Failed to create debug directory", "dir", dir, "error", err)
		return
	}

	n := d.seq.Add(1)
	name := filepath.Join(dir, utils.DumpFileName(n, d.Provider()))

	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		slog.Error("Failed to open debug file", "file", name, "error", err)
		return
	}
	defer f.Close()

	fmt.Fprintf(f, "# provider=%s model=%s elapsed=%s\n", d.Provider(), d.Model(), elapsed)
	fmt.Fprintf(f, "----- PROMPT -----\n%s\n", prompt)
	if genErr != nil {
		fmt.Fprintf(f, "----- ERROR -----\n%v\n", genErr)
		return
	}
	fmt.Fprintf(f, "----- RESPONSE -----\n%s\n", out)
}

// PruneDebugDumps removes dump files and turn directories whose timestamp
// prefix is older than retention. It returns the number of entries removed.
func PruneDebugDumps(dir string, retention time.Duration) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	removed := 0
	for _, e := range entries {
		if !utils.Expired(e.Name(), retention) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			slog.Warn("Failed to prune debug dump", "name", e.Name(), "error", err)
			continue
		}
		removed++
	}
	return removed
}
