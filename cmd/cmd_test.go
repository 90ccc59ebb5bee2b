package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ohtakaisei/ronpaou/pkg/apperr"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// fakeOllama answers every chat request with a fixed final answer and
// counts the calls.
func fakeOllama(t *testing.T, content string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		calls.Add(1)
		io.Copy(io.Discard, r.Body)
		w.Header().Set("Content-Type", "application/x-ndjson")
		body, _ := json.Marshal(map[string]any{
			"model":       "m",
			"message":     map[string]string{"role": "assistant", "content": content},
			"done":        true,
			"done_reason": "stop",
		})
		fmt.Fprintf(w, "%s\n", body)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func writeConfigs(t *testing.T, appJSON string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	appPath := filepath.Join(dir, "config.json")
	sysPath := filepath.Join(dir, "system.json")
	require.NoError(t, os.WriteFile(appPath, []byte(appJSON), 0o644))
	require.NoError(t, os.WriteFile(sysPath, []byte(`{"enable_tools": false, "log_level": "error"}`), 0o644))
	return appPath, sysPath
}

func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	root := NewRootCommand()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestCatalogWithoutConfig(t *testing.T) {
	out, _, err := run(t, "", "catalog", "--config", filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Contains(t, out, "モード")
	assert.Contains(t, out, "▶ 🫧 フィルターバブル破壊 (filter_bubble)")
	assert.Contains(t, out, "ペルソナ")
	assert.Contains(t, out, "(risk_manager)")
}

func TestCatalogFromConfig(t *testing.T) {
	appPath, sysPath := writeConfigs(t, `{
		"llm": [{"type": "ollama", "models": ["m"]}],
		"catalog": {
			"modes": [{"id": "m1", "label": "Only", "icon": "1", "directive": "d"}],
			"personas": [{"id": "p1", "label": "Solo", "icon": "2", "directive": "d"}]
		}
	}`)
	out, _, err := run(t, "", "catalog", "--config", appPath, "--system", sysPath)
	require.NoError(t, err)
	assert.Contains(t, out, "▶ 1 Only (m1)")
	assert.NotContains(t, out, "filter_bubble")
}

func TestAskEndToEnd(t *testing.T) {
	srv, calls := fakeOllama(t, "Thought: 十分\nFinal Answer: その意見には穴があります")
	appPath, sysPath := writeConfigs(t, fmt.Sprintf(`{"llm": [{"type": "ollama", "models": ["m"], "base_url": %q}]}`, srv.URL))

	out, _, err := run(t, "", "ask", "--config", appPath, "--system", sysPath,
		"--mode", "free_debate", "--persona", "critic", "週休3日制は全企業で導入すべき")
	require.NoError(t, err)
	assert.Equal(t, "その意見には穴があります\n", out)
	assert.Equal(t, int32(1), calls.Load())
}

func TestAskReadsStdin(t *testing.T) {
	srv, _ := fakeOllama(t, "Final Answer: stdin ok")
	appPath, sysPath := writeConfigs(t, fmt.Sprintf(`{"llm": [{"type": "ollama", "models": ["m"], "base_url": %q}]}`, srv.URL))

	out, _, err := run(t, "企画書\n複数行の本文\n", "ask", "--config", appPath, "--system", sysPath, "--mode", "proposal_review")
	require.NoError(t, err)
	assert.Equal(t, "stdin ok\n", out)
}

func TestAskRejectsUnknownMode(t *testing.T) {
	srv, calls := fakeOllama(t, "Final Answer: x")
	appPath, sysPath := writeConfigs(t, fmt.Sprintf(`{"llm": [{"type": "ollama", "models": ["m"], "base_url": %q}]}`, srv.URL))

	_, _, err := run(t, "", "ask", "--config", appPath, "--system", sysPath, "--mode", "nope", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")
	assert.Equal(t, int32(0), calls.Load())
}

func TestAskMissingCredential(t *testing.T) {
	t.Setenv(credentialEnv, "")
	appPath, sysPath := writeConfigs(t, `{"llm": [{"type": "gemini", "models": ["gemini-2.0-flash"]}]}`)

	_, _, err := run(t, "", "ask", "--config", appPath, "--system", sysPath, "意見")
	require.Error(t, err)
	assert.Equal(t, apperr.MsgNoAPIKey, err.Error())
}

func TestServeRequiresChannels(t *testing.T) {
	appPath, sysPath := writeConfigs(t, `{"llm": [{"type": "ollama", "models": ["m"]}], "channels": {"web": {"enabled": false}}}`)

	_, _, err := run(t, "", "serve", "--config", appPath, "--system", sysPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no channels")
}
