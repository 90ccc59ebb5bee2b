package llm

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ohtakaisei/ronpaou/pkg/apperr"
	"github.com/ohtakaisei/ronpaou/pkg/config"
	"github.com/ohtakaisei/ronpaou/pkg/monitor"
)

type MockClient struct {
	mock.Mock
	name string
}

func (m *MockClient) Generate(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func (m *MockClient) Provider() string { return m.name }
func (m *MockClient) Model() string    { return m.name + "-model" }

func (m *MockClient) IsTransientError(err error) bool {
	return err != nil && err.Error() == "503 overloaded"
}

func newFallback(clients ...Client) *FallbackClient {
	return &FallbackClient{Clients: clients, MaxRetries: 3, RetryDelay: time.Millisecond}
}

func TestFallbackRetriesTransientThenSucceeds(t *testing.T) {
	a := &MockClient{name: "a"}
	a.On("Generate", mock.Anything, "p").Return("", errors.New("503 overloaded")).Once()
	a.On("Generate", mock.Anything, "p").Return("ok", nil).Once()

	out, err := newFallback(a).Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	a.AssertNumberOfCalls(t, "Generate", 2)
}

func TestFallbackMovesToNextClient(t *testing.T) {
	a := &MockClient{name: "a"}
	a.On("Generate", mock.Anything, "p").Return("", errors.New("model not found"))
	b := &MockClient{name: "b"}
	b.On("Generate", mock.Anything, "p").Return("from b", nil)

	out, err := newFallback(a, b).Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "from b", out)
	a.AssertNumberOfCalls(t, "Generate", 1)
}

func TestFallbackNeverRetriesAuthOrRateLimit(t *testing.T) {
	for _, msg := range []string{"401 API key not valid", "429 quota exceeded"} {
		a := &MockClient{name: "a"}
		a.On("Generate", mock.Anything, "p").Return("", errors.New(msg))
		b := &MockClient{name: "b"}

		_, err := newFallback(a, b).Generate(context.Background(), "p")
		require.Error(t, err)
		assert.Contains(t, err.Error(), msg)
		a.AssertNumberOfCalls(t, "Generate", 1)
		b.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
	}
}

func TestFallbackAllFail(t *testing.T) {
	a := &MockClient{name: "a"}
	a.On("Generate", mock.Anything, "p").Return("", errors.New("503 overloaded"))

	_, err := newFallback(a).Generate(context.Background(), "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all fallback providers failed")
	a.AssertNumberOfCalls(t, "Generate", 3)
}

func TestCutAtStop(t *testing.T) {
	assert.Equal(t, "Action: web_search\nAction Input: x", CutAtStop("Action: web_search\nAction Input: x\nObservation: fake", DefaultStop))
	assert.Equal(t, "no stop here", CutAtStop("no stop here", DefaultStop))
	assert.Equal(t, "abc", CutAtStop("abc", nil))
}

type fakeFactory struct {
	keyed   bool
	created []ProviderGroupConfig
}

func (f *fakeFactory) AcceptsCredential() bool { return f.keyed }

func (f *fakeFactory) Create(g ProviderGroupConfig, opts GenerationOptions, sys *config.SystemConfig) ([]Client, error) {
	f.created = append(f.created, g)
	var out []Client
	for _, m := range g.Models {
		out = append(out, &MockClient{name: m})
	}
	return out, nil
}

func TestNewFromConfigCredentialOverride(t *testing.T) {
	keyed := &fakeFactory{keyed: true}
	RegisterProvider("test-keyed", keyed)

	raw := []byte(`[{"type": "test-keyed", "api_keys": ["configured"]}]`)
	c, err := NewFromConfig(raw, config.DefaultSystemConfig(), "user-key")
	require.NoError(t, err)

	require.Len(t, keyed.created, 1)
	assert.Equal(t, []string{"user-key"}, keyed.created[0].APIKeys)
	assert.Equal(t, []string{"gemini-2.0-flash"}, keyed.created[0].Models)
	assert.Equal(t, "gemini-2.0-flash", c.Provider())
}

func TestNewFromConfigMissingCredential(t *testing.T) {
	RegisterProvider("test-keyed-empty", &fakeFactory{keyed: true})

	raw := []byte(`[{"type": "test-keyed-empty", "models": ["m"]}]`)
	_, err := NewFromConfig(raw, nil, "")
	assert.ErrorIs(t, err, apperr.ErrMissingCredential)
	assert.True(t, NeedsCredential(raw))
}

func TestNewFromConfigFallbackAndErrors(t *testing.T) {
	RegisterProvider("test-local", &fakeFactory{})

	c, err := NewFromConfig([]byte(`[{"type": "test-local", "models": ["x", "y"]}]`), config.DefaultSystemConfig(), "")
	require.NoError(t, err)
	assert.IsType(t, &FallbackClient{}, c)
	assert.False(t, NeedsCredential([]byte(`[{"type": "test-local"}]`)))

	_, err = NewFromConfig([]byte(`[{"type": "nope"}]`), nil, "")
	assert.True(t, apperr.Is(err, apperr.KindConfiguration))

	_, err = NewFromConfig([]byte(`{bad`), nil, "")
	assert.True(t, apperr.Is(err, apperr.KindConfiguration))
}

func TestNewFromConfigWrapsSingleClient(t *testing.T) {
	RegisterProvider("test-single", &fakeFactory{})
	sys := config.DefaultSystemConfig()
	sys.LLMTimeoutMs = 1234
	sys.DebugPrompts = false

	c, err := NewFromConfig([]byte(`[{"type": "test-single", "models": ["solo"]}]`), sys, "")
	require.NoError(t, err)

	fc, ok := c.(*FallbackClient)
	require.True(t, ok, "got %T", c)
	assert.Len(t, fc.Clients, 1)
	assert.Equal(t, 1234*time.Millisecond, fc.AttemptTimeout)
	assert.Equal(t, sys.MaxRetries, fc.MaxRetries)
	assert.Equal(t, "solo", c.Provider())
	assert.Equal(t, "solo-model", c.Model())
}

func TestFallbackAttemptTimeoutSingleClient(t *testing.T) {
	m := &MockClient{name: "slow"}
	m.On("Generate", mock.Anything, "p").Run(func(args mock.Arguments) {
		<-args.Get(0).(context.Context).Done()
	}).Return("", context.DeadlineExceeded)

	f := &FallbackClient{Clients: []Client{m}, MaxRetries: 1, AttemptTimeout: 20 * time.Millisecond}
	start := time.Now()
	_, err := f.Generate(context.Background(), "p")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, apperr.KindTimeout, apperr.KindOf(apperr.Classify(err)))
	assert.Less(t, time.Since(start), 2*time.Second)
	m.AssertNumberOfCalls(t, "Generate", 1)
}

func TestPromptDebuggerDumps(t *testing.T) {
	dir := t.TempDir()
	inner := &MockClient{name: "a"}
	inner.On("Generate", mock.Anything, "the prompt").Return("the answer", nil)

	d := NewPromptDebugger(inner, dir)
	ctx := monitor.WithTraceID(context.Background(), "trace1")
	out, err := d.Generate(ctx, "the prompt")
	require.NoError(t, err)
	assert.Equal(t, "the answer", out)

	files, err := os.ReadDir(filepath.Join(dir, "trace1"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	body, err := os.ReadFile(filepath.Join(dir, "trace1", files[0].Name()))
	require.NoError(t, err)
	assert.Contains(t, string(body), "the prompt")
	assert.Contains(t, string(body), "the answer")
}

func TestPruneDebugDumps(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "00000001_old.log"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notanid.log"), nil, 0o644))

	assert.Equal(t, 1, PruneDebugDumps(dir, time.Hour))
	_, err := os.Stat(filepath.Join(dir, "notanid.log"))
	assert.NoError(t, err)
}
