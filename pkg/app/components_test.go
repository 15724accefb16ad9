package app

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilkoid/greenery-agent/pkg/chain"
	"github.com/ilkoid/greenery-agent/pkg/config"
	"github.com/ilkoid/greenery-agent/pkg/dataset"
	"github.com/ilkoid/greenery-agent/pkg/export"
	"github.com/ilkoid/greenery-agent/pkg/llm"
	"github.com/ilkoid/greenery-agent/pkg/models"
)

const fixture = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "id": "b.1", "properties": {"bu_naam": "Binnenstad-Noord", "_mean": 18.73}},
    {"type": "Feature", "id": "b.2", "properties": {"bu_naam": "Binnenstad-Zuid", "_mean": 22.25}},
    {"type": "Feature", "id": "b.3", "properties": {"bu_naam": "Centrum", "_mean": null}}
  ],
  "totalFeatures": 3
}`

// replayProvider — модель, которая сначала смотрит значение, потом отвечает.
type replayProvider struct {
	mu    sync.Mutex
	calls int
}

func (p *replayProvider) Generate(ctx context.Context, messages []llm.Message, opts ...any) (llm.Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++

	if p.calls == 1 {
		return llm.Message{
			Role: llm.RoleAssistant,
			ToolCalls: []llm.ToolCall{{
				ID:   "call_1",
				Name: "json_spec_get_value",
				Args: `{"path": "data[\"features\"][0][\"properties\"][\"_mean\"]"}`,
			}},
		}, nil
	}

	last := messages[len(messages)-1]
	return llm.Message{Role: llm.RoleAssistant, Content: "Binnenstad-Noord has _mean " + last.Content}, nil
}

func testConfig(t *testing.T) *config.AppConfig {
	t.Helper()
	t.Setenv(config.DefaultAzureKeyEnv, "test-key")

	cfg, err := config.LoadDefault()
	require.NoError(t, err)
	cfg.Debug.LogsDir = t.TempDir()
	return cfg
}

func testModels(t *testing.T, cfg *config.AppConfig, provider llm.Provider) *models.Registry {
	t.Helper()
	registry := models.NewRegistry()
	def, _ := cfg.GetChatModel("")
	require.NoError(t, registry.Register(cfg.Models.DefaultChat, def, provider))
	return registry
}

func testDocument(t *testing.T) *dataset.Document {
	t.Helper()
	doc, err := dataset.NewDocument([]byte(fixture), "fixture")
	require.NoError(t, err)
	return doc
}

func TestInitializeWithDocument_AnswersQuestion(t *testing.T) {
	cfg := testConfig(t)
	provider := &replayProvider{}

	var trace bytes.Buffer
	c, err := InitializeWithDocument(cfg, testDocument(t), Options{
		Models:  testModels(t, cfg, provider),
		Verbose: true,
		Output:  &trace,
	})
	require.NoError(t, err)
	assert.Nil(t, c.S3)
	assert.Equal(t, "o3-mini", c.ModelName)
	assert.ElementsMatch(t,
		[]string{"json_spec_get_value", "json_spec_list_keys", "json_spec_query"},
		c.Tools.Names())

	result, err := Execute(context.Background(), c, cfg.Agent.Question)
	require.NoError(t, err)

	assert.Equal(t, "Binnenstad-Noord has _mean 18.73", result.Response)
	assert.Equal(t, chain.StopFinalAnswer, result.StopReason)
	assert.Equal(t, 2, result.Iterations)
	assert.Empty(t, result.DebugPath)
	assert.Contains(t, trace.String(), "json_spec_get_value")
}

func TestInitializeWithDocument_QueryToolDisabled(t *testing.T) {
	cfg := testConfig(t)
	disabled := false
	cfg.Agent.EnableQueryTool = &disabled

	c, err := InitializeWithDocument(cfg, testDocument(t), Options{Models: testModels(t, cfg, &replayProvider{})})
	require.NoError(t, err)
	assert.Equal(t, 2, c.Tools.Len())
}

func TestInitializeWithDocument_DebugFlag(t *testing.T) {
	cfg := testConfig(t)

	c, err := InitializeWithDocument(cfg, testDocument(t), Options{
		Models: testModels(t, cfg, &replayProvider{}),
		Debug:  true,
	})
	require.NoError(t, err)

	result, err := Execute(context.Background(), c, "q")
	require.NoError(t, err)
	require.NotEmpty(t, result.DebugPath)
	assert.FileExists(t, result.DebugPath)
	assert.Equal(t, cfg.Debug.LogsDir, filepath.Dir(result.DebugPath))
}

func TestInitialize_FetchesDataset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GetFeature", r.URL.Query().Get("request"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(fixture))
	}))
	defer srv.Close()

	cfg := testConfig(t)
	cfg.Dataset.URL = srv.URL

	c, err := Initialize(context.Background(), cfg, Options{Models: testModels(t, cfg, &replayProvider{})})
	require.NoError(t, err)
	assert.True(t, c.Document.HasFeatures())
	assert.Equal(t, 3, c.Document.FeatureCount())
}

func TestInitialize_FetchErrorPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := testConfig(t)
	cfg.Dataset.URL = srv.URL

	_, err := Initialize(context.Background(), cfg, Options{Models: testModels(t, cfg, &replayProvider{})})
	require.ErrorIs(t, err, ErrDatasetFetch)
	assert.Equal(t, dataset.ErrHTTPStatus, dataset.ClassifyError(err))
}

func TestResolveModel(t *testing.T) {
	cfg := testConfig(t)

	name, err := ResolveModel(cfg, "")
	require.NoError(t, err)
	assert.Equal(t, "o3-mini", name)

	// Ollama работает без ключа
	name, err = ResolveModel(cfg, "llama3")
	require.NoError(t, err)
	assert.Equal(t, "llama3", name)

	_, err = ResolveModel(cfg, "gpt-5")
	assert.Error(t, err)

	t.Setenv(config.DefaultAzureKeyEnv, "")
	_, err = ResolveModel(cfg, "o3-mini")
	assert.ErrorContains(t, err, config.DefaultAzureKeyEnv)
}

func TestComponents_Lookup(t *testing.T) {
	cfg := testConfig(t)
	c, err := InitializeWithDocument(cfg, testDocument(t), Options{Models: testModels(t, cfg, &replayProvider{})})
	require.NoError(t, err)

	got, err := c.Lookup("Binnenstad-Noord")
	require.NoError(t, err)
	assert.Equal(t, "Binnenstad-Noord: _mean = 18.73", got)

	_, err = c.Lookup("Centrum")
	assert.Error(t, err)
}

func TestComponents_Export(t *testing.T) {
	cfg := testConfig(t)
	c, err := InitializeWithDocument(cfg, testDocument(t), Options{Models: testModels(t, cfg, &replayProvider{})})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "greenery.db")
	result, err := c.Export(context.Background(), path, "sqlite")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Count)

	values, err := export.Load(context.Background(), path, export.FormatSQLite)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"Binnenstad-Noord": 18.73, "Binnenstad-Zuid": 22.25}, values)

	_, err = c.Export(context.Background(), path, "xml")
	assert.Error(t, err)
}

func TestInitializeConfig(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("GREENERY_TEST_KEY=from-dotenv\n"), 0o644))

	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
models:
  default_chat: gpt
  definitions:
    gpt:
      provider: openai
      model_name: gpt-4o-mini
      api_key: "${GREENERY_TEST_KEY}"
`), 0o644))

	t.Cleanup(func() { os.Unsetenv("GREENERY_TEST_KEY") })

	cfg, loaded, err := InitializeConfig(&DefaultConfigPathFinder{ConfigFlag: cfgPath}, envPath)
	require.NoError(t, err)
	assert.Equal(t, cfgPath, loaded)
	assert.Equal(t, "from-dotenv", cfg.Models.Definitions["gpt"].APIKey)

	_, _, err = InitializeConfig(&DefaultConfigPathFinder{ConfigFlag: filepath.Join(dir, "missing.yaml")})
	assert.Error(t, err)
}
