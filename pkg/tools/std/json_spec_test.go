package std

import (
	"context"
	"testing"

	"github.com/ilkoid/greenery-agent/pkg/jsonspec"
	"github.com/ilkoid/greenery-agent/pkg/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const doc = `{"features":[{"properties":{"bu_naam":"Binnenstad-Noord","_mean":18.73}}]}`

func newTestSpec(t *testing.T) *jsonspec.Spec {
	t.Helper()
	spec, err := jsonspec.New([]byte(doc), 4000)
	require.NoError(t, err)
	return spec
}

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name  string
		input string
		field string
		want  string
	}{
		{"json path", `{"path": "data[\"features\"]"}`, "path", `data["features"]`},
		{"bare path", `data["features"][0]`, "path", `data["features"][0]`},
		{"fenced json", "```json\n{\"path\": \"data\"}\n```", "path", "data"},
		{"query field", `{"query": "features.#"}`, "query", "features.#"},
		{"query sent as path", `{"path": "features.#"}`, "query", "features.#"},
		{"broken json is the path", `{"path": `, "path", `{"path":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseArgs(tt.input, tt.field))
		})
	}
}

func TestJSONTools_Execute(t *testing.T) {
	spec := newTestSpec(t)
	ctx := context.Background()

	tests := []struct {
		name string
		tool tools.Tool
		args string
		want string
	}{
		{"list root keys", NewJSONListKeysTool(spec), `{"path": "data"}`, `["features"]`},
		{"list keys of array", NewJSONListKeysTool(spec), `{"path": "data[\"features\"]"}`,
			"Value at path `data[\"features\"]` is not a dict, get the value directly."},
		{"get value", NewJSONGetValueTool(spec), `{"path": "data[\"features\"][0][\"properties\"][\"_mean\"]"}`, "18.73"},
		{"json after prose", NewJSONGetValueTool(spec), `Action Input: {"path": "data[\"features\"][0][\"properties\"][\"_mean\"]"}`, "18.73"},
		{"missing key", NewJSONGetValueTool(spec), `data["nope"]`, "KeyError: 'nope'"},
		{"out of range", NewJSONGetValueTool(spec), `data["features"][3]`, "IndexError: list index out of range"},
		{"query", NewJSONQueryTool(spec), `{"query": "features.#(properties.bu_naam==\"Binnenstad-Noord\").properties._mean"}`, "18.73"},
		{"query no match", NewJSONQueryTool(spec), `{"query": "features.#(properties.bu_naam==\"X\")"}`,
			"No value matches query `features.#(properties.bu_naam==\"X\")`"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.tool.Execute(ctx, tt.args)
			require.NoError(t, err, "lookup misses are results, not errors")
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestJSONTools_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewJSONGetValueTool(newTestSpec(t)).Execute(ctx, `data`)
	assert.Error(t, err)
}

func TestRegisterJSONToolkit(t *testing.T) {
	spec := newTestSpec(t)

	r := tools.NewRegistry()
	require.NoError(t, RegisterJSONToolkit(r, spec, ToolkitOptions{}))
	assert.Equal(t, []string{ToolGetValue, ToolListKeys}, r.Names())

	r = tools.NewRegistry()
	require.NoError(t, RegisterJSONToolkit(r, spec, ToolkitOptions{EnableQuery: true}))
	assert.Equal(t, []string{ToolGetValue, ToolListKeys, ToolQuery}, r.Names())

	// Повторная регистрация в тот же реестр
	assert.Error(t, RegisterJSONToolkit(r, spec, ToolkitOptions{}))
}
