// Package std предоставляет инструменты JSON агента.
//
// Все инструменты работают с одним jsonspec.Spec и следуют контракту
// "Raw In, String Out": промахи по пути возвращаются текстом, чтобы
// модель могла исправить запрос на следующей итерации.
package std

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ilkoid/greenery-agent/pkg/jsonspec"
	"github.com/ilkoid/greenery-agent/pkg/tools"
	"github.com/ilkoid/greenery-agent/pkg/utils"
)

// Имена инструментов JSON toolkit.
const (
	ToolListKeys = "json_spec_list_keys"
	ToolGetValue = "json_spec_get_value"
	ToolQuery    = "json_spec_query"
)

const pathHint = `The input is the path in Python subscript syntax rooted at data, e.g. data["features"][0]["properties"].`

// pathArgs — аргументы path-инструментов.
type pathArgs struct {
	Path  string `json:"path"`
	Query string `json:"query"`
}

// parseArgs извлекает аргумент из сырого ввода модели.
//
// Модели присылают {"path": "..."}, тот же JSON в markdown блоке или
// после пояснения, или просто сам путь. Всё, что не разбирается как JSON
// объект с нужным полем, считается самим путём.
func parseArgs(argsJSON, field string) string {
	raw := utils.CleanJsonBlock(argsJSON)
	if !strings.HasPrefix(raw, "{") {
		// Путь в subscript синтаксисе не содержит '{'
		obj := utils.ExtractJSON(raw)
		if obj == "" || !strings.Contains(obj, `"`+field+`"`) {
			return raw
		}
		raw = obj
	}

	var args pathArgs
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return raw
	}

	switch field {
	case "query":
		if args.Query != "" {
			return args.Query
		}
		return args.Path
	default:
		if args.Path != "" {
			return args.Path
		}
		return args.Query
	}
}

// lookupResult превращает ошибки поиска в текст для модели.
// Прочие ошибки остаются ошибками инструмента.
func lookupResult(out string, err error) (string, error) {
	if err == nil {
		return out, nil
	}

	var (
		keyErr    *jsonspec.KeyError
		indexErr  *jsonspec.IndexError
		typeErr   *jsonspec.TypeError
		notObject *jsonspec.NotObjectError
		noMatch   *jsonspec.NoMatchError
	)
	switch {
	case errors.As(err, &keyErr), errors.As(err, &indexErr), errors.As(err, &typeErr),
		errors.As(err, &notObject), errors.As(err, &noMatch):
		return err.Error(), nil
	default:
		return "", err
	}
}

func pathSchema(field, description string) tools.JSONSchema {
	return tools.JSONSchema{
		"type": "object",
		"properties": map[string]any{
			field: map[string]any{
				"type":        "string",
				"description": description,
			},
		},
		"required": []string{field},
	}
}

// --- Tool: json_spec_list_keys ---

// JSONListKeysTool перечисляет ключи объекта по пути.
type JSONListKeysTool struct {
	spec *jsonspec.Spec
}

func NewJSONListKeysTool(spec *jsonspec.Spec) *JSONListKeysTool {
	return &JSONListKeysTool{spec: spec}
}

func (t *JSONListKeysTool) Definition() tools.ToolDefinition {
	return tools.ToolDefinition{
		Name: ToolListKeys,
		Description: "Lists all keys of the object at the given path. " +
			"Only call it on a path you know exists and points to an object. " + pathHint,
		Parameters: pathSchema("path", `Path to an object, e.g. data or data["features"][0]`),
	}
}

func (t *JSONListKeysTool) Execute(ctx context.Context, argsJSON string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path := parseArgs(argsJSON, "path")
	return lookupResult(t.spec.Keys(path))
}

// --- Tool: json_spec_get_value ---

// JSONGetValueTool возвращает значение по пути.
type JSONGetValueTool struct {
	spec *jsonspec.Spec
}

func NewJSONGetValueTool(spec *jsonspec.Spec) *JSONGetValueTool {
	return &JSONGetValueTool{spec: spec}
}

func (t *JSONGetValueTool) Definition() tools.ToolDefinition {
	return tools.ToolDefinition{
		Name: ToolGetValue,
		Description: fmt.Sprintf("Returns the value at the given path as a string, cut to %d characters. "+
			"Large objects are not returned: list their keys instead. ", t.spec.MaxValueLength()) + pathHint,
		Parameters: pathSchema("path", `Path to a value, e.g. data["features"][0]["properties"]["_mean"]`),
	}
}

func (t *JSONGetValueTool) Execute(ctx context.Context, argsJSON string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path := parseArgs(argsJSON, "path")
	return lookupResult(t.spec.Value(path))
}

// --- Tool: json_spec_query ---

// JSONQueryTool выполняет gjson запрос по документу.
//
// Позволяет найти запись по значению поля, не перебирая массив по индексам.
type JSONQueryTool struct {
	spec *jsonspec.Spec
}

func NewJSONQueryTool(spec *jsonspec.Spec) *JSONQueryTool {
	return &JSONQueryTool{spec: spec}
}

func (t *JSONQueryTool) Definition() tools.ToolDefinition {
	return tools.ToolDefinition{
		Name: ToolQuery,
		Description: "Runs a GJSON path query against the whole document and returns the match. " +
			`Dot-separated keys, # for array length, #(field=="value") for the first match, ` +
			`#(field=="value")# for all matches. Example: features.#(properties.bu_naam=="Centrum").properties`,
		Parameters: pathSchema("query", "GJSON path query, without a leading data prefix"),
	}
}

func (t *JSONQueryTool) Execute(ctx context.Context, argsJSON string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	query := parseArgs(argsJSON, "query")
	return lookupResult(t.spec.Query(query))
}

// ToolkitOptions настраивает набор JSON инструментов.
type ToolkitOptions struct {
	// EnableQuery регистрирует json_spec_query.
	EnableQuery bool
}

// RegisterJSONToolkit регистрирует JSON инструменты в реестре.
//
// Rule 3: все инструменты регистрируются через Registry.Register().
func RegisterJSONToolkit(registry *tools.Registry, spec *jsonspec.Spec, opts ToolkitOptions) error {
	toolset := []tools.Tool{
		NewJSONListKeysTool(spec),
		NewJSONGetValueTool(spec),
	}
	if opts.EnableQuery {
		toolset = append(toolset, NewJSONQueryTool(spec))
	}

	for _, tool := range toolset {
		if err := registry.Register(tool); err != nil {
			return fmt.Errorf("failed to register tool '%s': %w", tool.Definition().Name, err)
		}
	}

	utils.Info("JSON toolkit registered", "tools", registry.Names())
	return nil
}
