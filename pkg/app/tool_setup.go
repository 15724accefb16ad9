package app

import (
	"fmt"

	"github.com/ilkoid/greenery-agent/pkg/config"
	"github.com/ilkoid/greenery-agent/pkg/jsonspec"
	"github.com/ilkoid/greenery-agent/pkg/tools"
	"github.com/ilkoid/greenery-agent/pkg/tools/std"
	"github.com/ilkoid/greenery-agent/pkg/utils"
)

// SetupTools регистрирует JSON toolkit в реестре.
//
// Правило 3: все инструменты регистрируются через Registry.Register().
// json_spec_query регистрируется, если не выключен agent.enable_query_tool.
//
// Возвращает ошибку если валидация схемы какого-либо инструмента не прошла.
func SetupTools(registry *tools.Registry, spec *jsonspec.Spec, agentCfg config.AgentConfig) error {
	if registry == nil || spec == nil {
		return fmt.Errorf("registry and spec are required")
	}

	opts := std.ToolkitOptions{EnableQuery: agentCfg.QueryToolEnabled()}
	if err := std.RegisterJSONToolkit(registry, spec, opts); err != nil {
		return err
	}

	utils.Info("Tools registered",
		"count", registry.Len(),
		"max_value_length", spec.MaxValueLength())
	return nil
}
