package chain

import (
	"fmt"
	"time"

	"github.com/ilkoid/greenery-agent/pkg/config"
)

// DefaultMaxIterations — стандартный лимит итераций ReAct цикла.
const DefaultMaxIterations = 10

// DefaultChainTimeout — стандартный таймаут всего цикла.
const DefaultChainTimeout = 5 * time.Minute

// DefaultToolTimeout — защитный таймаут одного инструмента.
const DefaultToolTimeout = 30 * time.Second

// IterationLimitMessage возвращается вместо ответа, когда агент остановлен
// по лимиту итераций или времени.
const IterationLimitMessage = "Agent stopped due to iteration limit or time limit."

// DefaultSystemPrompt — системный промпт JSON агента.
const DefaultSystemPrompt = `You are an agent designed to interact with JSON.
Your goal is to return a final answer by interacting with the JSON.
You have access to the tools listed in the request. Only use those tools and only the information they return to construct your final answer.
Do not make up any information that is not contained in the JSON.
Your input to the tools should be in the form of data["key"][0] where data is the JSON blob you are interacting with, and the syntax used is Python.
You should only use keys that you know for a fact exist. You must validate that a key exists by seeing it previously when calling json_spec_list_keys.
If you have not seen a key in one of those responses, you cannot use it.
You should only add one key at a time to the path. You cannot add multiple keys at once.
If you encounter a "KeyError", go back to the previous key, look at the available keys, and try again.
If json_spec_query is available you may use it to filter arrays by field value instead of walking every index.
If the question does not seem to be related to the JSON, just return "I don't know" as the answer.
Always begin your interaction with json_spec_list_keys on data to see what keys exist in the JSON.
Note that sometimes the value at a given path is large. In this case, you will get an error "Value is a large dictionary, should explore its keys directly".
In this case, you should ALWAYS follow up by using json_spec_list_keys to see what keys exist at that path.
Do not simply refer the user to the JSON or a section of the JSON, as this is not a valid answer. Keep digging until you find the answer and explicitly return it.`

// ReActCycleConfig — конфигурация ReAct цикла.
type ReActCycleConfig struct {
	// SystemPrompt — системный промпт агента.
	SystemPrompt string

	// MaxIterations — лимит итераций (вызовов модели). По умолчанию: 10.
	MaxIterations int

	// Timeout — таймаут всего цикла. По умолчанию: 5 минут.
	Timeout time.Duration

	// ToolTimeout — таймаут одного инструмента. По умолчанию: 30 секунд.
	ToolTimeout time.Duration
}

// NewReActCycleConfig создаёт конфигурацию с дефолтными значениями.
func NewReActCycleConfig() ReActCycleConfig {
	return ReActCycleConfig{
		SystemPrompt:  DefaultSystemPrompt,
		MaxIterations: DefaultMaxIterations,
		Timeout:       DefaultChainTimeout,
		ToolTimeout:   DefaultToolTimeout,
	}
}

// ConfigFromAgent собирает ReActCycleConfig из секции agent в config.yaml.
//
// Rule 2: незаполненные поля берутся из дефолтов.
func ConfigFromAgent(agentCfg config.AgentConfig) ReActCycleConfig {
	agentCfg = agentCfg.GetDefaults()

	cfg := NewReActCycleConfig()
	if agentCfg.SystemPrompt != "" {
		cfg.SystemPrompt = agentCfg.SystemPrompt
	}
	cfg.MaxIterations = agentCfg.MaxIterations
	cfg.Timeout = agentCfg.Timeout
	cfg.ToolTimeout = agentCfg.ToolTimeout
	return cfg
}

// Validate проверяет конфигурацию.
func (c *ReActCycleConfig) Validate() error {
	if c.SystemPrompt == "" {
		return fmt.Errorf("system_prompt is required")
	}
	if c.MaxIterations <= 0 {
		return fmt.Errorf("max_iterations must be positive, got %d", c.MaxIterations)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}
	if c.ToolTimeout <= 0 {
		return fmt.Errorf("tool_timeout must be positive, got %v", c.ToolTimeout)
	}
	return nil
}
