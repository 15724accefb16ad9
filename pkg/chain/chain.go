// Package chain реализует agent executor JSON агента на Chain Pattern.
//
// Агент строится из шагов (Step): вызов модели и выполнение инструментов.
// ReActCycle повторяет их, пока модель не даст финальный ответ или не
// будет исчерпан лимит итераций.
//
// Правила из dev_manifest.md:
//   - Rule 1: Работает с Tool interface ("Raw In, String Out")
//   - Rule 2: Конфигурируется через YAML (config.AgentConfig)
//   - Rule 3: Tools вызываются через Registry
//   - Rule 4: LLM вызывается через llm.Provider
//   - Rule 5: Thread-safe через ChainContext
//   - Rule 7: Все ошибки возвращаются, нет panic
//   - Rule 10: Godoc на всех public API
package chain

import (
	"context"
	"time"

	"github.com/ilkoid/greenery-agent/pkg/llm"
)

// Chain представляет последовательность шагов для выполнения запроса.
//
// Chain иммутабелен после настройки и thread-safe для выполнения.
type Chain interface {
	Execute(ctx context.Context, input ChainInput) (ChainOutput, error)
}

// Agent — упрощённый интерфейс: вопрос на входе, ответ на выходе.
//
// Используется pkg/app и интерактивным UI.
type Agent interface {
	Run(ctx context.Context, query string) (string, error)
}

// ChainInput — входные данные для выполнения цепочки.
type ChainInput struct {
	// UserQuery — вопрос пользователя
	UserQuery string

	// Source — откуда взят документ (URL датасета), попадает в debug лог
	Source string

	// Model — алиас модели на один запуск. Пусто или неизвестный алиас =
	// модель цикла.
	Model string
}

// StopReason — почему ReAct цикл остановился.
type StopReason string

const (
	// StopFinalAnswer — модель ответила без вызова инструментов.
	StopFinalAnswer StopReason = "final_answer"

	// StopIterationLimit — исчерпан MaxIterations.
	StopIterationLimit StopReason = "iteration_limit"

	// StopTimeLimit — истёк Timeout цикла.
	StopTimeLimit StopReason = "time_limit"
)

// ChainOutput — результат выполнения цепочки.
type ChainOutput struct {
	// Result — финальный ответ агента.
	// При StopIterationLimit и StopTimeLimit это IterationLimitMessage.
	Result string

	// Iterations — количество выполненных итераций
	Iterations int

	Duration time.Duration

	// FinalState — вся история сообщений (без системного промпта)
	FinalState []llm.Message

	// DebugPath — путь к debug логу (если включен)
	DebugPath string

	StopReason StopReason

	// Signal — типизированный сигнал последнего LLM шага
	Signal ExecutionSignal
}

// Stopped возвращает true, если агент остановлен принудительно
// (лимит итераций или времени), а не дал ответ сам.
func (o ChainOutput) Stopped() bool {
	return o.StopReason == StopIterationLimit || o.StopReason == StopTimeLimit
}
