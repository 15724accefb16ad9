// Package debug записывает трейс выполнения JSON агента.
//
// Каждый запуск сохраняется в отдельный JSON файл: вопрос, итерации
// ReAct цикла, вызовы модели, выполнения инструментов, итоговый ответ
// и причина остановки.
package debug

import "time"

// DebugLog — полный трейс одного запуска агента.
type DebugLog struct {
	// RunID — уникальный идентификатор запуска (uuid, используется в имени файла)
	RunID string `json:"run_id"`

	Timestamp time.Time `json:"timestamp"`

	// UserQuery — вопрос пользователя
	UserQuery string `json:"user_query"`

	// Dataset — источник документа, по которому работал агент
	Dataset string `json:"dataset,omitempty"`

	// Duration — общая длительность в миллисекундах
	Duration int64 `json:"duration_ms"`

	Iterations []Iteration `json:"iterations"`

	Summary Summary `json:"summary"`

	FinalResult string `json:"final_result,omitempty"`

	// StopReason — почему цикл остановился ("final_answer", "iteration_limit", "time_limit")
	StopReason string `json:"stop_reason,omitempty"`

	Error string `json:"error,omitempty"`
}

// Iteration — одна итерация ReAct цикла.
type Iteration struct {
	// Number — номер итерации (начиная с 1)
	Number int `json:"iteration"`

	Duration int64 `json:"duration_ms"`

	LLMRequest  LLMRequest  `json:"llm_request"`
	LLMResponse LLMResponse `json:"llm_response"`

	ToolsExecuted []ToolExecution `json:"tools_executed,omitempty"`

	// IsFinal — true если модель ответила без tool calls
	IsFinal bool `json:"is_final,omitempty"`

	started time.Time
}

// LLMRequest — параметры запроса к модели.
type LLMRequest struct {
	Model         string   `json:"model"`
	Temperature   float64  `json:"temperature,omitempty"`
	MaxTokens     int      `json:"max_tokens,omitempty"`
	MessagesCount int      `json:"messages_count"`
	Tools         []string `json:"tools,omitempty"`
}

// LLMResponse — ответ модели.
type LLMResponse struct {
	Content   string         `json:"content,omitempty"`
	ToolCalls []ToolCallInfo `json:"tool_calls,omitempty"`

	// Duration — длительность вызова в миллисекундах
	Duration int64 `json:"duration_ms"`

	Error string `json:"error,omitempty"`
}

// ToolCallInfo — вызов инструмента, запрошенный моделью.
type ToolCallInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Args string `json:"args"`
}

// ToolExecution — выполнение одного инструмента.
type ToolExecution struct {
	Name string `json:"name"`

	// Args пишется только при IncludeToolArgs
	Args string `json:"args,omitempty"`

	// Result пишется только при IncludeToolResults, обрезается по MaxResultSize
	Result          string `json:"result,omitempty"`
	ResultTruncated bool   `json:"result_truncated,omitempty"`

	Duration int64  `json:"duration_ms"`
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
}

// Summary — агрегированная статистика запуска.
type Summary struct {
	TotalLLMCalls      int      `json:"total_llm_calls"`
	TotalToolsExecuted int      `json:"total_tools_executed"`
	TotalLLMDuration   int64    `json:"total_llm_duration_ms"`
	TotalToolDuration  int64    `json:"total_tool_duration_ms"`
	Errors             []string `json:"errors,omitempty"`

	// VisitedTools — уникальные инструменты в порядке первого вызова
	VisitedTools []string `json:"visited_tools,omitempty"`
}
