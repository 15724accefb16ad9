package chain

import (
	"context"
	"fmt"
	"time"

	"github.com/ilkoid/greenery-agent/pkg/config"
	"github.com/ilkoid/greenery-agent/pkg/debug"
	"github.com/ilkoid/greenery-agent/pkg/llm"
	"github.com/ilkoid/greenery-agent/pkg/tools"
	"github.com/ilkoid/greenery-agent/pkg/utils"
)

// uploadTimeout — лимит на загрузку трейса в S3 после завершения запуска.
const uploadTimeout = 30 * time.Second

// ChainDebugRecorder — обёртка над debug.Recorder для ReAct цикла.
//
// Реализует ExecutionObserver: старт, итерации и финализация трейса
// приходят из executor. LLM и tool шаги пишут свои записи напрямую.
// Нулевое значение и nil безопасны: все методы становятся no-op.
type ChainDebugRecorder struct {
	recorder *debug.Recorder
	enabled  bool

	startTime time.Time
	lastPath  string
}

// NewChainDebugRecorder создаёт recorder из секции debug в config.yaml.
//
// uploader опционален (nil = без загрузки).
func NewChainDebugRecorder(cfg config.DebugConfig, uploader debug.Uploader) (*ChainDebugRecorder, error) {
	if !cfg.Enabled {
		return &ChainDebugRecorder{enabled: false}, nil
	}

	recorderCfg := debug.RecorderConfig{
		LogsDir:            cfg.LogsDir,
		IncludeToolArgs:    cfg.IncludeToolArgs,
		IncludeToolResults: cfg.IncludeToolResults,
		MaxResultSize:      cfg.MaxResultSize,
	}
	if cfg.UploadToS3 && uploader != nil {
		recorderCfg.Uploader = uploader
	}

	recorder, err := debug.NewRecorder(recorderCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create debug recorder: %w", err)
	}

	return &ChainDebugRecorder{
		recorder: recorder,
		enabled:  true,
	}, nil
}

// Enabled возвращает true если debug логирование включено.
func (r *ChainDebugRecorder) Enabled() bool {
	return r != nil && r.enabled
}

// OnStart начинает запись нового запуска.
func (r *ChainDebugRecorder) OnStart(ctx context.Context, exec *ReActExecution) {
	if !r.Enabled() {
		return
	}
	r.startTime = time.Now()
	r.lastPath = ""
	input := exec.chainCtx.Input
	r.recorder.Start(input.UserQuery, input.Source)
}

// OnIterationStart начинает запись итерации.
func (r *ChainDebugRecorder) OnIterationStart(iteration int) {
	if !r.Enabled() {
		return
	}
	r.recorder.StartIteration(iteration)
}

// OnIterationEnd закрывает итерацию.
func (r *ChainDebugRecorder) OnIterationEnd(iteration int) {
	if !r.Enabled() {
		return
	}
	r.recorder.EndIteration()
}

// OnFinish сохраняет трейс и, если настроено, загружает его в S3.
//
// Ошибки записи не ломают ответ агента: они только логируются.
func (r *ChainDebugRecorder) OnFinish(result ChainOutput, err error) {
	if !r.Enabled() {
		return
	}

	if err != nil {
		r.recorder.RecordError(err)
	}
	if result.StopReason != "" {
		r.recorder.SetStopReason(string(result.StopReason))
	}

	path, ferr := r.recorder.Finalize(result.Result, time.Since(r.startTime))
	if ferr != nil {
		utils.Error("Failed to save debug log", "error", ferr)
		return
	}
	r.lastPath = path
	utils.Info("Debug log saved", "path", path)

	ctx, cancel := context.WithTimeout(context.Background(), uploadTimeout)
	defer cancel()
	key, uerr := r.recorder.Upload(ctx)
	if uerr != nil {
		utils.Error("Failed to upload debug log", "error", uerr)
		return
	}
	if key != "" {
		utils.Info("Debug log uploaded", "key", key)
	}
}

// RecordLLMRequest записывает параметры запроса к модели.
func (r *ChainDebugRecorder) RecordLLMRequest(model string, opts llm.GenerateOptions, messagesCount int, toolDefs []tools.ToolDefinition) {
	if !r.Enabled() {
		return
	}

	names := make([]string, len(toolDefs))
	for i, td := range toolDefs {
		names[i] = td.Name
	}

	r.recorder.RecordLLMRequest(debug.LLMRequest{
		Model:         model,
		Temperature:   opts.Temperature,
		MaxTokens:     opts.MaxTokens,
		MessagesCount: messagesCount,
		Tools:         names,
	})
}

// RecordLLMResponse записывает ответ модели (или ошибку вызова).
func (r *ChainDebugRecorder) RecordLLMResponse(response llm.Message, duration time.Duration, callErr error) {
	if !r.Enabled() {
		return
	}

	toolCalls := make([]debug.ToolCallInfo, len(response.ToolCalls))
	for i, tc := range response.ToolCalls {
		toolCalls[i] = debug.ToolCallInfo{ID: tc.ID, Name: tc.Name, Args: tc.Args}
	}

	resp := debug.LLMResponse{
		Content:   response.Content,
		ToolCalls: toolCalls,
		Duration:  duration.Milliseconds(),
	}
	if callErr != nil {
		resp.Error = callErr.Error()
	}
	r.recorder.RecordLLMResponse(resp)
}

// RecordToolExecution записывает выполнение инструмента.
func (r *ChainDebugRecorder) RecordToolExecution(result ToolResult) {
	if !r.Enabled() {
		return
	}

	exec := debug.ToolExecution{
		Name:     result.Name,
		Args:     result.Args,
		Result:   result.Result,
		Duration: result.Duration.Milliseconds(),
		Success:  result.Success,
	}
	if result.Error != nil {
		exec.Error = result.Error.Error()
	}
	r.recorder.RecordToolExecution(exec)
}

// GetLogPath возвращает путь к последнему сохранённому логу.
func (r *ChainDebugRecorder) GetLogPath() string {
	if !r.Enabled() {
		return ""
	}
	return r.lastPath
}

// GetRunID возвращает ID текущего запуска.
func (r *ChainDebugRecorder) GetRunID() string {
	if !r.Enabled() {
		return ""
	}
	return r.recorder.GetRunID()
}

var _ ExecutionObserver = (*ChainDebugRecorder)(nil)
