package debug

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Uploader — приёмник готового трейса (например, S3).
//
// Реализуется s3storage.Client.
type Uploader interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
}

// Recorder накапливает трейс выполнения и сохраняет его в JSON файл.
//
// Потокобезопасен.
type Recorder struct {
	mu sync.Mutex

	config RecorderConfig

	log DebugLog

	currentIteration *Iteration

	// visitedTools — порядок первого вызова + множество для проверки
	visitedTools []string
	visitedSet   map[string]struct{}

	errors []string
}

// RecorderConfig — конфигурация Recorder.
type RecorderConfig struct {
	// LogsDir — директория для JSON файлов ("" = текущая)
	LogsDir string

	IncludeToolArgs    bool
	IncludeToolResults bool

	// MaxResultSize — лимит результата инструмента в байтах (0 = без лимита)
	MaxResultSize int

	// Uploader — опционально, копия трейса отправляется после сохранения
	Uploader Uploader

	// UploadPrefix — префикс ключа при загрузке ("debug/" по умолчанию)
	UploadPrefix string
}

// NewRecorder создаёт Recorder. Директория LogsDir создаётся при необходимости.
func NewRecorder(cfg RecorderConfig) (*Recorder, error) {
	if cfg.LogsDir != "" {
		if err := os.MkdirAll(cfg.LogsDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create logs directory: %w", err)
		}
	}
	if cfg.UploadPrefix == "" {
		cfg.UploadPrefix = "debug/"
	}

	return &Recorder{
		config: cfg,
		log: DebugLog{
			RunID:     uuid.NewString(),
			Timestamp: time.Now(),
		},
		visitedSet: make(map[string]struct{}),
	}, nil
}

// Start начинает запись запуска.
//
// Повторный Start сбрасывает накопленное и выдаёт новый RunID,
// поэтому один Recorder можно использовать для серии вопросов.
func (r *Recorder) Start(userQuery, dataset string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.log = DebugLog{
		RunID:     uuid.NewString(),
		Timestamp: time.Now(),
		UserQuery: userQuery,
		Dataset:   dataset,
	}
	r.currentIteration = nil
	r.visitedTools = nil
	r.visitedSet = make(map[string]struct{})
	r.errors = nil
}

// StartIteration начинает новую итерацию.
func (r *Recorder) StartIteration(num int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.currentIteration = &Iteration{
		Number:  num,
		started: time.Now(),
	}
}

// RecordLLMRequest записывает параметры запроса к модели.
func (r *Recorder) RecordLLMRequest(req LLMRequest) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.currentIteration != nil {
		r.currentIteration.LLMRequest = req
	}
}

// RecordLLMResponse записывает ответ модели.
func (r *Recorder) RecordLLMResponse(resp LLMResponse) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.currentIteration == nil {
		return
	}
	r.currentIteration.LLMResponse = resp
	r.currentIteration.IsFinal = resp.Error == "" && len(resp.ToolCalls) == 0

	if resp.Error != "" {
		r.errors = append(r.errors, fmt.Sprintf("LLM error: %s", resp.Error))
	}
}

// RecordToolExecution записывает выполнение инструмента.
func (r *Recorder) RecordToolExecution(exec ToolExecution) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.currentIteration == nil {
		return
	}

	if !r.config.IncludeToolArgs {
		exec.Args = ""
	}
	if !r.config.IncludeToolResults {
		exec.Result = ""
	} else if r.config.MaxResultSize > 0 && len(exec.Result) > r.config.MaxResultSize {
		exec.Result = exec.Result[:r.config.MaxResultSize] + "... (truncated)"
		exec.ResultTruncated = true
	}

	r.currentIteration.ToolsExecuted = append(r.currentIteration.ToolsExecuted, exec)

	if _, seen := r.visitedSet[exec.Name]; !seen {
		r.visitedSet[exec.Name] = struct{}{}
		r.visitedTools = append(r.visitedTools, exec.Name)
	}

	if !exec.Success && exec.Error != "" {
		r.errors = append(r.errors, fmt.Sprintf("Tool %s: %s", exec.Name, exec.Error))
	}
}

// EndIteration закрывает текущую итерацию.
func (r *Recorder) EndIteration() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closeIteration()
}

func (r *Recorder) closeIteration() {
	if r.currentIteration == nil {
		return
	}
	r.currentIteration.Duration = time.Since(r.currentIteration.started).Milliseconds()
	r.log.Iterations = append(r.log.Iterations, *r.currentIteration)
	r.currentIteration = nil
}

// RecordError фиксирует ошибку, оборвавшую запуск.
func (r *Recorder) RecordError(err error) {
	if err == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.log.Error = err.Error()
	r.errors = append(r.errors, err.Error())
}

// SetStopReason фиксирует причину остановки цикла.
func (r *Recorder) SetStopReason(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.log.StopReason = reason
}

// Finalize завершает запись и сохраняет JSON файл.
//
// Незакрытая итерация (обрыв по ошибке) тоже попадает в лог.
// Возвращает путь к файлу.
func (r *Recorder) Finalize(finalResult string, duration time.Duration) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closeIteration()

	r.log.FinalResult = finalResult
	r.log.Duration = duration.Milliseconds()
	r.buildSummary()

	data, err := json.MarshalIndent(r.log, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal debug log: %w", err)
	}

	filePath := r.filePath()
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write debug log: %w", err)
	}

	return filePath, nil
}

// Upload отправляет сохранённый трейс через Uploader.
//
// Без Uploader ничего не делает. Возвращает ключ объекта.
func (r *Recorder) Upload(ctx context.Context) (string, error) {
	r.mu.Lock()
	uploader := r.config.Uploader
	key := r.config.UploadPrefix + r.log.RunID + ".json"
	filePath := r.filePath()
	r.mu.Unlock()

	if uploader == nil {
		return "", nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read debug log: %w", err)
	}
	if err := uploader.Upload(ctx, key, data, "application/json"); err != nil {
		return "", fmt.Errorf("failed to upload debug log: %w", err)
	}
	return key, nil
}

func (r *Recorder) buildSummary() {
	summary := Summary{
		Errors:       r.errors,
		VisitedTools: r.visitedTools,
	}

	for _, iter := range r.log.Iterations {
		summary.TotalLLMCalls++
		summary.TotalLLMDuration += iter.LLMResponse.Duration

		for _, tool := range iter.ToolsExecuted {
			summary.TotalToolsExecuted++
			summary.TotalToolDuration += tool.Duration
		}
	}

	r.log.Summary = summary
}

func (r *Recorder) filePath() string {
	if r.config.LogsDir != "" {
		return filepath.Join(r.config.LogsDir, r.log.RunID+".json")
	}
	return r.log.RunID + ".json"
}

// GetRunID возвращает идентификатор текущего запуска.
func (r *Recorder) GetRunID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.log.RunID
}

// LogPath возвращает путь, по которому будет (или был) сохранён трейс.
func (r *Recorder) LogPath() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filePath()
}
