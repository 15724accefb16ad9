package debug

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUploader struct {
	key         string
	data        []byte
	contentType string
	err         error
}

func (f *fakeUploader) Upload(_ context.Context, key string, data []byte, contentType string) error {
	f.key, f.data, f.contentType = key, data, contentType
	return f.err
}

func readLog(t *testing.T, path string) DebugLog {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var log DebugLog
	require.NoError(t, json.Unmarshal(data, &log))
	return log
}

func TestRecorder_FullRun(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "debug_logs")
	r, err := NewRecorder(RecorderConfig{
		LogsDir:            dir,
		IncludeToolArgs:    true,
		IncludeToolResults: true,
		MaxResultSize:      5,
	})
	require.NoError(t, err)

	r.Start("What is _mean?", "https://example.test/ows")
	_, err = uuid.Parse(r.GetRunID())
	require.NoError(t, err, "run id is a uuid")

	r.StartIteration(1)
	r.RecordLLMRequest(LLMRequest{Model: "o3-mini", MessagesCount: 2, Tools: []string{"json_spec_list_keys"}})
	r.RecordLLMResponse(LLMResponse{ToolCalls: []ToolCallInfo{{ID: "c1", Name: "json_spec_list_keys", Args: `{"path":"data"}`}}, Duration: 10})
	r.RecordToolExecution(ToolExecution{Name: "json_spec_list_keys", Args: `{"path":"data"}`, Result: `["type", "features"]`, Duration: 1, Success: true})
	r.EndIteration()

	r.StartIteration(2)
	r.RecordLLMResponse(LLMResponse{Content: "18.73", Duration: 20})
	r.EndIteration()
	r.SetStopReason("final_answer")

	path, err := r.Finalize("18.73", time.Second)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, r.GetRunID()+".json"), path)
	assert.Equal(t, path, r.LogPath())

	log := readLog(t, path)
	assert.Equal(t, "What is _mean?", log.UserQuery)
	assert.Equal(t, "https://example.test/ows", log.Dataset)
	assert.Equal(t, "18.73", log.FinalResult)
	assert.Equal(t, "final_answer", log.StopReason)
	assert.Equal(t, int64(1000), log.Duration)
	require.Len(t, log.Iterations, 2)
	assert.False(t, log.Iterations[0].IsFinal)
	assert.True(t, log.Iterations[1].IsFinal)

	tool := log.Iterations[0].ToolsExecuted[0]
	assert.Equal(t, `["typ... (truncated)`, tool.Result)
	assert.True(t, tool.ResultTruncated)

	assert.Equal(t, 2, log.Summary.TotalLLMCalls)
	assert.Equal(t, 1, log.Summary.TotalToolsExecuted)
	assert.Equal(t, int64(30), log.Summary.TotalLLMDuration)
	assert.Equal(t, []string{"json_spec_list_keys"}, log.Summary.VisitedTools)
}

func TestRecorder_ExcludesArgsAndResults(t *testing.T) {
	r, err := NewRecorder(RecorderConfig{LogsDir: t.TempDir()})
	require.NoError(t, err)

	r.Start("q", "")
	r.StartIteration(1)
	r.RecordToolExecution(ToolExecution{Name: "t", Args: "a", Result: "r", Success: false, Error: "boom"})

	// Итерация не закрыта: Finalize закрывает её сам
	r.RecordError(errors.New("model failed"))
	path, err := r.Finalize("", 0)
	require.NoError(t, err)

	log := readLog(t, path)
	require.Len(t, log.Iterations, 1)
	tool := log.Iterations[0].ToolsExecuted[0]
	assert.Empty(t, tool.Args)
	assert.Empty(t, tool.Result)
	assert.Equal(t, "model failed", log.Error)
	assert.Equal(t, []string{"Tool t: boom", "model failed"}, log.Summary.Errors)
}

func TestRecorder_StartResetsRun(t *testing.T) {
	r, err := NewRecorder(RecorderConfig{LogsDir: t.TempDir()})
	require.NoError(t, err)

	r.Start("first", "")
	first := r.GetRunID()
	r.StartIteration(1)
	r.EndIteration()

	r.Start("second", "")
	assert.NotEqual(t, first, r.GetRunID())

	path, err := r.Finalize("", 0)
	require.NoError(t, err)
	log := readLog(t, path)
	assert.Equal(t, "second", log.UserQuery)
	assert.Empty(t, log.Iterations)
}

func TestRecorder_Upload(t *testing.T) {
	up := &fakeUploader{}
	r, err := NewRecorder(RecorderConfig{LogsDir: t.TempDir(), Uploader: up})
	require.NoError(t, err)

	r.Start("q", "")
	_, err = r.Finalize("answer", 0)
	require.NoError(t, err)

	key, err := r.Upload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "debug/"+r.GetRunID()+".json", key)
	assert.Equal(t, key, up.key)
	assert.Equal(t, "application/json", up.contentType)
	assert.Contains(t, string(up.data), `"final_result": "answer"`)

	up.err = errors.New("denied")
	_, err = r.Upload(context.Background())
	assert.ErrorContains(t, err, "denied")
}

func TestRecorder_UploadWithoutUploader(t *testing.T) {
	r, err := NewRecorder(RecorderConfig{LogsDir: t.TempDir()})
	require.NoError(t, err)

	key, err := r.Upload(context.Background())
	require.NoError(t, err)
	assert.Empty(t, key)
}
