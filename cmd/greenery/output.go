package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ilkoid/greenery-agent/pkg/app"
)

// printHuman выводит ответ агента; служебные строки уходят в stderr.
func printHuman(result *app.ExecutionResult) {
	fmt.Println(result.Response)

	if result.DebugPath != "" {
		fmt.Fprintf(os.Stderr, "Debug log: %s\n", result.DebugPath)
	}
}

// printJSON выводит результат в JSON формате.
func printJSON(question string, result *app.ExecutionResult) error {
	out := struct {
		Query      string `json:"query"`
		Result     string `json:"result"`
		StopReason string `json:"stop_reason"`
		Iterations int    `json:"iterations"`
		DurationMs int64  `json:"duration_ms"`
		DebugLog   string `json:"debug_log,omitempty"`
	}{
		Query:      question,
		Result:     result.Response,
		StopReason: string(result.StopReason),
		Iterations: result.Iterations,
		DurationMs: result.Duration.Milliseconds(),
		DebugLog:   result.DebugPath,
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
