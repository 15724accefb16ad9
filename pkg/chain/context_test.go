package chain

import (
	"strings"
	"sync"
	"testing"

	"github.com/ilkoid/greenery-agent/pkg/llm"
)

func TestChainContext_AppendValidation(t *testing.T) {
	c := NewChainContext(ChainInput{UserQuery: "q"})

	if err := c.AppendMessage(llm.Message{Content: "no role"}); err == nil {
		t.Error("expected error for message without role")
	}
	if err := c.AppendMessage(llm.Message{Role: llm.RoleTool, Content: "orphan"}); err == nil {
		t.Error("expected error for tool message without tool_call_id")
	}
	if err := c.AppendMessage(llm.ToolMessage("call_1", "ok")); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if got := len(c.GetMessages()); got != 1 {
		t.Errorf("messages = %d, want 1", got)
	}
}

func TestChainContext_BuildContextMessages(t *testing.T) {
	c := NewChainContext(ChainInput{UserQuery: "q"})
	_ = c.AppendMessage(llm.UserMessage("q"))

	msgs := c.BuildContextMessages("system")
	if len(msgs) != 2 {
		t.Fatalf("messages = %d, want 2", len(msgs))
	}
	if msgs[0].Role != llm.RoleSystem || msgs[0].Content != "system" {
		t.Errorf("first message = %+v, want system prompt", msgs[0])
	}

	if got := len(c.BuildContextMessages("")); got != 1 {
		t.Errorf("without prompt: messages = %d, want 1", got)
	}
}

func TestChainContext_CopiesAreIsolated(t *testing.T) {
	c := NewChainContext(ChainInput{UserQuery: "q"})
	_ = c.AppendMessage(llm.UserMessage("original"))

	msgs := c.GetMessages()
	msgs[0].Content = "changed"

	last := c.GetLastMessage()
	last.Content = "changed too"

	if c.GetLastMessage().Content != "original" {
		t.Error("ChainContext state leaked through a returned copy")
	}
}

func TestChainContext_ConcurrentAppend(t *testing.T) {
	c := NewChainContext(ChainInput{UserQuery: "q"})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.AppendMessage(llm.UserMessage("m"))
			c.IncrementIteration()
			_ = c.String()
		}()
	}
	wg.Wait()

	if got := len(c.GetMessages()); got != 50 {
		t.Errorf("messages = %d, want 50", got)
	}
	if got := c.GetCurrentIteration(); got != 50 {
		t.Errorf("iteration = %d, want 50", got)
	}
	if !strings.Contains(c.String(), "Messages: 50") {
		t.Errorf("String() = %q", c.String())
	}
}
