package chain

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ilkoid/greenery-agent/pkg/llm"
)

// ChainContext содержит состояние одного выполнения цепочки.
//
// Thread-safe через sync.RWMutex (Rule 5).
// Все изменения состояния проходят через методы этого типа.
type ChainContext struct {
	mu sync.RWMutex

	// Input неизменяем после создания
	Input *ChainInput

	currentIteration int
	messages         []llm.Message

	// Фактическая модель последнего LLM вызова
	actualModel string
}

// NewChainContext создаёт контекст выполнения.
func NewChainContext(input ChainInput) *ChainContext {
	return &ChainContext{
		Input:    &input,
		messages: make([]llm.Message, 0, 10),
	}
}

// GetCurrentIteration возвращает номер текущей итерации (с 1).
func (c *ChainContext) GetCurrentIteration() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.currentIteration
}

// IncrementIteration увеличивает счётчик итераций и возвращает новое значение.
func (c *ChainContext) IncrementIteration() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentIteration++
	return c.currentIteration
}

// GetMessages возвращает копию истории.
func (c *ChainContext) GetMessages() []llm.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]llm.Message, len(c.messages))
	copy(result, c.messages)
	return result
}

// GetLastMessage возвращает копию последнего сообщения или nil.
func (c *ChainContext) GetLastMessage() *llm.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.messages) == 0 {
		return nil
	}
	msg := c.messages[len(c.messages)-1]
	return &msg
}

// AppendMessage добавляет сообщение в историю.
//
// Сообщение без роли и tool сообщение без ToolCallID отклоняются:
// провайдер не примет такую историю.
func (c *ChainContext) AppendMessage(msg llm.Message) error {
	if msg.Role == "" {
		return fmt.Errorf("message role is empty")
	}
	if msg.Role == llm.RoleTool && msg.ToolCallID == "" {
		return fmt.Errorf("tool message without tool_call_id")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msg)
	return nil
}

// GetActualModel возвращает модель последнего LLM вызова.
func (c *ChainContext) GetActualModel() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.actualModel
}

// SetActualModel фиксирует модель, которая реально обработала вызов.
func (c *ChainContext) SetActualModel(model string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.actualModel = model
}

// BuildContextMessages формирует сообщения для модели:
// системный промпт + вся история.
func (c *ChainContext) BuildContextMessages(systemPrompt string) []llm.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()

	messages := make([]llm.Message, 0, len(c.messages)+1)
	if systemPrompt != "" {
		messages = append(messages, llm.SystemMessage(systemPrompt))
	}
	return append(messages, c.messages...)
}

// String возвращает строковое представление контекста (для дебага).
func (c *ChainContext) String() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var sb strings.Builder
	sb.WriteString("ChainContext{")
	sb.WriteString(fmt.Sprintf("Iteration: %d, ", c.currentIteration))
	sb.WriteString(fmt.Sprintf("Messages: %d", len(c.messages)))
	if c.actualModel != "" {
		sb.WriteString(fmt.Sprintf(", Model: %s", c.actualModel))
	}
	sb.WriteString("}")
	return sb.String()
}
