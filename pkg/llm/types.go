// Базовые типы - универсальный язык общения с моделями.
package llm

// Role — роль автора сообщения.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message — одно сообщение диалога.
//
// Для RoleAssistant может содержать ToolCalls (модель решила вызвать
// инструменты). Для RoleTool обязателен ToolCallID — ответ на конкретный вызов.
type Message struct {
	Role       Role
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
}

// ToolCall — запрос модели на вызов инструмента.
type ToolCall struct {
	ID   string
	Name string
	Args string // JSON строка аргументов, как её прислала модель
}

// HasToolCalls сообщает, запросила ли модель вызов инструментов.
func (m Message) HasToolCalls() bool {
	return len(m.ToolCalls) > 0
}

// SystemMessage, UserMessage, ToolMessage — конструкторы для читаемости в цикле агента.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

func ToolMessage(callID, content string) Message {
	return Message{Role: RoleTool, ToolCallID: callID, Content: content}
}
