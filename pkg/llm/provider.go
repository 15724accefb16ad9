// Интерфейс Провайдера, через который работает всё приложение.

package llm

import "context"

// Provider — абстракция над LLM API.
//
// Реализации: pkg/llm/openai (Azure OpenAI, OpenAI, Ollama).
// В тестах подменяется скриптованным провайдером.
type Provider interface {
	// Generate принимает контекст и историю сообщений.
	// Возвращает ответ модели в унифицированном формате Message.
	//
	// opts — опциональные аргументы:
	//   - []tools.ToolDefinition — определения функций для Function Calling
	//   - GenerateOption — runtime переопределения параметров
	Generate(ctx context.Context, messages []Message, opts ...any) (Message, error)
}
