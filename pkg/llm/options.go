package llm

// GenerateOptions holds parameters for LLM generation.
// Defaults come from the model definition in config.yaml; options passed
// to Generate override them for a single call.
type GenerateOptions struct {
	// Model is the model (or Azure deployment) identifier.
	Model string

	// Temperature controls randomness. Ignored for reasoning models.
	Temperature float64

	// MaxTokens limits the response length. Sent as max_completion_tokens
	// for reasoning models.
	MaxTokens int

	// Format specifies response format (e.g., "json_object").
	Format string

	// ParallelToolCalls controls whether the model can call several tools
	// in one turn. nil = provider default.
	ParallelToolCalls *bool
}

// GenerateOption is a functional option for configuring GenerateOptions.
type GenerateOption func(*GenerateOptions)

// WithModel sets the model for generation.
func WithModel(model string) GenerateOption {
	return func(o *GenerateOptions) {
		o.Model = model
	}
}

// WithTemperature sets the temperature for generation.
func WithTemperature(temp float64) GenerateOption {
	return func(o *GenerateOptions) {
		o.Temperature = temp
	}
}

// WithMaxTokens sets the maximum tokens for generation.
func WithMaxTokens(tokens int) GenerateOption {
	return func(o *GenerateOptions) {
		o.MaxTokens = tokens
	}
}

// WithFormat sets the response format for generation.
func WithFormat(format string) GenerateOption {
	return func(o *GenerateOptions) {
		o.Format = format
	}
}

// WithParallelToolCalls toggles parallel tool calls.
func WithParallelToolCalls(enabled bool) GenerateOption {
	return func(o *GenerateOptions) {
		o.ParallelToolCalls = &enabled
	}
}

// Apply applies every GenerateOption found in opts on top of base.
// Values of other types are skipped.
func (o GenerateOptions) Apply(opts ...any) GenerateOptions {
	for _, opt := range opts {
		if fn, ok := opt.(GenerateOption); ok {
			fn(&o)
		}
	}
	return o
}
