package extraction

import "context"

// Inference is the raw output of one vision-model call.
type Inference struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
}

// Inferer is the model capability the extractor consumes: one multimodal
// request in, text plus token usage out.
type Inferer interface {
	Infer(ctx context.Context, data []byte, mediaType, prompt string) (*Inference, error)
}
