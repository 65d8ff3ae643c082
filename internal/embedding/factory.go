package embedding

import (
	"fmt"

	"github.com/hyperjump/kioku/internal/config"
)

// ProviderType names an embedding backend.
type ProviderType string

const (
	ProviderONNX   ProviderType = "onnx"
	ProviderOllama ProviderType = "ollama"
	ProviderMock   ProviderType = "mock"
)

// NewEmbedder creates the model configured in cfg.
// Supported providers: "onnx" (default), "ollama", "mock".
func NewEmbedder(cfg config.EmbeddingConfig) (Embedder, error) {
	switch ProviderType(cfg.Provider) {
	case ProviderONNX, "":
		e, err := NewONNXEmbedder(cfg.ModelPath, cfg.Dimensions, cfg.MaxTokens)
		if err != nil {
			return nil, err
		}
		return e, nil
	case ProviderOllama:
		return NewOllamaEmbedder(OllamaConfig{
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
		}), nil
	case ProviderMock:
		return NewMockEmbedder(cfg.Dimensions), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: onnx, ollama, mock)", cfg.Provider)
	}
}
