package llm

import (
	"context"
	"strings"
	"testing"
)

// countingEmbedder records embed calls and exposes a model identifier.
type countingEmbedder struct {
	name  string
	model string
	calls int
}

func (m *countingEmbedder) Name() string { return m.name }

func (m *countingEmbedder) EmbedModel() string { return m.model }

func (m *countingEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	m.calls++
	result := make([][]float32, len(texts))
	for i := range texts {
		result[i] = []float32{0.1, 0.2, 0.3}
	}
	return result, nil
}

func (m *countingEmbedder) EmbedSingle(_ context.Context, _ string) ([]float32, error) {
	m.calls++
	return []float32{0.1, 0.2, 0.3}, nil
}

func TestCacheKeyDistinguishesProviderAndModel(t *testing.T) {
	key := func(name, model, text string) string {
		c := NewCachedEmbeddingProvider(&countingEmbedder{name: name, model: model}, nil, nil)
		return c.cacheKey(text)
	}

	base := key("ollama", "nomic-embed-text", "what is a zero fir")

	if got := key("ollama", "nomic-embed-text", "what is a zero fir"); got != base {
		t.Errorf("identical provider/model/text must produce the same key, got %q and %q", base, got)
	}
	if got := key("ollama", "mxbai-embed-large", "what is a zero fir"); got == base {
		t.Error("a model change must change the cache key")
	}
	if got := key("openai", "nomic-embed-text", "what is a zero fir"); got == base {
		t.Error("a provider change must change the cache key")
	}
	if got := key("ollama", "nomic-embed-text", "what is an fir"); got == base {
		t.Error("a text change must change the cache key")
	}
	if !strings.HasPrefix(base, DefaultEmbeddingCacheConfig().KeyPrefix) {
		t.Errorf("key %q missing prefix", base)
	}
}

func TestCacheKeyWithoutEmbedModeler(t *testing.T) {
	// Providers without a model accessor still get provider-scoped keys.
	c := NewCachedEmbeddingProvider(&mockProvider{name: "plain"}, nil, nil)
	d := NewCachedEmbeddingProvider(&mockProvider{name: "other"}, nil, nil)

	if c.cacheKey("text") == d.cacheKey("text") {
		t.Error("provider name must scope the cache key")
	}
	if c.EmbedModel() != "" {
		t.Errorf("expected empty model, got %q", c.EmbedModel())
	}
}

func TestCachedEmbedSingleUsesLocalLayer(t *testing.T) {
	provider := &countingEmbedder{name: "ollama", model: "nomic-embed-text"}
	cached := NewCachedEmbeddingProvider(provider, nil, nil)

	if _, err := cached.EmbedSingle(context.Background(), "some question"); err != nil {
		t.Fatalf("EmbedSingle failed: %v", err)
	}
	if _, err := cached.EmbedSingle(context.Background(), "some question"); err != nil {
		t.Fatalf("EmbedSingle failed: %v", err)
	}

	if provider.calls != 1 {
		t.Errorf("expected 1 provider call, got %d", provider.calls)
	}
	if cached.EmbedModel() != "nomic-embed-text" {
		t.Errorf("unexpected model %q", cached.EmbedModel())
	}
}
