package embed

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"

	"github.com/quarrydocs/quarry/internal/config"
	"github.com/quarrydocs/quarry/internal/log"
)

// mockEmbedder implements ai.Embedder for testing.
type mockEmbedder struct {
	dimension  int
	embedErr   error     // error to return
	vector     []float32 // fixed vector to return for every input
	dropLast   bool      // return one fewer embedding than inputs
	callCount  int
	lastInputs []string
}

func (m *mockEmbedder) Name() string { return "mock-embedder" }

func (m *mockEmbedder) Register(r api.Registry) {
	// No-op for testing
}

func (m *mockEmbedder) Embed(ctx context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	m.callCount++
	m.lastInputs = m.lastInputs[:0]
	for _, doc := range req.Input {
		if len(doc.Content) > 0 {
			m.lastInputs = append(m.lastInputs, doc.Content[0].Text)
		}
	}

	if m.embedErr != nil {
		return nil, m.embedErr
	}

	n := len(req.Input)
	if m.dropLast && n > 0 {
		n--
	}

	resp := &ai.EmbedResponse{}
	for i := 0; i < n; i++ {
		vec := m.vector
		if vec == nil {
			vec = make([]float32, m.dimension)
			vec[i%m.dimension] = 1
		}
		resp.Embeddings = append(resp.Embeddings, &ai.Embedding{Embedding: vec})
	}
	return resp, nil
}

func testConfig(dimension int, normalize bool) *config.Config {
	cfg := config.Default("/tmp/quarry-test")
	cfg.Embedding.EmbeddingDimension = dimension
	cfg.Embedding.NormalizeEmbeddings = normalize
	return cfg
}

func TestNewEncoder_Validation(t *testing.T) {
	if _, err := NewEncoder(nil, testConfig(4, false), log.NewNop()); err == nil {
		t.Error("NewEncoder(nil embedder) expected error, got nil")
	}
	if _, err := NewEncoder(&mockEmbedder{dimension: 4}, nil, log.NewNop()); err == nil {
		t.Error("NewEncoder(nil config) expected error, got nil")
	}
}

func TestEncode_PreservesOrderAndDimension(t *testing.T) {
	mock := &mockEmbedder{dimension: 4}
	enc, err := NewEncoder(mock, testConfig(4, false), log.NewNop())
	if err != nil {
		t.Fatalf("NewEncoder() error = %v", err)
	}

	texts := []string{"first", "second", "third"}
	vecs, err := enc.Encode(context.Background(), texts)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	if len(vecs) != len(texts) {
		t.Fatalf("Encode() returned %d vectors, want %d", len(vecs), len(texts))
	}
	for i, vec := range vecs {
		if len(vec) != 4 {
			t.Errorf("vector %d has dimension %d, want 4", i, len(vec))
		}
	}
	if mock.callCount != 1 {
		t.Errorf("embedder called %d times, want 1 batch call", mock.callCount)
	}
	for i, text := range texts {
		if mock.lastInputs[i] != text {
			t.Errorf("input %d = %q, want %q", i, mock.lastInputs[i], text)
		}
	}
}

func TestEncode_EmptyInput(t *testing.T) {
	enc, err := NewEncoder(&mockEmbedder{dimension: 4}, testConfig(4, false), log.NewNop())
	if err != nil {
		t.Fatalf("NewEncoder() error = %v", err)
	}
	if _, err := enc.Encode(context.Background(), nil); err == nil {
		t.Error("Encode(nil) expected error, got nil")
	}
}

func TestEncode_PropagatesEmbedderError(t *testing.T) {
	wantErr := errors.New("provider unavailable")
	enc, err := NewEncoder(&mockEmbedder{embedErr: wantErr}, testConfig(4, false), log.NewNop())
	if err != nil {
		t.Fatalf("NewEncoder() error = %v", err)
	}

	if _, err := enc.Encode(context.Background(), []string{"text"}); !errors.Is(err, wantErr) {
		t.Errorf("Encode() error = %v, want wrapped %v", err, wantErr)
	}
}

func TestEncode_RejectsWrongDimension(t *testing.T) {
	mock := &mockEmbedder{vector: []float32{1, 2}} // dimension 2, config wants 4
	enc, err := NewEncoder(mock, testConfig(4, false), log.NewNop())
	if err != nil {
		t.Fatalf("NewEncoder() error = %v", err)
	}

	if _, err := enc.Encode(context.Background(), []string{"text"}); err == nil {
		t.Error("Encode() expected dimension mismatch error, got nil")
	}
}

func TestEncode_RejectsMissingVectors(t *testing.T) {
	mock := &mockEmbedder{dimension: 4, dropLast: true}
	enc, err := NewEncoder(mock, testConfig(4, false), log.NewNop())
	if err != nil {
		t.Fatalf("NewEncoder() error = %v", err)
	}

	if _, err := enc.Encode(context.Background(), []string{"a", "b"}); err == nil {
		t.Error("Encode() expected count mismatch error, got nil")
	}
}

func TestEncode_Normalizes(t *testing.T) {
	mock := &mockEmbedder{vector: []float32{3, 4, 0, 0}}
	enc, err := NewEncoder(mock, testConfig(4, true), log.NewNop())
	if err != nil {
		t.Fatalf("NewEncoder() error = %v", err)
	}

	vecs, err := enc.Encode(context.Background(), []string{"text"})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	var sum float64
	for _, v := range vecs[0] {
		sum += float64(v) * float64(v)
	}
	if math.Abs(math.Sqrt(sum)-1) > 1e-6 {
		t.Errorf("normalized vector magnitude = %v, want 1", math.Sqrt(sum))
	}
}

func TestEncodeOne(t *testing.T) {
	enc, err := NewEncoder(&mockEmbedder{dimension: 4}, testConfig(4, false), log.NewNop())
	if err != nil {
		t.Fatalf("NewEncoder() error = %v", err)
	}

	vec, err := enc.EncodeOne(context.Background(), "single text")
	if err != nil {
		t.Fatalf("EncodeOne() error = %v", err)
	}
	if len(vec) != 4 {
		t.Errorf("EncodeOne() dimension = %d, want 4", len(vec))
	}
}
