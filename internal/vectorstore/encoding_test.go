package vectorstore

import (
	"math"
	"testing"
)

func TestEncodeDecodeEmbedding(t *testing.T) {
	original := []float32{0.1, -0.2, 0.3, 1.5, -42.25}

	blob, err := EncodeEmbedding(original)
	if err != nil {
		t.Fatalf("EncodeEmbedding() error = %v", err)
	}
	if got, want := len(blob), len(original)*4; got != want {
		t.Fatalf("blob length = %d, want %d", got, want)
	}

	decoded, err := DecodeEmbedding(blob)
	if err != nil {
		t.Fatalf("DecodeEmbedding() error = %v", err)
	}
	if len(decoded) != len(original) {
		t.Fatalf("decoded length = %d, want %d", len(decoded), len(original))
	}
	for i := range original {
		if decoded[i] != original[i] {
			t.Errorf("decoded[%d] = %v, want %v", i, decoded[i], original[i])
		}
	}
}

func TestEncodeEmbedding_Empty(t *testing.T) {
	if _, err := EncodeEmbedding(nil); err == nil {
		t.Error("EncodeEmbedding(nil) expected error, got nil")
	}
}

func TestDecodeEmbedding_Invalid(t *testing.T) {
	tests := []struct {
		name string
		blob []byte
	}{
		{name: "empty", blob: nil},
		{name: "truncated", blob: []byte{0x01, 0x02, 0x03}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeEmbedding(tt.blob); err == nil {
				t.Error("DecodeEmbedding() expected error, got nil")
			}
		})
	}
}

func TestCosineDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{
			name: "identical vectors",
			a:    []float32{1, 2, 3},
			b:    []float32{1, 2, 3},
			want: 0,
		},
		{
			name: "orthogonal vectors",
			a:    []float32{1, 0},
			b:    []float32{0, 1},
			want: 1,
		},
		{
			name: "opposite vectors",
			a:    []float32{1, 0},
			b:    []float32{-1, 0},
			want: 2,
		},
		{
			name: "scaling does not change distance",
			a:    []float32{1, 2, 3},
			b:    []float32{2, 4, 6},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CosineDistance(tt.a, tt.b)
			if err != nil {
				t.Fatalf("CosineDistance() error = %v", err)
			}
			if math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("CosineDistance() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCosineDistance_Errors(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
	}{
		{name: "dimension mismatch", a: []float32{1, 2}, b: []float32{1, 2, 3}},
		{name: "empty vectors", a: nil, b: nil},
		{name: "zero magnitude", a: []float32{0, 0}, b: []float32{1, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := CosineDistance(tt.a, tt.b); err == nil {
				t.Error("CosineDistance() expected error, got nil")
			}
		})
	}
}
