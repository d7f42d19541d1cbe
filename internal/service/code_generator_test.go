package service

import (
	"encoding/hex"
	"testing"
)

func TestCodeGeneratorUnique(t *testing.T) {
	gen := NewCodeGenerator()
	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		code, err := gen.Generate()
		if err != nil {
			t.Fatalf("generate failed: %v", err)
		}
		if _, dup := seen[code]; dup {
			t.Fatalf("duplicate code after %d samples", i)
		}
		seen[code] = struct{}{}
	}
}

func TestCodeGeneratorFormat(t *testing.T) {
	code, err := NewCodeGenerator().Generate()
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	raw, err := hex.DecodeString(code)
	if err != nil {
		t.Fatalf("expected hex code, got %v", err)
	}
	if len(raw) != codeEntropyBytes {
		t.Fatalf("expected %d bytes of entropy, got %d", codeEntropyBytes, len(raw))
	}
}

func TestDigestCode(t *testing.T) {
	if digestCode("abc") != digestCode("abc") {
		t.Fatalf("expected digest to be deterministic")
	}
	if digestCode("abc") == digestCode("abd") {
		t.Fatalf("expected different codes to differ")
	}
	if len(digestCode("abc")) != 64 {
		t.Fatalf("expected sha256 hex digest")
	}
}
