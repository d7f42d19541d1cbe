package service

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

const codeEntropyBytes = 64

// CodeGenerator produce códigos de un solo uso imposibles de adivinar.
type CodeGenerator interface {
	Generate() (string, error)
}

type randomCodeGenerator struct {
	size int
}

func NewCodeGenerator() CodeGenerator {
	return &randomCodeGenerator{size: codeEntropyBytes}
}

func (g *randomCodeGenerator) Generate() (string, error) {
	buf := make([]byte, g.size)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// digestCode es la forma en que un código se guarda y se busca en los stores.
func digestCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}
