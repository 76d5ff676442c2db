package biz

import (
	"crypto/rand"
	"fmt"
	"io"
)

// CodeAlphabet is the symbol set of download codes
const CodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// DefaultCodeLength is the length of generated codes
const DefaultCodeLength = 8

// largest multiple of len(CodeAlphabet) that fits in a byte
const codeByteLimit = 256 - 256%len(CodeAlphabet)

// CodeGenerator produces uniformly distributed codes over CodeAlphabet
type CodeGenerator struct {
	length int
	source io.Reader
}

// NewCodeGenerator returns a generator backed by crypto/rand
func NewCodeGenerator(length int) *CodeGenerator {
	if length <= 0 {
		length = DefaultCodeLength
	}
	return &CodeGenerator{length: length, source: rand.Reader}
}

// Generate returns a fresh code
func (g *CodeGenerator) Generate() (string, error) {
	out := make([]byte, 0, g.length)
	buf := make([]byte, g.length*2)
	for len(out) < g.length {
		if _, err := io.ReadFull(g.source, buf); err != nil {
			return "", fmt.Errorf("read random bytes: %w", err)
		}
		for _, b := range buf {
			// rejection sampling keeps every symbol equally likely
			if int(b) >= codeByteLimit {
				continue
			}
			out = append(out, CodeAlphabet[int(b)%len(CodeAlphabet)])
			if len(out) == g.length {
				break
			}
		}
	}
	return string(out), nil
}

// IsWellFormedCode reports whether code has the generated shape
func IsWellFormedCode(code string, length int) bool {
	if len(code) != length {
		return false
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		if !(c >= 'A' && c <= 'Z') && !(c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}
