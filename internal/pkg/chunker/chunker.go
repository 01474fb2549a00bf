// Package chunker splits document text into overlapping fixed-size word
// windows. Splitting is pure and deterministic so re-indexing a document
// always yields the same chunks.
package chunker

import (
	"errors"
	"strings"
)

const (
	DefaultSizeWords    = 500
	DefaultOverlapWords = 50
)

var (
	ErrInvalidSize    = errors.New("chunk size must be positive")
	ErrInvalidOverlap = errors.New("chunk overlap must be non-negative and smaller than chunk size")
)

// Split tokenizes text into words and emits windows of sizeWords words, each
// window starting overlapWords words before the previous one ended. Text with
// sizeWords or fewer words yields exactly one chunk. Empty text yields none.
func Split(text string, sizeWords, overlapWords int) ([]string, error) {
	if sizeWords <= 0 {
		return nil, ErrInvalidSize
	}
	if overlapWords < 0 || overlapWords >= sizeWords {
		return nil, ErrInvalidOverlap
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil, nil
	}

	step := sizeWords - overlapWords
	var chunks []string
	for start := 0; start < len(words); start += step {
		end := start + sizeWords
		if end > len(words) {
			end = len(words)
		}
		chunk := strings.Join(words[start:end], " ")
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(words) {
			break
		}
	}
	return chunks, nil
}
