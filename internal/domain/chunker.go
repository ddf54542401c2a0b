package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// ChunkerVersion identifies the chunking algorithm a collection was built
// with, so future upgrades can tell stale collections apart.
type ChunkerVersion string

const (
	// ChunkerVersionV1 is the initial sliding-window chunker with a fixed
	// target size and fixed overlap between consecutive chunks.
	ChunkerVersionV1 ChunkerVersion = "window-v1"
)

const (
	// DefaultChunkSize is the target chunk length in runes.
	DefaultChunkSize = 800
	// DefaultChunkOverlap is the number of trailing runes each chunk shares
	// with its successor.
	DefaultChunkOverlap = 100
)

// Chunk is a contiguous span of document text. Chunks are immutable once
// created; Ordinal preserves original document order starting at 0.
type Chunk struct {
	Ordinal int    // Sequence number (0-indexed)
	Content string // The actual text content
	Hash    string // Stable hash of the content (SHA-256)
}

// Chunker defines the interface for splitting text into chunks.
type Chunker interface {
	Chunk(body string) ([]Chunk, error)
	Version() ChunkerVersion
}

type windowChunker struct {
	size    int
	overlap int
}

// NewChunker creates a sliding-window chunker. Non-positive size or overlap
// fall back to the defaults; overlap is clamped below size so every chunk
// makes forward progress.
func NewChunker(size, overlap int) Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = DefaultChunkOverlap
	}
	if overlap >= size {
		overlap = size / 4
	}
	return &windowChunker{size: size, overlap: overlap}
}

func (c *windowChunker) Version() ChunkerVersion {
	return ChunkerVersionV1
}

// Chunk splits the body into overlapping windows of at most c.size runes.
// Consecutive chunks share c.overlap runes. Empty input (after trimming)
// returns ErrEmptyDocument.
func (c *windowChunker) Chunk(body string) ([]Chunk, error) {
	normalized := strings.ReplaceAll(body, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")
	normalized = strings.TrimSpace(normalized)
	if normalized == "" {
		return nil, ErrEmptyDocument
	}

	runes := []rune(normalized)
	step := c.size - c.overlap

	var chunks []Chunk
	for start := 0; start < len(runes); start += step {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}

		content := strings.TrimSpace(string(runes[start:end]))
		if content != "" {
			hashBytes := sha256.Sum256([]byte(content))
			chunks = append(chunks, Chunk{
				Ordinal: len(chunks),
				Content: content,
				Hash:    hex.EncodeToString(hashBytes[:]),
			})
		}

		if end == len(runes) {
			break
		}
	}

	return chunks, nil
}
