// Package textsplit chunks document text into overlapping segments for
// embedding and retrieval. Splitting prefers paragraph breaks, then line
// breaks, then sentence ends, then spaces, and only slices mid-word when a
// single word exceeds the chunk size.
package textsplit

import "strings"

// SizeClass selects a chunk length / overlap pair (in characters).
type SizeClass string

const (
	SizeSmall  SizeClass = "small"  // 500 / 50
	SizeMedium SizeClass = "medium" // 1000 / 100
	SizeLarge  SizeClass = "large"  // 1500 / 150
)

var sizeTable = map[SizeClass]struct{ size, overlap int }{
	SizeSmall:  {500, 50},
	SizeMedium: {1000, 100},
	SizeLarge:  {1500, 150},
}

var defaultSeparators = []string{"\n\n", "\n", ". ", "? ", "! ", " ", ""}

type Splitter struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
}

// New returns a splitter for the given size class. Unknown classes fall back
// to medium.
func New(class SizeClass) *Splitter {
	p, ok := sizeTable[class]
	if !ok {
		p = sizeTable[SizeMedium]
	}
	return &Splitter{
		chunkSize:    p.size,
		chunkOverlap: p.overlap,
		separators:   defaultSeparators,
	}
}

// NewWithParams returns a splitter with explicit size and overlap.
func NewWithParams(chunkSize, chunkOverlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = sizeTable[SizeMedium].size
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 10
	}
	return &Splitter{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		separators:   defaultSeparators,
	}
}

func (s *Splitter) ChunkSize() int    { return s.chunkSize }
func (s *Splitter) ChunkOverlap() int { return s.chunkOverlap }

// Split chunks text into segments of at most ChunkSize characters with
// ChunkOverlap characters carried between consecutive segments. Empty or
// all-whitespace input yields nil.
func (s *Splitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	pieces := s.splitRecursive([]rune(text), s.separators)
	return s.mergeWithOverlap(pieces)
}

// splitRecursive breaks text into pieces no longer than chunkSize, trying
// separators in order of preference. The final "" separator slices
// fixed-width.
func (s *Splitter) splitRecursive(text []rune, separators []string) []string {
	if len(text) <= s.chunkSize {
		return []string{string(text)}
	}

	sep := separators[len(separators)-1]
	rest := separators
	for i, candidate := range separators {
		if candidate == "" || strings.Contains(string(text), candidate) {
			sep = candidate
			rest = separators[i+1:]
			return s.splitBySep(text, sep, rest)
		}
	}
	return s.splitBySep(text, sep, nil)
}

func (s *Splitter) splitBySep(text []rune, sep string, rest []string) []string {
	if sep == "" {
		// Fixed-width fallback: no boundary left to respect.
		var out []string
		for i := 0; i < len(text); i += s.chunkSize {
			end := i + s.chunkSize
			if end > len(text) {
				end = len(text)
			}
			out = append(out, string(text[i:end]))
		}
		return out
	}

	var out []string
	for _, part := range strings.SplitAfter(string(text), sep) {
		if part == "" {
			continue
		}
		runes := []rune(part)
		if len(runes) <= s.chunkSize {
			out = append(out, part)
			continue
		}
		out = append(out, s.splitRecursive(runes, rest)...)
	}
	return out
}

// mergeWithOverlap packs pieces into chunks of at most chunkSize runes,
// carrying up to chunkOverlap trailing characters into the next chunk. The
// carried tail is trimmed when it would push the next chunk past chunkSize,
// so the size bound holds even right after a flush.
func (s *Splitter) mergeWithOverlap(pieces []string) []string {
	var chunks []string
	var current []rune

	for _, piece := range pieces {
		p := []rune(piece)
		if len(current) > 0 && len(current)+len(p) > s.chunkSize {
			if chunk := strings.TrimSpace(string(current)); chunk != "" {
				chunks = append(chunks, chunk)
			}
			tail := []rune(overlapTail(string(current), s.chunkOverlap))
			if keep := s.chunkSize - len(p); keep < len(tail) {
				if keep <= 0 {
					tail = nil
				} else {
					tail = tail[len(tail)-keep:]
				}
			}
			current = tail
		}
		current = append(current, p...)
	}
	if chunk := strings.TrimSpace(string(current)); chunk != "" {
		chunks = append(chunks, chunk)
	}
	return chunks
}

func overlapTail(text string, overlap int) string {
	if overlap <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= overlap {
		return text
	}
	return string(runes[len(runes)-overlap:])
}

// SplitFixed slices text into fixed-width chunks with no overlap. It is the
// degraded path when boundary-aware splitting is not wanted.
func SplitFixed(text string, size int) []string {
	if size <= 0 {
		size = sizeTable[SizeMedium].size
	}
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	var out []string
	for i := 0; i < len(runes); i += size {
		end := i + size
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[i:end]))
	}
	return out
}
