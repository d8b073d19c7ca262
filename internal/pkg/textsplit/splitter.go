package textsplit

import (
	"strings"
	"unicode/utf8"
)

// Splitter breaks long text into overlapping chunks, preferring to cut at the
// strongest boundary available: paragraph break, then line break, then
// sentence end, then word gap. Sizes are in characters (runes).
type Splitter struct {
	ChunkSize    int
	ChunkOverlap int
	Separators   []string
}

func New(chunkSize, chunkOverlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = 0
	}
	return &Splitter{
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
		Separators:   []string{"\n\n", "\n", ". ", " "},
	}
}

// Split returns the chunked text. Empty and whitespace-only inputs yield nil.
func (s *Splitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return s.splitRecursive(text, s.Separators)
}

func (s *Splitter) splitRecursive(text string, separators []string) []string {
	sep := ""
	var rest []string
	if len(separators) > 0 {
		sep = separators[len(separators)-1]
	}
	for i, candidate := range separators {
		if strings.Contains(text, candidate) {
			sep = candidate
			rest = separators[i+1:]
			break
		}
	}

	var final []string
	var good []string
	for _, piece := range strings.Split(text, sep) {
		if utf8.RuneCountInString(piece) < s.ChunkSize {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			final = append(final, s.merge(good, sep)...)
			good = nil
		}
		if len(rest) == 0 {
			// No finer boundary exists; emit oversize as-is.
			if trimmed := strings.TrimSpace(piece); trimmed != "" {
				final = append(final, trimmed)
			}
			continue
		}
		final = append(final, s.splitRecursive(piece, rest)...)
	}
	if len(good) > 0 {
		final = append(final, s.merge(good, sep)...)
	}
	return final
}

// merge greedily packs adjacent pieces into chunks of at most ChunkSize,
// carrying up to ChunkOverlap trailing characters into the next chunk.
func (s *Splitter) merge(pieces []string, sep string) []string {
	sepLen := utf8.RuneCountInString(sep)

	var chunks []string
	var current []string
	total := 0

	joinLen := func(n int) int {
		if n > 0 {
			return sepLen
		}
		return 0
	}

	for _, piece := range pieces {
		pieceLen := utf8.RuneCountInString(piece)
		if total+pieceLen+joinLen(len(current)) > s.ChunkSize && len(current) > 0 {
			if doc := joinPieces(current, sep); doc != "" {
				chunks = append(chunks, doc)
			}
			for total > s.ChunkOverlap ||
				(total+pieceLen+joinLen(len(current)) > s.ChunkSize && total > 0) {
				total -= utf8.RuneCountInString(current[0])
				if len(current) > 1 {
					total -= sepLen
				}
				current = current[1:]
			}
		}
		if len(current) > 0 {
			total += sepLen
		}
		current = append(current, piece)
		total += pieceLen
	}
	if doc := joinPieces(current, sep); doc != "" {
		chunks = append(chunks, doc)
	}
	return chunks
}

func joinPieces(pieces []string, sep string) string {
	return strings.TrimSpace(strings.Join(pieces, sep))
}
