package knowledge

import (
	"strings"
	"unicode/utf8"
)

// Chunk represents a segment of text with position information.
type Chunk struct {
	Text      string
	StartChar int
	EndChar   int
	Index     int
}

// Default chunking parameters. Legal texts are split per paragraph first;
// only paragraphs longer than maxChars are cut at sentence boundaries.
const (
	defaultMaxChars     = 1600
	defaultOverlapChars = 200
	defaultMinChars     = 50
)

// ChunkOption configures text chunking behavior.
type ChunkOption func(*chunkConfig)

type chunkConfig struct {
	maxChars     int
	overlapChars int
	minChars     int
}

// WithMaxChars sets the maximum characters per chunk.
func WithMaxChars(n int) ChunkOption {
	return func(c *chunkConfig) { c.maxChars = n }
}

// WithOverlapChars sets the overlap characters between chunks of one paragraph.
func WithOverlapChars(n int) ChunkOption {
	return func(c *chunkConfig) { c.overlapChars = n }
}

// WithMinChars drops chunks shorter than n runes (headings, article numbers).
func WithMinChars(n int) ChunkOption {
	return func(c *chunkConfig) { c.minChars = n }
}

// SplitText splits a document into paragraph chunks. Blank lines separate
// paragraphs; oversized paragraphs are split at sentence boundaries with a
// small overlap.
func SplitText(text string, opts ...ChunkOption) []Chunk {
	cfg := chunkConfig{
		maxChars:     defaultMaxChars,
		overlapChars: defaultOverlapChars,
		minChars:     defaultMinChars,
	}
	for _, o := range opts {
		o(&cfg)
	}

	text = strings.ReplaceAll(text, "\r\n", "\n")
	var chunks []Chunk
	offset := 0
	for _, para := range strings.Split(text, "\n\n") {
		start := offset
		offset += len(para) + 2

		trimmed := strings.TrimSpace(para)
		if utf8.RuneCountInString(trimmed) < cfg.minChars {
			continue
		}
		start += strings.Index(para, trimmed)

		for _, piece := range splitParagraph(trimmed, cfg) {
			chunks = append(chunks, Chunk{
				Text:      piece.text,
				StartChar: start + piece.start,
				EndChar:   start + piece.start + len(piece.text),
				Index:     len(chunks),
			})
		}
	}
	return chunks
}

func splitParagraph(para string, cfg chunkConfig) []sentence {
	if utf8.RuneCountInString(para) <= cfg.maxChars {
		return []sentence{{text: para}}
	}
	sentences := splitSentences(para)
	if len(sentences) <= 1 {
		return []sentence{{text: para}}
	}

	var out []sentence
	sentIdx := 0
	for sentIdx < len(sentences) {
		var buf strings.Builder
		startSent := sentIdx
		startChar := sentences[sentIdx].start

		for sentIdx < len(sentences) {
			s := sentences[sentIdx]
			if buf.Len()+len(s.text) > cfg.maxChars && buf.Len() > 0 {
				break
			}
			buf.WriteString(s.text)
			sentIdx++
		}
		out = append(out, sentence{text: strings.TrimSpace(buf.String()), start: startChar})

		if sentIdx >= len(sentences) {
			break
		}

		// Step back over trailing sentences until overlapChars is covered,
		// never back to the chunk's own first sentence.
		overlapLen := 0
		rewindTo := sentIdx
		for i := sentIdx - 1; i > startSent && overlapLen < cfg.overlapChars; i-- {
			overlapLen += len(sentences[i].text)
			rewindTo = i
		}
		sentIdx = rewindTo
	}
	return out
}

type sentence struct {
	text  string
	start int
}

// splitSentences splits text at sentence-ending punctuation followed by
// whitespace, keeping the delimiter with the preceding sentence.
func splitSentences(text string) []sentence {
	var sentences []sentence
	start := 0

	for i := 0; i < len(text)-1; i++ {
		c := text[i]
		if c != '.' && c != '!' && c != '?' && c != ';' {
			continue
		}
		next := text[i+1]
		if next == ' ' || next == '\n' || next == '\t' {
			end := i + 2
			sentences = append(sentences, sentence{text: text[start:end], start: start})
			start = end
			i++
		}
	}
	if start < len(text) {
		sentences = append(sentences, sentence{text: text[start:], start: start})
	}
	return sentences
}
