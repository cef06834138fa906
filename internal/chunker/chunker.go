package chunker

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/The-Burnes-Center/aiep-app/internal/sections"
)

// Chunker splits section text into word-bounded chunks with sentence overlap.
type Chunker struct {
	maxChunkSize int // maximum words per chunk
	overlap      int // sentences carried into the next chunk
	whitespace   *regexp.Regexp
}

// NewChunker creates a Chunker. Defaults: 200 words per chunk, 2 overlap
// sentences.
func NewChunker(maxChunkSize, overlap int) *Chunker {
	if maxChunkSize <= 0 {
		maxChunkSize = 200
	}
	if overlap < 0 {
		overlap = 0
	}
	return &Chunker{
		maxChunkSize: maxChunkSize,
		overlap:      overlap,
		whitespace:   regexp.MustCompile(`\s+`),
	}
}

// ChunkSections chunks the full text of each section. Keys of the returned
// map are "{section}_{ordinal}" with 1-based ordinals per section. Sections
// with empty text contribute no chunks.
func (c *Chunker) ChunkSections(sectionText map[sections.Kind]string) map[string]string {
	chunked := make(map[string]string)
	for _, kind := range sections.Kinds() {
		normalized := c.normalizeSpaces(sectionText[kind])
		chunks := c.chunkText(c.splitIntoSentences(normalized))
		for i, chunk := range chunks {
			chunked[fmt.Sprintf("%s_%d", kind, i+1)] = chunk
		}
	}
	return chunked
}

// normalizeSpaces collapses whitespace runs to single spaces and trims.
func (c *Chunker) normalizeSpaces(text string) string {
	return strings.TrimSpace(c.whitespace.ReplaceAllString(text, " "))
}

// splitIntoSentences splits on `.` or `?` followed by whitespace, but never
// after abbreviations like "Mr." or single-letter initials like "U.S.".
func (c *Chunker) splitIntoSentences(text string) []string {
	var sentences []string
	runes := []rune(text)
	start := 0
	for i := 0; i < len(runes); i++ {
		if runes[i] != '.' && runes[i] != '?' {
			continue
		}
		if i+1 >= len(runes) || runes[i+1] != ' ' {
			continue
		}
		if runes[i] == '.' && isAbbreviation(runes[:i+1]) {
			continue
		}
		sentence := strings.TrimSpace(string(runes[start : i+1]))
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
		start = i + 1
	}
	if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}

// isAbbreviation reports whether the text ending at this period looks like an
// abbreviation ("Mr.") or an initialism component ("U.S.") rather than a
// sentence end.
func isAbbreviation(upto []rune) bool {
	// upto ends with '.'; inspect the word before it.
	end := len(upto) - 1
	wordStart := end
	for wordStart > 0 && upto[wordStart-1] != ' ' {
		wordStart--
	}
	word := upto[wordStart:end]
	if len(word) == 0 {
		return false
	}
	// Single capital letter, possibly preceded by letter-dot pairs: "U.S."
	if last := word[len(word)-1]; last >= 'A' && last <= 'Z' {
		if len(word) == 1 {
			return true
		}
		if word[len(word)-2] == '.' {
			return true
		}
	}
	// Two-letter titles: "Mr.", "Dr.", "St."
	if len(word) == 2 &&
		word[0] >= 'A' && word[0] <= 'Z' &&
		word[1] >= 'a' && word[1] <= 'z' {
		return true
	}
	return false
}

// chunkText greedily packs sentences into chunks of at most maxChunkSize
// words, seeding each new chunk with the last overlap sentences of the
// previous one. A single sentence over the budget is kept whole.
func (c *Chunker) chunkText(sentences []string) []string {
	var chunks []string
	var current []string
	currentLen := 0

	for _, sentence := range sentences {
		sentenceLen := len(strings.Fields(sentence))
		if currentLen+sentenceLen > c.maxChunkSize && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, " "))
			keep := c.overlap
			if keep > len(current) {
				keep = len(current)
			}
			current = append([]string(nil), current[len(current)-keep:]...)
			currentLen = 0
			for _, s := range current {
				currentLen += len(strings.Fields(s))
			}
		}
		current = append(current, sentence)
		currentLen += sentenceLen
	}

	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}
	return chunks
}
