// Package chunk splits long text into bounded, position-tracked
// fragments suitable for independent embedding. Splitting is layered:
// paragraph breaks first, then sentence punctuation, then a hard split.
// Concatenating the emitted fragments in order always reproduces the
// input byte for byte.
package chunk

import (
	"strings"
	"unicode/utf8"
)

const (
	DefaultChunkSize = 1500
	DefaultMinSize   = 24
)

// Chunk is one fragment of the source text. Start and End are byte
// offsets into the original string, so Text == src[Start:End].
type Chunk struct {
	Text  string `json:"text"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// Chunker splits text into chunks of at most ChunkSize bytes. Chunks
// never fall below MinSize except possibly the final trailing one. A
// chunk may exceed ChunkSize only when an undersized fragment had to
// be folded into its neighbor.
type Chunker struct {
	ChunkSize int
	MinSize   int
}

func New() *Chunker {
	return &Chunker{ChunkSize: DefaultChunkSize, MinSize: DefaultMinSize}
}

// Delimiters are attached to the fragment they terminate, which keeps
// concatenation lossless.
var levels = [][]string{
	{"\n\n", "\n", "\r\n"},
	{".", "?", "!", ";", ":"},
}

// Chunk splits text and tracks byte offsets. ChunkSize is a soft
// bound: folding an undersized fragment into its neighbor can push
// that neighbor past it. Empty input yields no chunks.
func (c *Chunker) Chunk(text string) []Chunk {
	if text == "" {
		return nil
	}

	pieces := c.split(text, 0)
	pieces = c.mergeSmall(pieces)

	chunks := make([]Chunk, 0, len(pieces))
	start := 0
	for _, p := range pieces {
		end := start + len(p)
		chunks = append(chunks, Chunk{Text: p, Start: start, End: end})
		start = end
	}
	return chunks
}

func (c *Chunker) split(text string, level int) []string {
	if len(text) <= c.ChunkSize {
		return []string{text}
	}
	if level >= len(levels) {
		return c.hardSplit(text)
	}

	parts := splitAfterAny(text, levels[level])
	merged := c.greedyMerge(parts)

	var out []string
	for _, p := range merged {
		if len(p) > c.ChunkSize {
			out = append(out, c.split(p, level+1)...)
		} else {
			out = append(out, p)
		}
	}
	return out
}

// splitAfterAny cuts text after every occurrence of any delimiter,
// preferring earlier delimiters at a given position so "\n\n" wins
// over "\n".
func splitAfterAny(text string, delims []string) []string {
	var parts []string
	last := 0
	for i := 0; i < len(text); {
		var matched string
		for _, d := range delims {
			if strings.HasPrefix(text[i:], d) {
				matched = d
				break
			}
		}
		if matched == "" {
			i++
			continue
		}
		end := i + len(matched)
		parts = append(parts, text[last:end])
		last = end
		i = end
	}
	if last < len(text) {
		parts = append(parts, text[last:])
	}
	return parts
}

// greedyMerge coalesces adjacent fragments while they still fit in a
// single chunk. Fragments that are individually oversized pass through
// untouched for the next splitting level.
func (c *Chunker) greedyMerge(parts []string) []string {
	var out []string
	var cur strings.Builder
	for _, p := range parts {
		if cur.Len() > 0 && cur.Len()+len(p) > c.ChunkSize {
			out = append(out, cur.String())
			cur.Reset()
		}
		if len(p) > c.ChunkSize && cur.Len() == 0 {
			out = append(out, p)
			continue
		}
		cur.WriteString(p)
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}

// hardSplit cuts at the chunk size without regard for structure,
// backing off to the nearest rune boundary so multi-byte sequences
// stay intact.
func (c *Chunker) hardSplit(text string) []string {
	var out []string
	for len(text) > c.ChunkSize {
		cut := c.ChunkSize
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		if cut == 0 {
			cut = c.ChunkSize
		}
		out = append(out, text[:cut])
		text = text[cut:]
	}
	if len(text) > 0 {
		out = append(out, text)
	}
	return out
}

// mergeSmall folds any undersized fragment into the one after it. The
// trailing fragment is allowed to stay short.
func (c *Chunker) mergeSmall(pieces []string) []string {
	for i := 0; i < len(pieces)-1; {
		if len(pieces[i]) < c.MinSize {
			pieces[i+1] = pieces[i] + pieces[i+1]
			pieces = append(pieces[:i], pieces[i+1:]...)
		} else {
			i++
		}
	}
	return pieces
}

// Reconstruct concatenates chunk texts in order.
func Reconstruct(chunks []Chunk) string {
	var b strings.Builder
	for _, ch := range chunks {
		b.WriteString(ch.Text)
	}
	return b.String()
}
