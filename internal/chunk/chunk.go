// Package chunk splits extracted page text into overlapping, page-anchored
// chunks sized for embedding and retrieval. Splitting never crosses a page
// boundary, so every chunk can always be attributed to a single source page.
package chunk

import (
	"strings"

	"github.com/studyforge/studyforge/internal/pdftext"
)

// Chunk is one unit of embeddable text plus the provenance needed to cite it
// back to the source document.
type Chunk struct {
	ChunkIndex int
	PageNumber int
	Text       string
	CharStart  int
	CharEnd    int
}

// separatorPriority mirrors how a human would prefer to break text:
// paragraph, then line, then sentence, then word, before falling back to a
// hard character cut.
var separatorPriority = []string{"\n\n", "\n", ". ", " "}

// Split chunks every page's text independently, targeting size characters
// per chunk with overlap characters of context carried into the next chunk.
// A trailing fragment shorter than minChunkChars is folded into the
// preceding chunk on the same page rather than kept as its own chunk.
func Split(pages []pdftext.Page, size, overlap, minChunkChars int) []Chunk {
	if size <= 0 {
		size = 1024
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	var out []Chunk
	index := 0
	for _, page := range pages {
		text := strings.TrimSpace(page.Text)
		if text == "" {
			continue
		}
		for _, c := range splitPage(page.Number, page.Text, size, overlap, minChunkChars) {
			c.ChunkIndex = index
			out = append(out, c)
			index++
		}
	}
	return out
}

type atom struct {
	text  string
	start int
}

func splitPage(pageNumber int, text string, size, overlap, minChunkChars int) []Chunk {
	atoms := splitAtoms(text, 0, size, separatorPriority)
	if len(atoms) == 0 {
		return nil
	}

	var chunks []Chunk
	var cur strings.Builder
	curStart := atoms[0].start
	lastAtomEnd := atoms[0].start

	flush := func() {
		if cur.Len() == 0 {
			return
		}
		chunks = append(chunks, Chunk{
			PageNumber: pageNumber,
			Text:       cur.String(),
			CharStart:  curStart,
			CharEnd:    lastAtomEnd,
		})
	}

	for _, a := range atoms {
		if cur.Len() == 0 {
			curStart = a.start
		}
		if cur.Len() > 0 && cur.Len()+len(a.text) > size {
			flush()
			tail := lastNChars(cur.String(), overlap)
			cur.Reset()
			cur.WriteString(tail)
			curStart = a.start
		}
		cur.WriteString(a.text)
		lastAtomEnd = a.start + len(a.text)
	}
	flush()

	// Merge-back: a short trailing fragment carries too little context to
	// stand alone, so it joins the previous chunk instead.
	for len(chunks) > 1 {
		last := len(chunks) - 1
		if len(strings.TrimSpace(chunks[last].Text)) >= minChunkChars {
			break
		}
		chunks[last-1].Text += chunks[last].Text
		chunks[last-1].CharEnd = chunks[last].CharEnd
		chunks = chunks[:last]
	}
	return chunks
}

// splitAtoms recursively breaks text into pieces no larger than size,
// preferring the highest-priority separator that still yields small enough
// pieces, and falling back to a hard character cut once separators run out.
// The returned atoms reconstruct text exactly when concatenated in order.
func splitAtoms(text string, offset int, size int, seps []string) []atom {
	if len(text) <= size {
		if text == "" {
			return nil
		}
		return []atom{{text: text, start: offset}}
	}
	if len(seps) == 0 {
		var out []atom
		for i := 0; i < len(text); i += size {
			end := i + size
			if end > len(text) {
				end = len(text)
			}
			out = append(out, atom{text: text[i:end], start: offset + i})
		}
		return out
	}

	sep := seps[0]
	var out []atom
	pos := 0
	for pos < len(text) {
		idx := strings.Index(text[pos:], sep)
		var end int
		if idx == -1 {
			end = len(text)
		} else {
			end = pos + idx + len(sep)
		}
		part := text[pos:end]
		if len(part) <= size {
			out = append(out, atom{text: part, start: offset + pos})
		} else {
			out = append(out, splitAtoms(part, offset+pos, size, seps[1:])...)
		}
		pos = end
	}
	return out
}

func lastNChars(s string, n int) string {
	if n <= 0 || s == "" {
		return ""
	}
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
