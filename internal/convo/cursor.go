package convo

import (
	"strings"
	"unicode"
)

// SpokenCursor tracks how far speaking has progressed through one turn's
// parts. PartIndex/CharIndex point at the first character not yet confirmed
// spoken; Done has one entry per part and marks parts that were either
// spoken through completion or explicitly skipped.
type SpokenCursor struct {
	PartIndex int
	CharIndex int
	Done      []bool
}

// NewSpokenCursor returns an empty cursor positioned before any content.
func NewSpokenCursor() *SpokenCursor { return &SpokenCursor{} }

// syncParts extends Done so it always has one flag per part.
func (c *SpokenCursor) syncParts(parts []*Part) {
	for len(c.Done) < len(parts) {
		c.Done = append(c.Done, false)
	}
}

// SpokenChars reports how many characters of part i are confirmed spoken.
func (c *SpokenCursor) SpokenChars(i int, parts []*Part) int {
	if i < 0 || i >= len(parts) || !parts[i].IsText() {
		return 0
	}
	if i < len(c.Done) && c.Done[i] {
		return len(parts[i].Text)
	}
	switch {
	case i < c.PartIndex:
		return len(parts[i].Text)
	case i == c.PartIndex:
		return c.CharIndex
	default:
		return 0
	}
}

// ConsumedChars is the total number of characters confirmed spoken across
// all parts. It is non-decreasing over the life of a turn.
func (c *SpokenCursor) ConsumedChars(parts []*Part) int {
	total := 0
	for i := range parts {
		total += c.SpokenChars(i, parts)
	}
	return total
}

// wordSpan is one whitespace-delimited token of the raw text together with
// its byte offsets, so matched token counts convert back to char positions.
type wordSpan struct {
	start, end int
	norm       string
}

// splitSpans tokenizes raw text into word spans with normalized forms.
// Tokens whose normalized form is empty (pure punctuation) are dropped.
func splitSpans(text string) []wordSpan {
	var spans []wordSpan
	i := 0
	for i < len(text) {
		for i < len(text) && isSpaceByte(text[i]) {
			i++
		}
		if i >= len(text) {
			break
		}
		start := i
		for i < len(text) && !isSpaceByte(text[i]) {
			i++
		}
		norm := normalizeToken(text[start:i])
		if norm != "" {
			spans = append(spans, wordSpan{start: start, end: i, norm: norm})
		}
	}
	return spans
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// normalizeToken lower-cases a token and strips anything that is not a
// letter or digit, so "Hello," and "hello" compare equal.
func normalizeToken(tok string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(tok) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func normalizeWords(text string) []string {
	spans := splitSpans(text)
	out := make([]string, len(spans))
	for i, s := range spans {
		out[i] = s.norm
	}
	return out
}

// matchInText matches the spoken tokens against text starting at offset from.
// It returns the new char offset and true when every spoken token was
// consumed; a partial match yields no advancement at all.
func matchInText(text string, from int, spoken []string) (int, bool) {
	if len(spoken) == 0 {
		return from, false
	}
	remainder := text[from:]
	targets := splitSpans(remainder)
	if len(targets) == 0 {
		return from, false
	}

	// Sentence fast path: the whole remainder was spoken in one fragment.
	if len(spoken) == len(targets) {
		all := true
		for i := range spoken {
			if spoken[i] != targets[i].norm {
				all = false
				break
			}
		}
		if all {
			return len(text), true
		}
	}

	// Sequential token matching with prefix tolerance for contractions
	// ("I" matches "I'm").
	matched := 0
	for matched < len(spoken) && matched < len(targets) {
		s, t := spoken[matched], targets[matched].norm
		if s != t && !strings.HasPrefix(t, s) {
			break
		}
		matched++
	}
	if matched < len(spoken) {
		return from, false
	}

	// Convert matched token count back into a raw char offset: end of the
	// last matched raw token (which carries its trailing punctuation) plus
	// one trailing separator.
	off := from + targets[matched-1].end
	if off < len(text) && isSpaceByte(text[off]) {
		off++
	}
	return off, true
}

// Advance consumes a spoken fragment against the turn's parts, moving the
// cursor forward. It mutates the cursor in place and reports whether any
// progress was made. It never fails hard: an unmatched fragment simply
// yields false so the caller can retry with the next fragment.
func Advance(c *SpokenCursor, parts []*Part, fragment string) bool {
	if len(parts) == 0 {
		return false
	}
	c.syncParts(parts)
	c.skipInert(parts)
	if c.PartIndex >= len(parts) {
		return false
	}

	spoken := normalizeWords(fragment)
	if len(spoken) == 0 {
		return false
	}

	cur := parts[c.PartIndex]
	if off, ok := matchInText(cur.Text, c.CharIndex, spoken); ok {
		c.CharIndex = off
		if c.CharIndex >= len(cur.Text) {
			c.Done[c.PartIndex] = true
			c.PartIndex++
			c.CharIndex = 0
			c.skipInert(parts)
		}
		return true
	}

	// Mismatch recovery: look for a later part whose start matches the
	// fragment, skipping whatever lies in between (e.g. a code block that
	// is never spoken aloud).
	for j := c.PartIndex + 1; j < len(parts); j++ {
		if c.Done[j] || !parts[j].IsText() {
			continue
		}
		off, ok := matchInText(parts[j].Text, 0, spoken)
		if !ok {
			continue
		}
		for k := c.PartIndex; k < j; k++ {
			c.Done[k] = true
		}
		c.PartIndex = j
		c.CharIndex = off
		if c.CharIndex >= len(parts[j].Text) {
			c.Done[j] = true
			c.PartIndex = j + 1
			c.CharIndex = 0
			c.skipInert(parts)
		}
		return true
	}

	// Deadlock prevention: at the very start of a part that matches nothing,
	// with more parts waiting behind it, force-skip so a turn with remaining
	// parts never stalls permanently on an unmatchable fragment.
	if c.CharIndex == 0 && c.PartIndex+1 < len(parts) {
		c.Done[c.PartIndex] = true
		c.PartIndex++
		c.CharIndex = 0
		c.skipInert(parts)
		return true
	}

	return false
}

// skipInert moves the cursor past parts that cannot be spoken into: parts
// already done, non-text parts, and parts whose text is exhausted.
func (c *SpokenCursor) skipInert(parts []*Part) {
	for c.PartIndex < len(parts) {
		p := parts[c.PartIndex]
		if !p.IsText() || c.Done[c.PartIndex] || c.CharIndex >= len(p.Text) {
			if c.PartIndex < len(c.Done) {
				c.Done[c.PartIndex] = true
			}
			c.PartIndex++
			c.CharIndex = 0
			continue
		}
		break
	}
}

// HasUnspoken reports whether any text part still has content the cursor
// has not consumed. A turn closed while this is true was closed prematurely.
func HasUnspoken(c *SpokenCursor, parts []*Part) bool {
	for i, p := range parts {
		if !p.IsText() || strings.TrimSpace(p.Text) == "" {
			continue
		}
		if i < len(c.Done) && c.Done[i] {
			continue
		}
		if i < c.PartIndex {
			continue
		}
		if i == c.PartIndex && c.CharIndex >= len(p.Text) {
			continue
		}
		return true
	}
	return false
}
