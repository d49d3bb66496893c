// Package slides turns loosely structured "Slide N: Title / - bullet" text into
// an ordered deck of slide records.
package slides

import "strings"

// DefaultMarker is the token that precedes each slide's ordinal.
const DefaultMarker = "Slide"

// bulletGlyphs are stripped from the start of bullet lines.
const bulletGlyphs = "-• "

// Record is a single slide: a title and its bullets in emission order.
type Record struct {
	Title   string   `json:"title"`
	Bullets []string `json:"bullets"`
}

// Deck is an ordered list of slides, in order of appearance in the source text.
type Deck []Record

// Empty reports whether the deck has no slides to render.
func (d Deck) Empty() bool {
	return len(d) == 0
}

// Parser splits text into slides on a literal marker token. The zero value
// uses DefaultMarker.
type Parser struct {
	Marker string
}

// Parse converts text into a Deck using DefaultMarker.
func Parse(text string) Deck {
	return Parser{}.Parse(text)
}

// Parse converts text into a Deck. Every occurrence of the marker starts a new
// chunk, including occurrences inside prose. It never fails: unusable chunks
// are dropped and the worst case is an empty Deck.
func (p Parser) Parse(text string) Deck {
	marker := p.Marker
	if marker == "" {
		marker = DefaultMarker
	}

	deck := Deck{}
	for _, chunk := range strings.Split(text, marker) {
		if strings.TrimSpace(chunk) == "" {
			continue
		}
		if rec, ok := parseChunk(chunk); ok {
			deck = append(deck, rec)
		}
	}
	return deck
}

// parseChunk normalizes one chunk. The first line is the title; the rest of the
// non-blank lines are bullets.
func parseChunk(chunk string) (Record, bool) {
	chunk = strings.TrimRight(strings.TrimLeft(chunk, " \t"), " \t\r\n")
	// Blank lines before the title are dropped unless a bullet follows them,
	// in which case the title is blank.
	if rest := strings.TrimLeft(chunk, " \t\r\n"); len(rest) != len(chunk) && !isBullet(rest) {
		chunk = rest
	}
	lines := strings.Split(chunk, "\n")
	if len(lines) == 0 {
		return Record{}, false
	}

	rec := Record{
		Title:   normalizeTitle(lines[0]),
		Bullets: []string{},
	}
	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		rec.Bullets = append(rec.Bullets, normalizeBullet(line))
	}
	return rec, true
}

func isBullet(line string) bool {
	return strings.HasPrefix(line, "-") || strings.HasPrefix(line, "•")
}

func normalizeTitle(line string) string {
	return strings.TrimSpace(strings.ReplaceAll(xmlSafe(line), ":", ""))
}

func normalizeBullet(line string) string {
	line = strings.TrimSpace(xmlSafe(line))
	return strings.TrimSpace(strings.TrimLeft(line, bulletGlyphs))
}

// xmlSafe drops runes that XML 1.0 documents cannot carry, so every record
// survives being written to a presentation.
func xmlSafe(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\t', r == '\n', r == '\r':
			return r
		case r < 0x20, r >= 0xD800 && r <= 0xDFFF, r == 0xFFFE, r == 0xFFFF:
			return -1
		}
		return r
	}, s)
}
