package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/cli/go-gh/v2/pkg/markdown"

	"github.com/markis/content-creator/internal/slides"
)

// TerminalRenderer displays streamed content as it arrives. In markdown mode
// text is buffered up to the last paragraph break and rendered with glamour;
// in plain mode deltas are written through unchanged.
type TerminalRenderer struct {
	out       io.Writer
	markdown  *glamour.TermRenderer
	plainText bool
	buffer    strings.Builder
	err       error
}

func NewTerminalRenderer(out io.Writer, usePlainText bool, wrap int) *TerminalRenderer {
	if wrap <= 0 {
		wrap = 120
	}

	var md *glamour.TermRenderer
	if !usePlainText {
		md, _ = glamour.NewTermRenderer(
			markdown.WithWrap(wrap),
			glamour.WithAutoStyle(),
		)
	}

	return &TerminalRenderer{
		out:       out,
		markdown:  md,
		plainText: usePlainText || md == nil,
	}
}

// Observe consumes one delta. It matches the decoder's observer signature;
// the first render failure is kept and reported by Close.
func (t *TerminalRenderer) Observe(delta string) {
	if t.err != nil {
		return
	}
	t.err = t.Write(delta)
}

// Write buffers delta and renders every complete paragraph.
func (t *TerminalRenderer) Write(delta string) error {
	if t.plainText {
		_, err := io.WriteString(t.out, delta)
		return err
	}

	t.buffer.WriteString(delta)
	content := t.buffer.String()

	if idx := findMarkdownBreakPoint(content); idx > 0 {
		if err := t.renderContent(content[:idx]); err != nil {
			return err
		}
		// Reset buffer with remaining content
		remaining := content[idx:]
		t.buffer.Reset()
		t.buffer.WriteString(remaining)
	}
	return nil
}

// Close renders any remaining content and ends the output with a newline.
func (t *TerminalRenderer) Close() error {
	if t.err != nil {
		return t.err
	}

	if remaining := t.buffer.String(); remaining != "" {
		t.buffer.Reset()
		if err := t.renderContent(remaining); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintln(t.out)
	return err
}

func (t *TerminalRenderer) renderContent(content string) error {
	if t.plainText {
		_, err := io.WriteString(t.out, content)
		return err
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}
	if strings.HasPrefix(content, "#") {
		fmt.Fprintln(t.out)
	}

	mdContent, err := t.markdown.Render(content)
	if err != nil {
		return fmt.Errorf("failed to render markdown: %w", err)
	}

	_, err = fmt.Fprintln(t.out, strings.TrimSpace(mdContent))
	return err
}

// RenderDeck prints an outline of deck, one heading per slide.
func (t *TerminalRenderer) RenderDeck(deck slides.Deck) error {
	return t.renderContent(DeckMarkdown(deck))
}

// DeckMarkdown formats deck as a markdown outline.
func DeckMarkdown(deck slides.Deck) string {
	var sb strings.Builder
	for i, rec := range deck {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "## %s\n\n", rec.Title)
		for _, b := range rec.Bullets {
			fmt.Fprintf(&sb, "- %s\n", b)
		}
	}
	return sb.String()
}

func findMarkdownBreakPoint(content string) int {
	const marker string = "\n\n"
	lastBreak := -1
	idx := strings.LastIndex(content, marker)
	if idx > lastBreak {
		lastBreak = idx + len(marker)
	}
	return lastBreak
}
