// Package prompt builds the chat messages sent to the model for a topic,
// content kind and tone.
package prompt

import (
	"fmt"
	"strings"
	"text/template"
)

// Kind is the type of content to generate.
type Kind string

const (
	KindBlog      Kind = "blog"
	KindSocial    Kind = "social"
	KindEmail     Kind = "email"
	KindSlideDeck Kind = "slide-deck"
)

// Tone is the voice the content is written in.
type Tone string

const (
	ToneProfessional Tone = "professional"
	ToneFriendly     Tone = "friendly"
	TonePersuasive   Tone = "persuasive"
)

// DefaultSystem is the system message sent ahead of every prompt.
const DefaultSystem = "You are an expert content creator."

var Kinds = []Kind{KindBlog, KindSocial, KindEmail, KindSlideDeck}

var Tones = []Tone{ToneProfessional, ToneFriendly, TonePersuasive}

var defaultKindTemplates = map[Kind]string{
	KindBlog:   "Write a blog post about {{.Topic}}. Keep it concise but informative.",
	KindSocial: "Create 3 social media posts about {{.Topic}} for Twitter, LinkedIn, and Instagram.",
	KindEmail:  "Write a short marketing email about {{.Topic}} with subject line and CTA.",
	KindSlideDeck: "Create a PowerPoint presentation on '{{.Topic}}' with {{.Slides}} slides. " +
		"Each slide should have a title and 3–5 bullet points. Format:\nSlide 1: Title\n- Bullet\n- Bullet",
}

var defaultToneInstructions = map[Tone]string{
	ToneProfessional: "Use a professional and authoritative tone.",
	ToneFriendly:     "Use a warm, conversational tone.",
	TonePersuasive:   "Use a persuasive tone that creates urgency.",
}

// ParseKind maps user input to a Kind. "ppt" is accepted for slide decks.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindBlog, KindSocial, KindEmail, KindSlideDeck:
		return k, nil
	case "ppt", "pptx", "slides":
		return KindSlideDeck, nil
	default:
		return "", fmt.Errorf("unknown content type %q", s)
	}
}

// ParseTone maps user input to a Tone.
func ParseTone(s string) (Tone, error) {
	switch t := Tone(strings.ToLower(strings.TrimSpace(s))); t {
	case ToneProfessional, ToneFriendly, TonePersuasive:
		return t, nil
	default:
		return "", fmt.Errorf("unknown tone %q", s)
	}
}

// Message is one chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request describes the content to generate.
type Request struct {
	Topic string
	Kind  Kind
	Tone  Tone
}

// Builder renders requests into chat messages. Overrides replace the built-in
// template for a kind or instruction for a tone.
type Builder struct {
	System string
	Slides int
	Kinds  map[string]string
	Tones  map[string]string
}

type templateData struct {
	Topic  string
	Slides int
}

// Messages returns the system and user messages for req. Unknown kinds fall
// back to a blog post and unknown tones to professional.
func (b Builder) Messages(req Request) ([]Message, error) {
	text, err := b.render(req)
	if err != nil {
		return nil, err
	}

	system := b.System
	if system == "" {
		system = DefaultSystem
	}
	return []Message{
		{Role: "system", Content: system},
		{Role: "user", Content: text},
	}, nil
}

func (b Builder) render(req Request) (string, error) {
	kind := req.Kind
	src, ok := b.Kinds[string(kind)]
	if !ok {
		if _, known := defaultKindTemplates[kind]; !known {
			kind = KindBlog
		}
		src = defaultKindTemplates[kind]
	}

	tmpl, err := template.New(string(kind)).Parse(src)
	if err != nil {
		return "", fmt.Errorf("failed to parse %s prompt template: %w", kind, err)
	}

	slides := b.Slides
	if slides <= 0 {
		slides = 6
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, templateData{Topic: req.Topic, Slides: slides}); err != nil {
		return "", fmt.Errorf("failed to render %s prompt: %w", kind, err)
	}

	sb.WriteByte('\n')
	sb.WriteString(b.toneInstruction(req.Tone))
	return sb.String(), nil
}

func (b Builder) toneInstruction(tone Tone) string {
	if s, ok := b.Tones[string(tone)]; ok {
		return s
	}
	if s, ok := defaultToneInstructions[tone]; ok {
		return s
	}
	return defaultToneInstructions[ToneProfessional]
}
