// Package creator runs one content generation: it builds the prompt, streams
// the model reply through the decoder and persists the result, turning slide
// decks into .pptx files.
package creator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/markis/content-creator/internal/client"
	"github.com/markis/content-creator/internal/logger"
	"github.com/markis/content-creator/internal/metrics"
	"github.com/markis/content-creator/internal/output"
	"github.com/markis/content-creator/internal/pptx"
	"github.com/markis/content-creator/internal/prompt"
	"github.com/markis/content-creator/internal/slides"
	"github.com/markis/content-creator/internal/stream"
)

// ErrNoContent is returned when the model stream produced no text.
var ErrNoContent = errors.New("no content produced")

// Streamer sends a chat request and returns the event stream body.
type Streamer interface {
	SendStreamingRequest(ctx context.Context, payload client.Payload) (io.ReadCloser, error)
}

type Options struct {
	Model       string
	Temperature float64
	OutputDir   string
	Prompts     prompt.Builder
	Parser      slides.Parser
	Metrics     *metrics.Metrics
	Now         func() time.Time
}

type Creator struct {
	streamer Streamer
	opts     Options
}

func New(s Streamer, opts Options) *Creator {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Creator{streamer: s, opts: opts}
}

// Result is what one generation produced.
type Result struct {
	Request  prompt.Request
	Text     string
	Deck     slides.Deck
	TextPath string
	DeckPath string
	Stats    stream.Stats
}

// Generate streams content for req. observe, when not nil, receives every
// delta as it is decoded. Transport failures are returned as
// *client.TransportError; an empty reply is ErrNoContent. A slide deck reply
// that yields no slides still returns the text, with DeckPath left empty.
func (c *Creator) Generate(ctx context.Context, req prompt.Request, observe func(string)) (res *Result, err error) {
	log := logger.FromContext(ctx).With("kind", req.Kind, "tone", req.Tone)
	start := c.opts.Now()
	defer func() { c.record(req.Kind, start, res, err) }()

	messages, err := c.opts.Prompts.Messages(req)
	if err != nil {
		return nil, err
	}

	log.Debug("sending request", "model", c.opts.Model, "topic", req.Topic)
	body, err := c.streamer.SendStreamingRequest(ctx, client.Payload{
		Model:       c.opts.Model,
		Messages:    messages,
		Temperature: c.opts.Temperature,
		Stream:      true,
	})
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := body.Close(); cerr != nil {
			log.Warn("failed to close response body", "error", cerr)
		}
	}()

	decoded, err := stream.Process(ctx, body, observe)
	if err != nil {
		return nil, &client.TransportError{Err: err}
	}
	log.Debug("stream decoded",
		"frames", decoded.Stats.Frames,
		"deltas", decoded.Stats.Deltas,
		"skipped", decoded.Stats.Skipped,
		"sentinel", decoded.Stats.Sentinel)
	if decoded.Text == "" {
		return nil, ErrNoContent
	}

	res = &Result{Request: req, Text: decoded.Text, Stats: decoded.Stats}
	base := output.BaseName(string(req.Kind), req.Topic, c.opts.Now())

	res.TextPath, err = output.WriteText(c.opts.OutputDir, base, res.Text)
	if err != nil {
		return nil, err
	}
	log.Info("text saved", "path", res.TextPath)

	if req.Kind != prompt.KindSlideDeck {
		return res, nil
	}

	res.Deck = c.opts.Parser.Parse(res.Text)
	res.DeckPath, err = pptx.Render(res.Deck, filepath.Join(c.opts.OutputDir, base))
	switch {
	case errors.Is(err, pptx.ErrEmptyDeck):
		log.Warn("reply contained no slides, skipping presentation", "chars", len(res.Text))
		return res, nil
	case err != nil:
		return nil, fmt.Errorf("failed to render slide deck: %w", err)
	}
	log.Info("presentation saved", "path", res.DeckPath, "slides", len(res.Deck))
	return res, nil
}

func (c *Creator) record(kind prompt.Kind, start time.Time, res *Result, err error) {
	m := c.opts.Metrics
	if m == nil {
		return
	}

	outcome := "ok"
	var te *client.TransportError
	switch {
	case errors.As(err, &te):
		outcome = "transport_error"
	case errors.Is(err, ErrNoContent):
		outcome = "empty"
	case err != nil:
		outcome = "error"
	}
	m.Generations.WithLabelValues(string(kind), outcome).Inc()
	m.Duration.WithLabelValues(string(kind)).Observe(c.opts.Now().Sub(start).Seconds())

	if res == nil {
		return
	}
	m.Deltas.Add(float64(res.Stats.Deltas))
	m.SkippedFrames.Add(float64(res.Stats.Skipped))
	if kind == prompt.KindSlideDeck {
		m.Slides.Observe(float64(len(res.Deck)))
	}
}
