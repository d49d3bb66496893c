package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net"
	"net/http"
	"strings"
)

// Decoder turns event stream frames into one ordered text buffer.
// A Decoder is not safe for concurrent use; create one per response.
type Decoder struct {
	text  strings.Builder
	stats Stats
	done  bool
}

// NewDecoder returns a Decoder with an empty text buffer.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed consumes one frame and returns the delta it produced, if any.
// ok is false once the decoder has terminated; frames fed after that are ignored.
func (d *Decoder) Feed(frame string) (delta string, ok bool) {
	if d.done {
		return "", false
	}
	if frame == "" {
		return "", true
	}
	d.stats.Frames++

	data := strings.TrimPrefix(frame, DataPrefix)
	if len(data) != len(frame) {
		data = strings.TrimPrefix(data, " ")
	}
	if data == Sentinel {
		d.done = true
		d.stats.Sentinel = true
		return "", false
	}

	var chunk ChatResponse
	if err := json.Unmarshal([]byte(data), &chunk); err != nil {
		d.stats.Skipped++
		return "", true
	}

	delta = chunk.content()
	if delta != "" {
		d.stats.Deltas++
		d.text.WriteString(delta)
	}
	return delta, true
}

// Text returns the text aggregated so far.
func (d *Decoder) Text() string {
	return d.text.String()
}

// Stats returns the frame counters so far.
func (d *Decoder) Stats() Stats {
	return d.stats
}

// skip counts a frame that was dropped before it could be decoded.
func (d *Decoder) skip() {
	if d.done {
		return
	}
	d.stats.Frames++
	d.stats.Skipped++
}

// Deltas lazily decodes frames, yielding each non-empty delta in arrival order.
// Iteration stops at the sentinel, at the end of frames, or when the consumer stops.
func (d *Decoder) Deltas(frames iter.Seq[string]) iter.Seq[string] {
	return func(yield func(string) bool) {
		for frame := range frames {
			delta, ok := d.Feed(frame)
			if delta != "" && !yield(delta) {
				return
			}
			if !ok {
				return
			}
		}
	}
}

// Decode consumes frames and returns the aggregated text. observe, when not nil,
// is called synchronously with every non-empty delta.
func Decode(frames iter.Seq[string], observe func(string)) string {
	d := NewDecoder()
	for delta := range d.Deltas(frames) {
		if observe != nil {
			observe(delta)
		}
	}
	return d.Text()
}

// MaxFrameSize is the longest frame kept. Longer lines are discarded while
// reading and never reach the decoder.
const MaxFrameSize = 1024 * 1024

// lineReader splits a body into lines without capping how long a line may be
// on the wire; only the first MaxFrameSize bytes of a line are ever buffered.
type lineReader struct {
	r   *bufio.Reader
	err error
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{r: bufio.NewReaderSize(r, 64*1024)}
}

// next returns the next line without its terminator. long reports that the
// line exceeded MaxFrameSize and was dropped. ok is false at the end of the
// body or after a read error, which err then holds.
func (lr *lineReader) next() (line string, long, ok bool) {
	var buf []byte
	for {
		chunk, err := lr.r.ReadSlice('\n')
		if !long {
			if len(buf)+len(chunk) > MaxFrameSize+2 {
				long, buf = true, nil
			} else {
				buf = append(buf, chunk...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				lr.err = err
				return "", false, false
			}
			if len(buf) == 0 && !long {
				return "", false, false
			}
		}
		break
	}
	if long {
		return "", true, true
	}

	line = strings.TrimSuffix(strings.TrimSuffix(string(buf), "\n"), "\r")
	if len(line) > MaxFrameSize {
		return "", true, true
	}
	return line, false, true
}

// frames yields lines until the body ends, passing over-long ones to onLong.
func (lr *lineReader) frames(onLong func()) iter.Seq[string] {
	return func(yield func(string) bool) {
		for {
			line, long, ok := lr.next()
			if !ok {
				return
			}
			if long {
				if onLong != nil {
					onLong()
				}
				continue
			}
			if !yield(line) {
				return
			}
		}
	}
}

// Lines returns the frames of r, one per line, and a func reporting the read
// error that ended the sequence, if any. Lines longer than MaxFrameSize are
// dropped. The error func is only meaningful once iteration has finished.
func Lines(r io.Reader) (iter.Seq[string], func() error) {
	lr := newLineReader(r)
	return lr.frames(nil), func() error { return lr.err }
}

// ReadError is a failure reading the response body mid-stream.
type ReadError struct {
	Err error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("error reading response stream: %v", e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// Process decodes a streamed response body. Cancelling ctx or closing body ends
// decoding early and returns the partial text without error; any other read
// failure is returned as a *ReadError alongside the partial text.
func Process(ctx context.Context, body io.Reader, observe func(string)) (Result, error) {
	d := NewDecoder()
	lr := newLineReader(body)
	done := ctx.Done()

	for delta := range d.Deltas(lr.frames(d.skip)) {
		if observe != nil {
			observe(delta)
		}
		select {
		case <-done:
			return Result{Text: d.Text(), Stats: d.Stats()}, nil
		default:
		}
	}

	res := Result{Text: d.Text(), Stats: d.Stats()}
	if lr.err != nil && !closedEarly(ctx, lr.err) {
		return res, &ReadError{Err: lr.err}
	}
	return res, nil
}

// closedEarly reports whether err comes from the body being closed or the
// request being cancelled rather than from the transport failing.
func closedEarly(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, http.ErrBodyReadAfterClose)
}
