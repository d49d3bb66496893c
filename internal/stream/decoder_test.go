package stream

import (
	"context"
	"errors"
	"io"
	"slices"
	"strings"
	"testing"
)

func frame(content string) string {
	return `data: {"choices":[{"delta":{"content":"` + content + `"}}]}`
}

func TestDecode_StopsAtSentinel(t *testing.T) {
	t.Parallel()

	frames := []string{
		frame("Hello"),
		"",
		frame(", "),
		frame("world"),
		"data: [DONE]",
		frame("ignored"),
	}

	var seen []string
	got := Decode(slices.Values(frames), func(d string) { seen = append(seen, d) })
	if got != "Hello, world" {
		t.Fatalf("text=%q", got)
	}
	if want := []string{"Hello", ", ", "world"}; !slices.Equal(seen, want) {
		t.Fatalf("deltas=%q want %q", seen, want)
	}
}

func TestDecode_EndOfFramesWithoutSentinel(t *testing.T) {
	t.Parallel()

	frames := []string{frame("a"), frame("b"), frame("c")}
	if got := Decode(slices.Values(frames), nil); got != "abc" {
		t.Fatalf("text=%q", got)
	}
}

func TestDecode_SentinelAtEveryPosition(t *testing.T) {
	t.Parallel()

	parts := []string{"one ", "two ", "three ", "four"}
	for k := 0; k <= len(parts); k++ {
		frames := make([]string, 0, len(parts)+1)
		for i, p := range parts {
			if i == k {
				frames = append(frames, "data: [DONE]")
			}
			frames = append(frames, frame(p))
		}
		if k == len(parts) {
			frames = append(frames, "data: [DONE]")
		}

		want := strings.Join(parts[:k], "")
		if got := Decode(slices.Values(frames), nil); got != want {
			t.Fatalf("k=%d text=%q want %q", k, got, want)
		}
	}
}

func TestDecode_MalformedFramesAreSkipped(t *testing.T) {
	t.Parallel()

	clean := []string{frame("alpha"), frame("beta"), frame("gamma")}
	noise := []string{
		`data: {"choices":[{"delta":{"content":"trunc`,
		"data: not json",
		": keep-alive",
		"event: message",
	}

	want := Decode(slices.Values(clean), nil)
	for _, n := range noise {
		for pos := 0; pos <= len(clean); pos++ {
			frames := slices.Insert(slices.Clone(clean), pos, n)
			if got := Decode(slices.Values(frames), nil); got != want {
				t.Fatalf("noise %q at %d: text=%q want %q", n, pos, got, want)
			}
		}
	}
}

func TestDecoder_FeedVariants(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		frame     string
		wantDelta string
		wantOK    bool
	}{
		{name: "empty", frame: "", wantOK: true},
		{name: "sentinel", frame: "data: [DONE]", wantOK: false},
		{name: "sentinel without space", frame: "data:[DONE]", wantOK: false},
		{name: "bare sentinel", frame: "[DONE]", wantOK: false},
		{name: "no prefix", frame: `{"choices":[{"delta":{"content":"x"}}]}`, wantDelta: "x", wantOK: true},
		{name: "no space after marker", frame: `data:{"choices":[{"delta":{"content":"y"}}]}`, wantDelta: "y", wantOK: true},
		{name: "empty delta", frame: `data: {"choices":[{"delta":{"content":""}}]}`, wantOK: true},
		{name: "role only", frame: `data: {"choices":[{"delta":{"role":"assistant"}}]}`, wantOK: true},
		{name: "no choices", frame: `data: {"choices":[]}`, wantOK: true},
		{name: "message content", frame: `data: {"choices":[{"message":{"content":"m"}}]}`, wantDelta: "m", wantOK: true},
		{name: "leading space kept", frame: frame(" word"), wantDelta: " word", wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			d := NewDecoder()
			delta, ok := d.Feed(tt.frame)
			if delta != tt.wantDelta || ok != tt.wantOK {
				t.Fatalf("Feed(%q)=(%q,%v) want (%q,%v)", tt.frame, delta, ok, tt.wantDelta, tt.wantOK)
			}
		})
	}
}

func TestDecoder_IgnoresFramesAfterTermination(t *testing.T) {
	t.Parallel()

	d := NewDecoder()
	d.Feed(frame("kept"))
	d.Feed("data: [DONE]")
	if delta, ok := d.Feed(frame("late")); delta != "" || ok {
		t.Fatalf("Feed after sentinel=(%q,%v)", delta, ok)
	}
	if d.Text() != "kept" {
		t.Fatalf("text=%q", d.Text())
	}

	st := d.Stats()
	if !st.Sentinel || st.Deltas != 1 || st.Frames != 2 {
		t.Fatalf("stats=%+v", st)
	}
}

func TestDecoder_DeltasStopsWhenConsumerStops(t *testing.T) {
	t.Parallel()

	d := NewDecoder()
	frames := []string{frame("a"), frame("b"), frame("c")}
	for delta := range d.Deltas(slices.Values(frames)) {
		if delta == "b" {
			break
		}
	}
	if d.Text() != "ab" {
		t.Fatalf("text=%q", d.Text())
	}
}

func TestProcess_Body(t *testing.T) {
	t.Parallel()

	body := strings.Join([]string{
		frame("Slide 1: Intro\\n"),
		"",
		"data: garbage",
		"",
		frame("- point"),
		"",
		"data: [DONE]",
		"",
	}, "\n")

	var seen int
	res, err := Process(context.Background(), strings.NewReader(body), func(string) { seen++ })
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Text != "Slide 1: Intro\n- point" {
		t.Fatalf("text=%q", res.Text)
	}
	if seen != 2 || res.Stats.Skipped != 1 || !res.Stats.Sentinel {
		t.Fatalf("seen=%d stats=%+v", seen, res.Stats)
	}
}

type failingReader struct {
	data string
	err  error
}

func (r *failingReader) Read(p []byte) (int, error) {
	if r.data == "" {
		return 0, r.err
	}
	n := copy(p, r.data)
	r.data = r.data[n:]
	return n, nil
}

func TestProcess_ReadFailureIsReported(t *testing.T) {
	t.Parallel()

	boom := errors.New("connection reset")
	r := &failingReader{data: frame("partial") + "\n", err: boom}

	res, err := Process(context.Background(), r, nil)
	var readErr *ReadError
	if !errors.As(err, &readErr) || !errors.Is(err, boom) {
		t.Fatalf("err=%v", err)
	}
	if res.Text != "partial" {
		t.Fatalf("text=%q", res.Text)
	}
}

func TestProcess_ClosedBodyIsEarlyTermination(t *testing.T) {
	t.Parallel()

	r := &failingReader{data: frame("partial") + "\n", err: io.ErrClosedPipe}
	res, err := Process(context.Background(), r, nil)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if res.Text != "partial" {
		t.Fatalf("text=%q", res.Text)
	}
}

func TestProcess_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	body := strings.Join([]string{frame("first"), frame("second"), frame("third")}, "\n")

	res, err := Process(ctx, strings.NewReader(body), func(d string) {
		if d == "first" {
			cancel()
		}
	})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if res.Text != "first" {
		t.Fatalf("text=%q", res.Text)
	}
}

func TestProcess_OversizedFrameIsSkipped(t *testing.T) {
	t.Parallel()

	body := strings.Join([]string{
		frame("before"),
		"data: " + strings.Repeat("x", 2*MaxFrameSize),
		frame("after"),
		"data: [DONE]",
	}, "\n")

	res, err := Process(context.Background(), strings.NewReader(body), nil)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Text != "beforeafter" {
		t.Fatalf("text=%q", res.Text)
	}
	if res.Stats.Skipped != 1 || res.Stats.Frames != 4 || !res.Stats.Sentinel {
		t.Fatalf("stats=%+v", res.Stats)
	}
}

func TestLines(t *testing.T) {
	t.Parallel()

	body := "a\r\n\n" + strings.Repeat("y", MaxFrameSize+1) + "\nb"
	frames, readErr := Lines(strings.NewReader(body))
	got := slices.Collect(frames)
	if err := readErr(); err != nil {
		t.Fatalf("err=%v", err)
	}
	if !slices.Equal(got, []string{"a", "", "b"}) {
		t.Fatalf("lines=%q", got)
	}
}
