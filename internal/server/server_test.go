package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/markis/content-creator/internal/client"
	"github.com/markis/content-creator/internal/creator"
	"github.com/markis/content-creator/internal/metrics"
	"github.com/markis/content-creator/internal/prompt"
)

type fakeGenerator struct {
	res *creator.Result
	err error
	got prompt.Request
}

func (f *fakeGenerator) Generate(_ context.Context, req prompt.Request, _ func(string)) (*creator.Result, error) {
	f.got = req
	return f.res, f.err
}

func postForm(t *testing.T, h http.Handler, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIndex(t *testing.T) {
	t.Parallel()

	s := New(&fakeGenerator{}, t.TempDir(), nil, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{`name="topic"`, `value="slide-deck"`, `value="persuasive"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("body missing %q", want)
		}
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatal("missing request id header")
	}
}

func TestGenerate_Text(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{res: &creator.Result{Text: "Dear <reader>"}}
	s := New(gen, t.TempDir(), nil, nil)

	rec := postForm(t, s.Handler(), url.Values{"topic": {"sale"}, "type": {"email"}, "tone": {"friendly"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body)
	}
	if gen.got != (prompt.Request{Topic: "sale", Kind: prompt.KindEmail, Tone: prompt.ToneFriendly}) {
		t.Fatalf("request=%+v", gen.got)
	}
	if !strings.Contains(rec.Body.String(), "Dear &lt;reader&gt;") {
		t.Fatalf("content not escaped in body: %s", rec.Body)
	}
}

func TestGenerate_DeckLink(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	gen := &fakeGenerator{res: &creator.Result{Text: "Slide 1", DeckPath: filepath.Join(dir, "slide-deck_x_1.pptx")}}
	s := New(gen, dir, nil, nil)

	rec := postForm(t, s.Handler(), url.Values{"topic": {"x"}, "type": {"ppt"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `href="/download/slide-deck_x_1.pptx"`) {
		t.Fatalf("body=%s", rec.Body)
	}
	if gen.got.Kind != prompt.KindSlideDeck || gen.got.Tone != prompt.ToneProfessional {
		t.Fatalf("request=%+v", gen.got)
	}
}

func TestGenerate_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		form   url.Values
		err    error
		status int
	}{
		{name: "missing topic", form: url.Values{"type": {"blog"}}, status: http.StatusBadRequest},
		{name: "bad type", form: url.Values{"topic": {"x"}, "type": {"poem"}}, status: http.StatusBadRequest},
		{name: "bad tone", form: url.Values{"topic": {"x"}, "tone": {"rude"}}, status: http.StatusBadRequest},
		{name: "no content", form: url.Values{"topic": {"x"}}, err: creator.ErrNoContent, status: http.StatusBadGateway},
		{name: "transport", form: url.Values{"topic": {"x"}}, err: &client.TransportError{StatusCode: 500}, status: http.StatusBadGateway},
		{name: "other", form: url.Values{"topic": {"x"}}, err: io.ErrUnexpectedEOF, status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := New(&fakeGenerator{err: tt.err}, t.TempDir(), nil, nil)
			rec := postForm(t, s.Handler(), tt.form)
			if rec.Code != tt.status {
				t.Fatalf("status=%d want %d", rec.Code, tt.status)
			}
			if !strings.Contains(rec.Body.String(), `class="error"`) {
				t.Fatalf("body=%s", rec.Body)
			}
		})
	}
}

func TestDownload(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "deck.pptx"), []byte("zip"), 0o600); err != nil {
		t.Fatal(err)
	}
	s := New(&fakeGenerator{}, dir, nil, nil)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/download/deck.pptx", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "zip" {
		t.Fatalf("status=%d body=%q", rec.Code, rec.Body)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "deck.pptx") {
		t.Fatalf("content disposition=%q", cd)
	}

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/download/missing.pptx", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing file status=%d", rec.Code)
	}

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/download/..", nil))
	if rec.Code == http.StatusOK {
		t.Fatal("dot-dot download should not succeed")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	m := metrics.New()
	m.Generations.WithLabelValues("blog", "ok").Inc()
	s := New(&fakeGenerator{}, t.TempDir(), m, nil)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "content_creator_generations_total") {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body)
	}
}
