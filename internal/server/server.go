// Package server serves the content creation web form.
package server

import (
	"context"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/markis/content-creator/internal/client"
	"github.com/markis/content-creator/internal/creator"
	"github.com/markis/content-creator/internal/logger"
	"github.com/markis/content-creator/internal/metrics"
	"github.com/markis/content-creator/internal/output"
	"github.com/markis/content-creator/internal/prompt"
)

// Generator produces content for a request.
type Generator interface {
	Generate(ctx context.Context, req prompt.Request, observe func(string)) (*creator.Result, error)
}

type Server struct {
	gen       Generator
	outputDir string
	metrics   *metrics.Metrics
	log       *slog.Logger
	engine    *gin.Engine
}

func New(gen Generator, outputDir string, m *metrics.Metrics, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	gin.SetMode(gin.ReleaseMode)

	s := &Server{gen: gen, outputDir: outputDir, metrics: m, log: log}

	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())
	r.SetHTMLTemplate(pageTemplate)

	r.GET("/", s.index)
	r.POST("/", s.generate)
	r.GET("/download/:name", s.download)
	if m != nil {
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}

	s.engine = r
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("serving web form", "addr", "http://"+addr+"/")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, id := logger.WithRequest(c.Request.Context(), s.log)
		c.Request = c.Request.WithContext(ctx)
		c.Header("X-Request-Id", id)

		start := time.Now()
		c.Next()
		logger.FromContext(ctx).Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start))
	}
}

type page struct {
	Kinds    []prompt.Kind
	Tones    []prompt.Tone
	Topic    string
	Kind     prompt.Kind
	Tone     prompt.Tone
	Content  string
	Download string
	Error    string
}

func newPage() page {
	return page{Kinds: prompt.Kinds, Tones: prompt.Tones, Kind: prompt.KindBlog, Tone: prompt.ToneProfessional}
}

func (s *Server) index(c *gin.Context) {
	c.HTML(http.StatusOK, "index", newPage())
}

func (s *Server) generate(c *gin.Context) {
	p := newPage()
	p.Topic = c.PostForm("topic")

	kind, err := prompt.ParseKind(c.DefaultPostForm("type", string(prompt.KindBlog)))
	if err != nil {
		p.Error = err.Error()
		c.HTML(http.StatusBadRequest, "index", p)
		return
	}
	tone, err := prompt.ParseTone(c.DefaultPostForm("tone", string(prompt.ToneProfessional)))
	if err != nil {
		p.Error = err.Error()
		c.HTML(http.StatusBadRequest, "index", p)
		return
	}
	p.Kind, p.Tone = kind, tone
	if p.Topic == "" {
		p.Error = "topic is required"
		c.HTML(http.StatusBadRequest, "index", p)
		return
	}

	res, err := s.gen.Generate(c.Request.Context(), prompt.Request{Topic: p.Topic, Kind: kind, Tone: tone}, nil)
	if err != nil {
		logger.FromContext(c.Request.Context()).Error("generation failed", "error", err)
		p.Error = err.Error()
		var te *client.TransportError
		switch {
		case errors.Is(err, creator.ErrNoContent), errors.As(err, &te):
			c.HTML(http.StatusBadGateway, "index", p)
		default:
			c.HTML(http.StatusInternalServerError, "index", p)
		}
		return
	}

	if res.DeckPath != "" {
		p.Download = "/download/" + filepath.Base(res.DeckPath)
	} else {
		p.Content = res.Text
	}
	c.HTML(http.StatusOK, "index", p)
}

func (s *Server) download(c *gin.Context) {
	name := c.Param("name")
	path, err := output.Resolve(s.outputDir, name)
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		c.String(http.StatusNotFound, "file not found")
		return
	}
	c.FileAttachment(path, name)
}

var pageTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Content Creator</title>
</head>
<body>
<h1>Content Creator</h1>
<form method="post" action="/">
  <label>Topic <input type="text" name="topic" value="{{.Topic}}" required></label>
  <label>Type
    <select name="type">
    {{- range .Kinds}}
      <option value="{{.}}"{{if eq . $.Kind}} selected{{end}}>{{.}}</option>
    {{- end}}
    </select>
  </label>
  <label>Tone
    <select name="tone">
    {{- range .Tones}}
      <option value="{{.}}"{{if eq . $.Tone}} selected{{end}}>{{.}}</option>
    {{- end}}
    </select>
  </label>
  <button type="submit">Generate</button>
</form>
{{- if .Error}}
<p class="error">{{.Error}}</p>
{{- end}}
{{- if .Download}}
<p><a href="{{.Download}}">Download presentation</a></p>
{{- end}}
{{- if .Content}}
<pre>{{.Content}}</pre>
{{- end}}
</body>
</html>
`))
