package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/markis/content-creator/internal/args"
	"github.com/markis/content-creator/internal/client"
	"github.com/markis/content-creator/internal/config"
	"github.com/markis/content-creator/internal/creator"
	"github.com/markis/content-creator/internal/logger"
	"github.com/markis/content-creator/internal/metrics"
	"github.com/markis/content-creator/internal/prompt"
	"github.com/markis/content-creator/internal/render"
	"github.com/markis/content-creator/internal/server"
)

// main function to parse arguments and run a generation or the web form.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.LoadConfig(ctx)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	a, err := args.ParseArgs(ctx, *cfg, os.Args[1:], args.PipedStdin())
	if err != nil {
		return err
	}
	if a.Mode == args.ModeExit {
		return nil
	}

	log := logger.Init(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	c, err := client.New(client.Config{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout,
	})
	if err != nil {
		return err
	}

	opts := creator.Options{
		Model:       a.Model,
		Temperature: cfg.Temperature,
		OutputDir:   a.OutputDir,
		Prompts: prompt.Builder{
			System: cfg.SystemPrompt,
			Slides: cfg.Slides,
			Kinds:  cfg.Prompts,
			Tones:  cfg.Tones,
		},
	}

	if a.Mode == args.ModeServe {
		m := metrics.New()
		opts.Metrics = m
		srv := server.New(creator.New(c, opts), a.OutputDir, m, log)
		return srv.Run(ctx, a.Addr)
	}

	ctx, _ = logger.WithRequest(ctx, log)
	return generate(ctx, creator.New(c, opts), a, cfg.Render.Wrap)
}

func generate(ctx context.Context, cr *creator.Creator, a args.Arguments, wrap int) error {
	fmt.Fprintf(os.Stderr, "Generating %s %s content about %q...\n\n", a.Tone, a.Kind, a.Topic)

	term := render.NewTerminalRenderer(os.Stdout, a.UsePlainText, wrap)
	res, err := cr.Generate(ctx, prompt.Request{Topic: a.Topic, Kind: a.Kind, Tone: a.Tone}, term.Observe)
	if cerr := term.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if errors.Is(err, creator.ErrNoContent) {
		return fmt.Errorf("the model returned no content for %q", a.Topic)
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(os.Stderr, "Text saved to:", res.TextPath)
	if a.Kind != prompt.KindSlideDeck {
		return nil
	}
	if res.DeckPath == "" {
		fmt.Fprintln(os.Stderr, "The reply contained no slides; no presentation was written.")
		return nil
	}

	outline := render.NewTerminalRenderer(os.Stderr, a.UsePlainText, wrap)
	if err := outline.RenderDeck(res.Deck); err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, "Presentation saved to:", res.DeckPath)
	return nil
}
