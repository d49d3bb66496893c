package args

import (
	"context"
	"strings"
	"testing"

	"github.com/markis/content-creator/internal/config"
	"github.com/markis/content-creator/internal/prompt"
)

func TestParseArgs_Generate(t *testing.T) {
	t.Parallel()

	cfg := *config.NewDefaultConfig()
	got, err := ParseArgs(context.Background(), cfg, []string{"--type", "ppt", "--tone", "friendly", "--model", "mistral-small", "remote work"}, nil)
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}
	if got.Mode != ModeGenerate || got.Topic != "remote work" || got.Kind != prompt.KindSlideDeck || got.Tone != prompt.ToneFriendly {
		t.Fatalf("args=%+v", got)
	}
	if got.Model != "mistral-small" || got.OutputDir != "outputs" {
		t.Fatalf("args=%+v", got)
	}
}

func TestParseArgs_Defaults(t *testing.T) {
	t.Parallel()

	cfg := *config.NewDefaultConfig()
	got, err := ParseArgs(context.Background(), cfg, []string{"coffee"}, nil)
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}
	if got.Kind != prompt.KindBlog || got.Tone != prompt.ToneProfessional || got.Model != cfg.Model {
		t.Fatalf("args=%+v", got)
	}
}

func TestParseArgs_TopicFromStdin(t *testing.T) {
	t.Parallel()

	cfg := *config.NewDefaultConfig()
	got, err := ParseArgs(context.Background(), cfg, []string{"--type", "email"}, strings.NewReader("  spring sale \n"))
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}
	if got.Topic != "spring sale" || got.Kind != prompt.KindEmail {
		t.Fatalf("args=%+v", got)
	}
}

func TestParseArgs_Errors(t *testing.T) {
	t.Parallel()

	cfg := *config.NewDefaultConfig()
	tests := map[string][]string{
		"no topic":     {},
		"bad type":     {"--type", "poem", "x"},
		"bad tone":     {"--tone", "angry", "x"},
		"two topics":   {"a", "b"},
		"unknown flag": {"--nope", "x"},
	}
	for name, argv := range tests {
		if _, err := ParseArgs(context.Background(), cfg, argv, nil); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestParseArgs_Serve(t *testing.T) {
	t.Parallel()

	cfg := *config.NewDefaultConfig()
	got, err := ParseArgs(context.Background(), cfg, []string{"serve", "--addr", ":8080"}, nil)
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}
	if got.Mode != ModeServe || got.Addr != ":8080" {
		t.Fatalf("args=%+v", got)
	}

	got, err = ParseArgs(context.Background(), cfg, []string{"serve"}, nil)
	if err != nil || got.Addr != cfg.Server.Addr {
		t.Fatalf("args=%+v err=%v", got, err)
	}
}

func TestParseArgs_Help(t *testing.T) {
	t.Parallel()

	cfg := *config.NewDefaultConfig()
	got, err := ParseArgs(context.Background(), cfg, []string{"--help"}, nil)
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}
	if got.Mode != ModeExit {
		t.Fatalf("mode=%v", got.Mode)
	}
}
