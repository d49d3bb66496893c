package args

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/markis/content-creator/internal/config"
	"github.com/markis/content-creator/internal/prompt"
)

// Mode selects what the program does after parsing.
type Mode int

const (
	ModeGenerate Mode = iota
	ModeServe
	ModeExit // help or completion output was printed, nothing left to do
)

// Arguments represents the command-line arguments structure.
type Arguments struct {
	Mode         Mode
	Topic        string
	Kind         prompt.Kind
	Tone         prompt.Tone
	Model        string
	OutputDir    string
	Addr         string
	UsePlainText bool
}

// ParseArgs parses argv and, when stdin is not nil, reads the topic from it.
// It uses Cobra to handle the generate flags and the serve subcommand.
func ParseArgs(ctx context.Context, cfg config.Config, argv []string, stdin io.Reader) (Arguments, error) {
	args := Arguments{Mode: ModeExit}
	var kind, tone string

	rootCmd := &cobra.Command{
		Use:   "content-creator [flags] [topic]",
		Short: "Generate blog posts, social posts, emails and slide decks with Mistral AI",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, cmdArgs []string) error {
			args.Mode = ModeGenerate
			if len(cmdArgs) > 0 {
				args.Topic = strings.TrimSpace(cmdArgs[0])
			}
			return nil
		},
		SilenceErrors: true, // We'll handle error reporting
		SilenceUsage:  true, // We'll handle usage display
	}

	rootCmd.Flags().StringVar(&kind, "type", string(prompt.KindBlog), "Content type: "+joinKinds())
	rootCmd.Flags().StringVar(&tone, "tone", string(prompt.ToneProfessional), "Content tone: "+joinTones())
	rootCmd.PersistentFlags().StringVar(&args.Model, "model", cfg.Model, "The AI model to use")
	rootCmd.PersistentFlags().StringVar(&args.OutputDir, "output-dir", cfg.OutputDir, "Directory for generated files")
	rootCmd.Flags().BoolVar(&args.UsePlainText, "plain", shouldUsePlainText(cfg), "Disable markdown rendering")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the content creation web form",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, cmdArgs []string) error {
			args.Mode = ModeServe
			return nil
		},
	}
	serveCmd.Flags().StringVar(&args.Addr, "addr", cfg.Server.Addr, "Listen address")
	rootCmd.AddCommand(serveCmd)

	rootCmd.SetArgs(argv)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		return Arguments{}, err
	}
	if args.Mode != ModeGenerate {
		return args, nil
	}

	var err error
	if args.Kind, err = prompt.ParseKind(kind); err != nil {
		return Arguments{}, err
	}
	if args.Tone, err = prompt.ParseTone(tone); err != nil {
		return Arguments{}, err
	}

	// Read from stdin if available
	if args.Topic == "" && stdin != nil {
		scanner := bufio.NewScanner(stdin)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024) // 1MB max buffer
		var buf strings.Builder
		for scanner.Scan() {
			buf.WriteString(scanner.Text())
			buf.WriteByte('\n')
		}
		if err := scanner.Err(); err != nil {
			return Arguments{}, fmt.Errorf("failed to read stdin: %w", err)
		}
		args.Topic = strings.TrimSpace(buf.String())
	}

	if args.Topic == "" {
		return Arguments{}, errors.New("no topic provided")
	}

	return args, nil
}

// PipedStdin returns os.Stdin when it is a pipe or file rather than a terminal.
func PipedStdin() io.Reader {
	if stat, err := os.Stdin.Stat(); err == nil && (stat.Mode()&os.ModeCharDevice) == 0 {
		return os.Stdin
	}
	return nil
}

// shouldUsePlainText determines if plain text output should be used based on environment and terminal settings.
func shouldUsePlainText(cfg config.Config) bool {
	// Check if the rendering format is set to plain
	if cfg.UsePlainText() {
		return true
	}

	// Check if output is being redirected
	if fileInfo, _ := os.Stdout.Stat(); fileInfo != nil {
		if (fileInfo.Mode() & os.ModeCharDevice) == 0 {
			return true
		}
	}

	// Check for NO_COLOR environment variable
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		return true
	}

	// Check for TERM=dumb
	if term := os.Getenv("TERM"); term == "dumb" {
		return true
	}

	return false
}

func joinKinds() string {
	names := make([]string, len(prompt.Kinds))
	for i, k := range prompt.Kinds {
		names[i] = string(k)
	}
	return strings.Join(names, "|")
}

func joinTones() string {
	names := make([]string, len(prompt.Tones))
	for i, t := range prompt.Tones {
		names[i] = string(t)
	}
	return strings.Join(names, "|")
}
