// Package cli holds the sleepadvice commands.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"sleepadvice/internal/advice"
	"sleepadvice/internal/config"
	"sleepadvice/internal/input"
	"sleepadvice/internal/llm"
	"sleepadvice/internal/prompt"
	"sleepadvice/internal/transport"
)

const (
	bannerOpen  = "=== AI sleep diagnosis and advice ==="
	bannerClose = "====================================="
)

// GeneratorFactory builds the generation client once per process.
type GeneratorFactory func(cfg config.Config, logger *slog.Logger) (llm.Generator, error)

type Deps struct {
	Config       config.Config
	NewGenerator GeneratorFactory
}

// NewGeminiGenerator is the production GeneratorFactory.
func NewGeminiGenerator(cfg config.Config, logger *slog.Logger) (llm.Generator, error) {
	client, err := llm.NewGeminiClient(cfg.Gemini, transport.NewHTTPClient(cfg.RequestTimeout), logger)
	if err != nil {
		return nil, err
	}
	return client, nil
}

type adviseOptions struct {
	days int
	file string
}

// NewRootCommand returns the advise command with serve attached.
// Errors are returned unprinted so main can report them once.
func NewRootCommand(deps Deps) *cobra.Command {
	if deps.NewGenerator == nil {
		deps.NewGenerator = NewGeminiGenerator
	}

	var opts adviseOptions
	cmd := &cobra.Command{
		Use:   "sleepadvice",
		Short: "Analyze sleep records and get AI advice",
		Long: "Reads sleep records from --file or standard input, asks a Gemma model " +
			"for a short pattern analysis and three suggestions, and prints the answer.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdvise(cmd, deps, opts)
		},
	}
	cmd.Flags().IntVarP(&opts.days, "days", "d", advice.DefaultDays, "number of recent days the records cover")
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "sleep records text file (standard input when empty)")

	cmd.AddCommand(newServeCommand(deps))
	return cmd
}

func runAdvise(cmd *cobra.Command, deps Deps, opts adviseOptions) error {
	cfg := deps.Config
	logger := newLogger(cmd.ErrOrStderr(), cfg.LogLevel, slog.LevelWarn, false)

	generator, err := deps.NewGenerator(cfg, logger)
	if err != nil {
		return err
	}

	stdin := cmd.InOrStdin()
	if opts.file == "" && isTerminal(stdin) {
		fmt.Fprintln(cmd.ErrOrStderr(), "Enter your recent sleep records line by line, then press Ctrl+D (Ctrl+Z, Enter on Windows).")
	}
	records, err := input.Read(opts.file, stdin)
	if err != nil {
		return err
	}

	svc := advice.NewService(advice.ServiceConfig{
		Generator: generator,
		Prompts:   prompt.Builder{Language: cfg.Advice.Language, Tone: cfg.Advice.Tone},
		Logger:    logger,
	})
	text, err := svc.Advise(cmd.Context(), records, opts.days)
	if err != nil {
		return fmt.Errorf("generate advice: %w", err)
	}

	printAdvice(cmd.OutOrStdout(), text)
	return nil
}

func printAdvice(w io.Writer, text string) {
	fmt.Fprintf(w, "\n%s\n\n", bannerOpen)
	fmt.Fprintln(w, text)
	fmt.Fprintf(w, "\n%s\n\n", bannerClose)
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
