// Package advice runs the records → prompt → model pipeline.
package advice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"sleepadvice/internal/input"
	"sleepadvice/internal/llm"
	"sleepadvice/internal/prompt"
	"sleepadvice/internal/sleep"
)

const DefaultDays = 7

var ErrNoRecords = errors.New("no sleep records to analyze")

type Service struct {
	generator llm.Generator
	prompts   prompt.Builder
	logger    *slog.Logger
}

type ServiceConfig struct {
	Generator llm.Generator
	Prompts   prompt.Builder
	Logger    *slog.Logger
}

func NewService(cfg ServiceConfig) *Service {
	return &Service{
		generator: cfg.Generator,
		prompts:   cfg.Prompts,
		logger:    cfg.Logger,
	}
}

// Advise sends records for the last days to the model and returns its answer.
// Blank records are rejected without calling the model.
func (s *Service) Advise(ctx context.Context, records string, days int) (string, error) {
	if records == "" {
		return "", input.ErrEmptyInput
	}

	started := time.Now()
	text, err := s.generator.Generate(ctx, s.prompts.Build(records, days))
	if err != nil {
		return "", err
	}
	if s.logger != nil {
		s.logger.Debug("advice generated",
			slog.Int("days", days),
			slog.Int("advice_bytes", len(text)),
			slog.Duration("duration", time.Since(started)))
	}
	return text, nil
}

// AdviseFromStore formats the most recent days records from store and
// advises on them.
func (s *Service) AdviseFromStore(ctx context.Context, store sleep.Store, days int) (string, error) {
	records, err := store.Recent(ctx, days)
	if err != nil {
		return "", fmt.Errorf("load recent sleeps: %w", err)
	}
	if len(records) == 0 {
		return "", ErrNoRecords
	}
	return s.Advise(ctx, sleep.Format(records), days)
}
