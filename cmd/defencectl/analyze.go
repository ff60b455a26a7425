package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/kirillkom/defence-assistant/internal/bootstrap"
	"github.com/kirillkom/defence-assistant/internal/config"
	"github.com/kirillkom/defence-assistant/internal/core/analysis"
	"github.com/kirillkom/defence-assistant/internal/core/domain"
	"github.com/kirillkom/defence-assistant/internal/infrastructure/extractor/document"
)

type analyzeOptions struct {
	asJSON  bool
	offline bool
}

func newAnalyzeCommand(root *rootOptions) *cobra.Command {
	opts := analyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Analyse a claim document and print the defence report",
		Long: "Extracts the text of a PDF, DOCX or TXT document, asks the configured LLM " +
			"provider for a defence analysis and prints the report. With --offline the " +
			"fixed fallback analysis is used and no provider is contacted.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := root.logger(cmd)

			var pipeline *analysis.Pipeline
			if opts.offline {
				pipeline = analysis.NewPipeline(nil, logger, 0)
			} else {
				cfg := config.Load()
				completer, err := bootstrap.NewCompleter(cfg)
				if err != nil {
					return fmt.Errorf("init llm provider: %w", err)
				}
				pipeline = bootstrap.NewPipeline(cfg, completer, logger, nil)
			}
			return runAnalyze(cmd, args[0], opts, pipeline, logger)
		},
	}
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print the structured analysis as JSON")
	cmd.Flags().BoolVar(&opts.offline, "offline", false, "skip the LLM and use the fixed fallback analysis")
	return cmd
}

func runAnalyze(cmd *cobra.Command, path string, opts analyzeOptions, pipeline *analysis.Pipeline, logger *slog.Logger) error {
	if !domain.IsSupportedDocument(path) {
		return fmt.Errorf("unsupported file type %q: use pdf, docx or txt", domain.DocumentExtension(path))
	}
	content, err := readDocument(path)
	if err != nil {
		return err
	}

	text, err := document.NewExtractor().Extract(cmd.Context(), content, path)
	if err != nil {
		return fmt.Errorf("extract text: %w", err)
	}
	text = strings.TrimSpace(text)
	if n := utf8.RuneCountInString(text); n < domain.MinAnalysableChars {
		return fmt.Errorf("document has %d characters of text, need at least %d", n, domain.MinAnalysableChars)
	}

	outcome := pipeline.Analyze(cmd.Context(), text)
	logger.Info("defencectl.analyze.done", "file", path, "fell_back", outcome.FellBack)

	if opts.asJSON {
		return writeAnalysisJSON(cmd.OutOrStdout(), outcome)
	}
	_, err = io.WriteString(cmd.OutOrStdout(), analysis.FormatReport(outcome.Result)+"\n")
	return err
}

func readDocument(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.Size() == 0 {
		return nil, errors.New("document is empty")
	}
	if info.Size() > domain.MaxUploadBytes {
		return nil, fmt.Errorf("document is %d bytes, limit is %d", info.Size(), domain.MaxUploadBytes)
	}
	return os.ReadFile(path)
}

func writeAnalysisJSON(w io.Writer, outcome analysis.Outcome) error {
	payload := map[string]any{
		"analysis":           outcome.Result,
		"formatted_response": analysis.FormatReport(outcome.Result),
		"outcome":            domain.OutcomeAnalyzed,
	}
	if outcome.FellBack {
		payload["outcome"] = domain.OutcomeFallback
		payload["fallback_reason"] = outcome.Err.Error()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}
