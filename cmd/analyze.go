package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/visibility-cli/internal/answer"
	"github.com/sells-group/visibility-cli/internal/config"
	"github.com/sells-group/visibility-cli/internal/ingest"
	"github.com/sells-group/visibility-cli/internal/model"
	"github.com/sells-group/visibility-cli/internal/pipeline"
	"github.com/sells-group/visibility-cli/internal/report"
)

var (
	analyzeStoryID     string
	analyzeSourceURL   string
	analyzeClientName  string
	analyzeProvider    string
	analyzeAliases     []string
	analyzeMode        string
	analyzeModels      string
	analyzeOutput      string
	analyzeNoMaskCheck bool
	analyzePillars     int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <transcript>",
	Short: "Analyze a transcript file and write the visibility report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if analyzeMode != "" {
			cfg.Model.Mode = model.NormalizeMode(analyzeMode)
		}
		if err := cfg.Validate("analyze"); err != nil {
			return err
		}

		req, err := buildAnalyzeRequest(args[0])
		if err != nil {
			return err
		}
		if req.Mode == model.ModeLive {
			models := req.Models
			if len(models) == 0 {
				models = cfg.Model.Models()
			}
			if err := cfg.CheckCredentials(models, answer.ProviderFor); err != nil {
				return err
			}
		}

		ctx := cmd.Context()
		env, err := initPipeline(ctx, cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		out, err := env.Pipeline.Run(ctx, req)
		if err != nil {
			return eris.Wrap(err, "analyze")
		}

		path := analyzeOutput
		if path == "" {
			path = filepath.Join(cfg.Storage.OutputDir, "visibility.json")
		}
		if err := report.WriteFile(path, out.Payload); err != nil {
			return err
		}

		zap.L().Info("analysis complete",
			zap.String("story_id", out.Result.StoryID),
			zap.String("output", path),
			zap.Int("pillars", len(out.Result.Pillars)),
			zap.Int("questions", out.Result.Summary.TotalQuestions),
			zap.Int("recognized", out.Result.Summary.AIProviderRecognizedIn),
			zap.Float64("coverage", out.Result.Scores.Coverage),
			zap.Float64("confidence", out.Result.Scores.Confidence),
		)
		fmt.Fprintf(os.Stdout, "Wrote %s (coverage %.2f, confidence %.2f)\n",
			path, out.Result.Scores.Coverage, out.Result.Scores.Confidence)
		return nil
	},
}

// buildAnalyzeRequest reads the transcript and maps flags onto a request.
func buildAnalyzeRequest(path string) (pipeline.Request, error) {
	text, err := ingest.ReadTranscript(path)
	if err != nil {
		return pipeline.Request{}, err
	}

	mode, err := model.ParseMode(cfg.Model.Mode)
	if err != nil {
		return pipeline.Request{}, err
	}

	models, err := config.ParseList(analyzeModels)
	if err != nil {
		return pipeline.Request{}, eris.Wrap(err, "parse --models")
	}

	return pipeline.Request{
		Text:            text,
		StoryID:         analyzeStoryID,
		ProviderName:    analyzeProvider,
		ProviderAliases: analyzeAliases,
		Models:          models,
		Mode:            mode,
		SourceURL:       analyzeSourceURL,
		ClientName:      analyzeClientName,
		TargetCount:     analyzePillars,
		SkipMaskCheck:   analyzeNoMaskCheck,
	}, nil
}

func init() {
	f := analyzeCmd.Flags()
	f.StringVar(&analyzeStoryID, "story-id", "sample-story", "story identifier")
	f.StringVar(&analyzeSourceURL, "source-url", "", "URL of the source story")
	f.StringVar(&analyzeClientName, "client-name", "", "customer named in the story")
	f.StringVar(&analyzeProvider, "provider-name", "", "AI provider to measure (default from config)")
	f.StringArrayVar(&analyzeAliases, "provider-alias", nil, "provider alias to mask (repeatable)")
	f.StringVar(&analyzeMode, "mode", "", "answer mode: stub or live (default from config)")
	f.StringVar(&analyzeModels, "models", "", "comma-separated models to ask (default from config)")
	f.StringVar(&analyzeOutput, "output", "artifacts/visibility.json", "path of the JSON report")
	f.BoolVar(&analyzeNoMaskCheck, "no-mask-check", false, "skip the residual alias check after masking")
	f.IntVar(&analyzePillars, "pillars", 0, "number of pillars to extract (default from config)")
	rootCmd.AddCommand(analyzeCmd)
}
