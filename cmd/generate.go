package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sengol-ai/question-engine/internal/engine"
	"github.com/sengol-ai/question-engine/internal/report"
)

var (
	generateInput     string
	generateIntensity string
	generateOutput    string
	generateXLSX      string
	generateMarkdown  bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Score and filter a candidate batch against the incident corpus",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		req, err := loadRequest(generateInput)
		if err != nil {
			return err
		}
		if generateIntensity != "" {
			req.Intensity = generateIntensity
		}

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		result, err := e.pipeline.Generate(ctx, *req)
		if err != nil {
			return eris.Wrap(err, "generate")
		}

		zap.L().Info("generation complete",
			zap.String("run_id", result.RunID),
			zap.String("intensity", result.Intensity),
			zap.Int("risk", len(result.RiskQuestions)),
			zap.Int("compliance", len(result.ComplianceQuestions)),
		)

		if generateXLSX != "" {
			if err := report.WriteXLSX(result, generateXLSX); err != nil {
				return err
			}
			zap.L().Info("workbook written", zap.String("path", generateXLSX))
		}

		var out []byte
		if generateMarkdown {
			out = []byte(report.Markdown(result))
		} else {
			out, err = json.MarshalIndent(result, "", "  ")
			if err != nil {
				return eris.Wrap(err, "marshal result")
			}
			out = append(out, '\n')
		}

		if generateOutput == "" || generateOutput == "-" {
			_, err = os.Stdout.Write(out)
			return err
		}
		return os.WriteFile(generateOutput, out, 0o644)
	},
}

// loadRequest reads a generation request from a YAML or JSON file.
func loadRequest(path string) (*engine.Request, error) {
	if path == "" {
		return nil, eris.New("--input is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read request %s", path)
	}

	var req engine.Request
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, eris.Wrapf(err, "parse request %s", path)
		}
	default:
		if err := yaml.Unmarshal(data, &req); err != nil {
			return nil, eris.Wrapf(err, "parse request %s", path)
		}
	}
	return &req, nil
}

func init() {
	generateCmd.Flags().StringVarP(&generateInput, "input", "i", "", "candidate batch file (YAML or JSON)")
	generateCmd.Flags().StringVar(&generateIntensity, "intensity", "", "override the request intensity (high, medium, low)")
	generateCmd.Flags().StringVarP(&generateOutput, "output", "o", "-", "output path, - for stdout")
	generateCmd.Flags().StringVar(&generateXLSX, "xlsx", "", "also write an XLSX workbook to this path")
	generateCmd.Flags().BoolVar(&generateMarkdown, "markdown", false, "emit a markdown summary instead of JSON")
	rootCmd.AddCommand(generateCmd)
}
