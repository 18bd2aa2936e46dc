package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/teemow/inboxassist/internal/inference"
	"github.com/teemow/inboxassist/internal/tools/batch"
)

func newModelsCmd() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the models served by the inference service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, nil)
			if err != nil {
				return err
			}
			defer closeApp(a)

			models, err := a.Inference.ListModels(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list models: %w", err)
			}
			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), models)
			}
			newPrinter(cmd.OutOrStdout()).models(models, a.Inference.Model())
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the models as JSON")
	return cmd
}

func newModelInfoCmd() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "model-info",
		Short: "Show the metadata of the configured model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, nil)
			if err != nil {
				return err
			}
			defer closeApp(a)

			info, err := a.Inference.ModelInfo(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get model info: %w", err)
			}
			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), info)
			}
			newPrinter(cmd.OutOrStdout()).modelInfo(info)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the model info as JSON")
	return cmd
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check whether the inference service is ready",
		Long:  "Check whether the inference service is ready. Exits non-zero when it is not.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, nil)
			if err != nil {
				return err
			}
			defer closeApp(a)

			ready := a.Inference.TestConnection(cmd.Context())
			newPrinter(cmd.OutOrStdout()).health(a.Config.Server.URL, ready)
			if !ready {
				return fmt.Errorf("inference service is not ready")
			}
			return nil
		},
	}
}

func newGenerateCmd() *cobra.Command {
	var (
		prompts     []string
		batchMode   bool
		maxTokens   int
		temperature float64
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate text for a prompt without an item",
		Long: `Send prompts straight to the configured model. --prompt may be repeated;
with --batch all prompts go out in one request and the results are printed
as JSON.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, nil)
			if err != nil {
				return err
			}
			defer closeApp(a)

			var override inference.Parameters
			if cmd.Flags().Changed("max-tokens") {
				override.MaxTokens = inference.Int(maxTokens)
			}
			if cmd.Flags().Changed("temperature") {
				override.Temperature = inference.Float(temperature)
			}
			params := inference.Merge(a.Orchestrator.DefaultParameters(), override)

			ctx := cmd.Context()
			if batchMode {
				responses, err := a.Inference.GenerateBatch(ctx, prompts, params)
				if err != nil {
					return fmt.Errorf("batch generation failed: %w", err)
				}
				results := make([]batch.Result, len(prompts))
				for i := range prompts {
					id := strconv.Itoa(i)
					if i < len(responses) {
						results[i] = batch.NewSuccessResult(id, responses[i].Text())
					} else {
						results[i] = batch.NewErrorResult(id, fmt.Errorf("no response for prompt"))
					}
				}
				fmt.Fprintln(cmd.OutOrStdout(), batch.FormatResults(results))
				return nil
			}

			results := batch.ProcessBatch(prompts, func(prompt string) (string, error) {
				resp, err := a.Inference.GenerateText(ctx, prompt, params)
				if err != nil {
					return "", err
				}
				return resp.Text(), nil
			})
			p := newPrinter(cmd.OutOrStdout())
			failed := 0
			for _, r := range results {
				if r.Status == batch.StatusError {
					failed++
					p.errorLine(r.Error)
					continue
				}
				p.printf("%s\n", r.Result)
			}
			if failed > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "%d of %d prompts failed\n", failed, len(results))
				return fmt.Errorf("generation failed")
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&prompts, "prompt", nil, "Prompt to send (repeatable)")
	cmd.Flags().BoolVar(&batchMode, "batch", false, "Send all prompts in one batch request")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", inference.DefaultMaxTokens, "Maximum number of tokens to generate")
	cmd.Flags().Float64Var(&temperature, "temperature", inference.DefaultTemperature, "Sampling temperature")
	_ = cmd.MarkFlagRequired("prompt")

	return cmd
}
