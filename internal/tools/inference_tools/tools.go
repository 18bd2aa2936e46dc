package inference_tools

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/inboxassist/internal/app"
	"github.com/teemow/inboxassist/internal/inference"
	"github.com/teemow/inboxassist/internal/tools/batch"
	"github.com/teemow/inboxassist/internal/tools/common"
)

// RegisterInferenceTools registers the inference tools with the MCP server.
func RegisterInferenceTools(s *mcpserver.MCPServer, a *app.App) error {
	if a == nil {
		return errors.New("app is required")
	}

	generateOpts := append([]mcp.ToolOption{
		mcp.WithDescription("Generate text for a prompt with the configured model"),
		mcp.WithString("prompt",
			mcp.Required(),
			mcp.Description("The prompt to send"),
		),
	}, parameterOptions()...)
	s.AddTool(mcp.NewTool("inference_generate", generateOpts...),
		common.InstrumentedToolHandler("inference_generate", a, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleGenerate(ctx, request, a)
		}))

	batchOpts := append([]mcp.ToolOption{
		mcp.WithDescription("Generate text for several prompts in one request"),
		mcp.WithString("prompts",
			mcp.Required(),
			mcp.Description("A prompt or a JSON array of prompts"),
		),
	}, parameterOptions()...)
	s.AddTool(mcp.NewTool("inference_generate_batch", batchOpts...),
		common.InstrumentedToolHandler("inference_generate_batch", a, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleGenerateBatch(ctx, request, a)
		}))

	s.AddTool(mcp.NewTool("inference_list_models",
		mcp.WithDescription("List the models served by the inference service"),
	), common.InstrumentedToolHandler("inference_list_models", a, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		models, err := a.Inference.ListModels(ctx)
		if err != nil {
			return common.ErrorResult("failed to list models", err), nil
		}
		return common.JSONResult(models)
	}))

	s.AddTool(mcp.NewTool("inference_model_info",
		mcp.WithDescription("Show the metadata of the configured model"),
	), common.InstrumentedToolHandler("inference_model_info", a, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		info, err := a.Inference.ModelInfo(ctx)
		if err != nil {
			return common.ErrorResult("failed to get model info", err), nil
		}
		return common.JSONResult(info)
	}))

	s.AddTool(mcp.NewTool("inference_health",
		mcp.WithDescription("Check whether the inference service is ready"),
	), common.InstrumentedToolHandler("inference_health", a, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleHealth(ctx, a), nil
	}))

	return nil
}

func parameterOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithNumber("max_tokens",
			mcp.Description("Maximum number of tokens to generate"),
		),
		mcp.WithNumber("temperature",
			mcp.Description("Sampling temperature"),
		),
		mcp.WithNumber("top_p",
			mcp.Description("Nucleus sampling probability mass"),
		),
	}
}

// parametersFromArgs merges the numeric overrides in args into the
// configured defaults.
func parametersFromArgs(args map[string]any, defaults inference.Parameters) (inference.Parameters, error) {
	var override inference.Parameters
	if v, ok := args["max_tokens"]; ok && v != nil {
		n, ok := v.(float64)
		if !ok || n < 1 || n != float64(int(n)) {
			return inference.Parameters{}, fmt.Errorf("max_tokens must be a positive integer")
		}
		override.MaxTokens = inference.Int(int(n))
	}
	if v, ok := args["temperature"]; ok && v != nil {
		f, ok := v.(float64)
		if !ok || f < 0 {
			return inference.Parameters{}, fmt.Errorf("temperature must be a non-negative number")
		}
		override.Temperature = inference.Float(f)
	}
	if v, ok := args["top_p"]; ok && v != nil {
		f, ok := v.(float64)
		if !ok || f < 0 || f > 1 {
			return inference.Parameters{}, fmt.Errorf("top_p must be between 0 and 1")
		}
		override.TopP = inference.Float(f)
	}
	return inference.Merge(defaults, override), nil
}

func handleGenerate(ctx context.Context, request mcp.CallToolRequest, a *app.App) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	prompt := common.StringArg(args, "prompt")
	if prompt == "" {
		return mcp.NewToolResultError("prompt is required"), nil
	}
	params, err := parametersFromArgs(args, a.Orchestrator.DefaultParameters())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resp, err := a.Inference.GenerateText(ctx, prompt, params)
	if err != nil {
		return common.ErrorResult("generation failed", err), nil
	}
	return mcp.NewToolResultText(resp.Text()), nil
}

func handleGenerateBatch(ctx context.Context, request mcp.CallToolRequest, a *app.App) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	prompts, err := batch.ParseStringOrArray(args["prompts"], "prompts")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	params, err := parametersFromArgs(args, a.Orchestrator.DefaultParameters())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	responses, err := a.Inference.GenerateBatch(ctx, prompts, params)
	if err != nil {
		return common.ErrorResult("batch generation failed", err), nil
	}

	results := make([]batch.Result, len(prompts))
	for i := range prompts {
		id := strconv.Itoa(i)
		if i >= len(responses) {
			results[i] = batch.NewErrorResult(id, errors.New("no response for prompt"))
			continue
		}
		results[i] = batch.NewSuccessResult(id, responses[i].Text())
	}
	return mcp.NewToolResultText(batch.FormatResults(results)), nil
}

func handleHealth(ctx context.Context, a *app.App) *mcp.CallToolResult {
	if !a.Inference.TestConnection(ctx) {
		return mcp.NewToolResultError(fmt.Sprintf("inference service at %s is not ready", a.Config.Server.URL))
	}
	return mcp.NewToolResultText(fmt.Sprintf("inference service at %s is ready (model %s)", a.Config.Server.URL, a.Inference.Model()))
}
