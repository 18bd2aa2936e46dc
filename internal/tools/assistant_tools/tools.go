package assistant_tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/inboxassist/internal/actions"
	"github.com/teemow/inboxassist/internal/app"
	"github.com/teemow/inboxassist/internal/host"
	"github.com/teemow/inboxassist/internal/reply"
	"github.com/teemow/inboxassist/internal/tools/common"
)

// RegisterAssistantTools registers the assistant tools. In read-only mode
// assistant_reply is left out and calendar entries are never created.
func RegisterAssistantTools(s *mcpserver.MCPServer, a *app.App, readOnly bool) error {
	if a == nil {
		return errors.New("app is required")
	}

	kinds := make([]string, 0, len(actions.Kinds()))
	for _, k := range actions.Kinds() {
		kinds = append(kinds, string(k))
	}

	runOpts := []mcp.ToolOption{
		mcp.WithDescription("Run an assistant action against an email or appointment and return the generated text"),
		mcp.WithString("action",
			mcp.Required(),
			mcp.Description("Action to run"),
			mcp.Enum(kinds...),
		),
		mcp.WithString("target_language",
			mcp.Description("Target language for the translate action (e.g. 'Englisch')"),
		),
		mcp.WithString("custom_prompt",
			mcp.Description("Instruction for the custom action"),
		),
		mcp.WithBoolean("create_appointment",
			mcp.Description("For the calendar action: create the extracted appointment (not available in read-only mode)"),
		),
	}
	runOpts = append(runOpts, common.SourceOptions()...)
	s.AddTool(mcp.NewTool("assistant_run_action", runOpts...),
		common.InstrumentedToolHandler("assistant_run_action", a, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleRunAction(ctx, request, a, readOnly)
		}))

	if !readOnly {
		replyOpts := []mcp.ToolOption{
			mcp.WithDescription("Generate a reply to an email and put it into a reply draft"),
			mcp.WithString("style",
				mcp.Description("Reply style preset: "+strings.Join(reply.Styles(), ", ")),
			),
			mcp.WithString("instructions",
				mcp.Description("Additional instructions for the reply"),
			),
		}
		replyOpts = append(replyOpts, common.SourceOptions()...)
		s.AddTool(mcp.NewTool("assistant_reply", replyOpts...),
			common.InstrumentedToolHandler("assistant_reply", a, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return handleReply(ctx, request, a)
			}))
	}

	s.AddTool(mcp.NewTool("assistant_list_styles",
		mcp.WithDescription("List the reply style presets"),
	), common.InstrumentedToolHandler("assistant_list_styles", a, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleListStyles()
	}))

	return nil
}

// actionResponse is the tool output of assistant_run_action. The extracted
// context is not returned; clients get the generated text only.
type actionResponse struct {
	InvocationID       string               `json:"invocation_id"`
	Kind               actions.Kind         `json:"action"`
	Text               string               `json:"text"`
	Event              *actions.EventData   `json:"event_data,omitempty"`
	ParseError         string               `json:"error,omitempty"`
	Translation        *actions.Translation `json:"translation,omitempty"`
	AppointmentCreated bool                 `json:"appointment_created,omitempty"`
}

// replyResponse is the tool output of assistant_reply.
type replyResponse struct {
	InvocationID string `json:"invocation_id"`
	Text         string `json:"text"`
	Surface      string `json:"surface"`
}

// openSource opens the item named by the source arguments. eml paths are
// confined to mail.dir.
func openSource(ctx context.Context, a *app.App, args map[string]any) (app.Source, host.Item, host.Host, *mcp.CallToolResult) {
	src, err := common.SourceFromArgs(args)
	if err != nil {
		return src, nil, nil, mcp.NewToolResultError(err.Error())
	}
	if src.EML != "" {
		if src.EML, err = a.MailPath(src.EML); err != nil {
			return src, nil, nil, common.ErrorResult("failed to open item", err)
		}
	}
	item, h, err := a.Open(ctx, src)
	if err != nil {
		return src, nil, nil, common.ErrorResult("failed to open item", err)
	}
	return src, item, h, nil
}

func handleRunAction(ctx context.Context, request mcp.CallToolRequest, a *app.App, readOnly bool) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	kind, err := actions.ParseKind(common.StringArg(args, "action"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	req := actions.Request{
		Kind:           kind,
		TargetLanguage: common.StringArg(args, "target_language"),
		CustomPrompt:   common.StringArg(args, "custom_prompt"),
	}
	if kind == actions.KindTranslate && req.TargetLanguage == "" {
		return mcp.NewToolResultError("target_language is required for translate"), nil
	}
	if kind == actions.KindCustom && req.CustomPrompt == "" {
		return mcp.NewToolResultError("custom_prompt is required for custom"), nil
	}
	create, _ := args["create_appointment"].(bool)
	if create && readOnly {
		return mcp.NewToolResultError("create_appointment is not available in read-only mode"), nil
	}

	src, item, h, errResult := openSource(ctx, a, args)
	if errResult != nil {
		return errResult, nil
	}

	result, err := a.Orchestrator.Execute(ctx, item, req)
	if err != nil {
		return common.ErrorResult(string(kind)+" failed", err), nil
	}

	resp := actionResponse{
		InvocationID: result.InvocationID,
		Kind:         result.Kind,
		Text:         result.Text,
		Event:        result.Event,
		ParseError:   result.ParseError,
		Translation:  result.Translation,
	}
	if create && kind == actions.KindCalendar {
		if result.Event == nil {
			return mcp.NewToolResultError("no appointment to create: " + result.ParseError), nil
		}
		form, err := a.AppointmentForm(h, src.Account)
		if err != nil {
			return common.ErrorResult("no calendar available", err), nil
		}
		if err := a.Orchestrator.CreateAppointment(ctx, form, *result.Event); err != nil {
			return common.ErrorResult("failed to create appointment", err), nil
		}
		resp.AppointmentCreated = true
	}

	return common.JSONResult(resp)
}

func handleReply(ctx context.Context, request mcp.CallToolRequest, a *app.App) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	style := common.StringArg(args, "style")
	if style == "" {
		style = a.Config.Reply.DefaultStyle
	}
	if style != "" && !reply.IsStyle(style) {
		return mcp.NewToolResultError(fmt.Sprintf("unknown style %q, use one of: %s", style, strings.Join(reply.Styles(), ", "))), nil
	}
	opts := reply.StyleOptions(style)
	opts.CustomInstructions = common.StringArg(args, "instructions")

	_, item, h, errResult := openSource(ctx, a, args)
	if errResult != nil {
		return errResult, nil
	}

	outcome, err := a.Injector.Reply(ctx, h, item, opts)
	if err != nil {
		return common.ErrorResult("reply failed", err), nil
	}
	return common.JSONResult(replyResponse{
		InvocationID: outcome.InvocationID,
		Text:         outcome.Text,
		Surface:      outcome.Surface,
	})
}

func handleListStyles() (*mcp.CallToolResult, error) {
	type style struct {
		Name  string `json:"name"`
		Label string `json:"label"`
	}
	presets := reply.Presets()
	out := make([]style, len(presets))
	for i, p := range presets {
		out[i] = style{Name: p.Name, Label: p.Label}
	}
	return common.JSONResult(out)
}
