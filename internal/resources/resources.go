package resources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/inboxassist/internal/actions"
	"github.com/teemow/inboxassist/internal/app"
	"github.com/teemow/inboxassist/internal/reply"
)

// Resource URIs.
const (
	URIReplyStyles     = "inboxassist://reply/styles"
	URIActionTemplates = "inboxassist://actions/templates"
	URIConfig          = "inboxassist://config"
)

const redacted = "[redacted]"

// RegisterResources registers the read-only assistant resources: reply
// style presets, the prompt template of every action and the effective
// configuration without secrets.
func RegisterResources(s *mcpserver.MCPServer, a *app.App) error {
	if a == nil {
		return errors.New("app is required")
	}

	s.AddResource(mcp.NewResource(
		URIReplyStyles,
		"Reply Styles",
		mcp.WithResourceDescription("Reply style presets with their prompt templates and generation parameters"),
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return jsonContents(request.Params.URI, reply.Presets())
	})

	s.AddResource(mcp.NewResource(
		URIActionTemplates,
		"Action Prompt Templates",
		mcp.WithResourceDescription("The prompt template used by each assistant action"),
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return jsonContents(request.Params.URI, ActionTemplates(a.Orchestrator))
	})

	s.AddResource(mcp.NewResource(
		URIConfig,
		"Configuration",
		mcp.WithResourceDescription("Effective configuration with secrets redacted"),
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return jsonContents(request.Params.URI, RedactedConfig(a))
	})

	return nil
}

// ActionTemplates maps every action kind to the template it renders.
func ActionTemplates(o *actions.Orchestrator) map[actions.Kind]string {
	out := make(map[actions.Kind]string, len(actions.Kinds()))
	for _, k := range actions.Kinds() {
		out[k] = o.Template(actions.Request{Kind: k})
	}
	return out
}

// RedactedConfig returns a copy of the configuration of a with every
// secret replaced.
func RedactedConfig(a *app.App) map[string]any {
	cfg := *a.Config
	if cfg.Security.APIKey != "" {
		cfg.Security.APIKey = redacted
	}
	if cfg.Google.ClientSecret != "" {
		cfg.Google.ClientSecret = redacted
	}
	if cfg.IMAP.Password != "" {
		cfg.IMAP.Password = redacted
	}

	return map[string]any{
		"file":             cfg.File,
		"server":           cfg.Server,
		"model":            cfg.Model,
		"security":         cfg.Security,
		"context":          cfg.Context,
		"prompt_templates": cfg.PromptTemplates,
		"reply":            cfg.Reply,
		"metrics":          cfg.Metrics,
		"google":           cfg.Google,
		"imap":             cfg.IMAP,
		"identity":         cfg.Identity,
	}
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", uri, err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}
