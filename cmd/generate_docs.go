package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/99designs/keyring"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/teemow/inboxassist/internal/app"
	"github.com/teemow/inboxassist/internal/config"
	"github.com/teemow/inboxassist/internal/credential"
	"github.com/teemow/inboxassist/internal/instrumentation"
	"github.com/teemow/inboxassist/internal/logging"
	"github.com/teemow/inboxassist/internal/resources"
)

func newGenerateDocsCmd() *cobra.Command {
	var (
		outputFile string
	)

	cmd := &cobra.Command{
		Use:   "generate-docs",
		Short: "Generate MCP tool documentation",
		Long: `Generate markdown documentation for all available MCP tools.
This command introspects the registered tools and outputs their documentation
in markdown format, ensuring the documentation is always accurate and in sync
with the actual tool implementations.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			markdown, err := toolsDocumentation(cmd.Context())
			if err != nil {
				return err
			}
			if outputFile != "" {
				if err := os.WriteFile(outputFile, []byte(markdown), 0644); err != nil {
					return fmt.Errorf("failed to write output file: %w", err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Documentation written to: %s\n", outputFile)
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), markdown)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

// toolsDocumentation registers every tool against a default configuration
// and renders their reference. No service is contacted. Tools that only
// exist with --yolo are found by registering a second, read-only server.
func toolsDocumentation(ctx context.Context) (string, error) {
	a, err := app.New(ctx, config.Default(),
		app.WithLogger(logging.Discard().Logger()),
		app.WithInstrumentation(instrumentation.Config{}),
		app.WithSecrets(credential.NewStore(keyring.NewArrayKeyring(nil))))
	if err != nil {
		return "", err
	}
	defer closeApp(a)

	registered := func(readOnly bool) (map[string]*mcpserver.ServerTool, error) {
		mcpSrv := mcpserver.NewMCPServer("inboxassist", version,
			mcpserver.WithToolCapabilities(true),
			mcpserver.WithResourceCapabilities(false, false),
		)
		if err := registerAllTools(mcpSrv, a, readOnly); err != nil {
			return nil, err
		}
		return mcpSrv.ListTools(), nil
	}

	all, err := registered(false)
	if err != nil {
		return "", err
	}
	readOnlyTools, err := registered(true)
	if err != nil {
		return "", err
	}

	tools := make([]mcp.Tool, 0, len(all))
	writeTools := make(map[string]bool)
	for name, serverTool := range all {
		tools = append(tools, serverTool.Tool)
		if _, ok := readOnlyTools[name]; !ok {
			writeTools[name] = true
		}
	}

	return generateToolsMarkdown(tools, writeTools), nil
}

// generateToolsMarkdown renders tools grouped by category. Tools in
// writeTools are marked as requiring --yolo.
func generateToolsMarkdown(tools []mcp.Tool, writeTools map[string]bool) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# MCP Tools Reference\n\n")
	sb.WriteString("This document provides a complete reference of all tools available when running inboxassist as an MCP server.\n\n")
	sb.WriteString("**Note:** This documentation is automatically generated from the tool definitions.\n\n")
	sb.WriteString("The server starts in read-only mode. Tools marked *requires --yolo* write reply drafts and are only registered when `serve` runs with `--yolo`.\n\n")

	// Group tools by category
	toolsByCategory := groupToolsByCategory(tools)

	// Table of contents
	sb.WriteString("## Table of Contents\n\n")
	categories := make([]string, 0, len(toolsByCategory))
	for category := range toolsByCategory {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	for _, category := range categories {
		anchor := strings.ToLower(strings.ReplaceAll(category, " ", "-"))
		sb.WriteString(fmt.Sprintf("- [%s](#%s)\n", category, anchor))
	}
	sb.WriteString("\n")

	// Item source note
	sb.WriteString("## Item Sources\n\n")
	sb.WriteString("The assistant tools run against exactly one item, selected by one of these arguments:\n\n")
	sb.WriteString("- `eml`: path of an RFC 5322 message file\n")
	sb.WriteString("- `gmail_id`: Gmail message ID, with an optional `account`\n")
	sb.WriteString("- `imap_uid`: UID of a message in the configured IMAP mailbox\n")
	sb.WriteString("- `calendar_event_id`: Google Calendar event ID, with an optional `account`\n\n")

	sb.WriteString("## Resources\n\n")
	sb.WriteString(fmt.Sprintf("- `%s`: reply style presets with their prompt templates\n", resources.URIReplyStyles))
	sb.WriteString(fmt.Sprintf("- `%s`: prompt templates per action\n", resources.URIActionTemplates))
	sb.WriteString(fmt.Sprintf("- `%s`: effective configuration, secrets redacted\n\n", resources.URIConfig))

	// Generate documentation for each category
	for _, category := range categories {
		categoryTools := toolsByCategory[category]
		sort.Slice(categoryTools, func(i, j int) bool {
			return categoryTools[i].Name < categoryTools[j].Name
		})

		sb.WriteString(fmt.Sprintf("## %s\n\n", category))

		for _, tool := range categoryTools {
			sb.WriteString(generateToolMarkdown(tool, writeTools[tool.Name]))
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

func groupToolsByCategory(tools []mcp.Tool) map[string][]mcp.Tool {
	categories := make(map[string][]mcp.Tool)

	for _, tool := range tools {
		category := getCategoryFromToolName(tool.Name)
		categories[category] = append(categories[category], tool)
	}

	return categories
}

func getCategoryFromToolName(name string) string {
	parts := strings.Split(name, "_")
	if len(parts) == 0 {
		return "Other"
	}

	prefix := parts[0]
	switch prefix {
	case "assistant":
		return "Assistant Tools"
	case "inference":
		return "Inference Tools"
	case "google":
		return "Google Authorization Tools"
	default:
		return "Other"
	}
}

func generateToolMarkdown(tool mcp.Tool, requiresWrite bool) string {
	var sb strings.Builder

	// Tool name
	sb.WriteString(fmt.Sprintf("### %s\n\n", tool.Name))

	// Description
	if tool.Description != "" {
		sb.WriteString(fmt.Sprintf("%s\n\n", tool.Description))
	}
	if requiresWrite {
		sb.WriteString("*requires --yolo*\n\n")
	}

	// Input schema
	if tool.InputSchema.Properties != nil && len(tool.InputSchema.Properties) > 0 {
		sb.WriteString("**Arguments:**\n")

		// Sort properties for consistent output
		propNames := make([]string, 0, len(tool.InputSchema.Properties))
		for name := range tool.InputSchema.Properties {
			propNames = append(propNames, name)
		}
		sort.Strings(propNames)

		for _, name := range propNames {
			prop := tool.InputSchema.Properties[name]
			isRequired := contains(tool.InputSchema.Required, name)

			requiredStr := "optional"
			if isRequired {
				requiredStr = "required"
			}

			// Get property type and description from the property map
			propMap, ok := prop.(map[string]interface{})
			if !ok {
				continue
			}

			propType := getPropertyType(propMap)

			sb.WriteString(fmt.Sprintf("- `%s` (%s): ", name, requiredStr))

			// Get description
			if desc, ok := propMap["description"].(string); ok {
				sb.WriteString(desc)
			} else {
				sb.WriteString(fmt.Sprintf("%s parameter", propType))
			}

			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func getPropertyType(prop map[string]interface{}) string {
	if t, ok := prop["type"].(string); ok {
		return t
	}
	return "any"
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
