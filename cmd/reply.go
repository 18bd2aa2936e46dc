package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/teemow/inboxassist/internal/eml"
	"github.com/teemow/inboxassist/internal/host"
	"github.com/teemow/inboxassist/internal/reply"
)

func newReplyCmd() *cobra.Command {
	var (
		src          sourceFlags
		style        string
		instructions string
		open         bool
		jsonOut      bool
	)

	cmd := &cobra.Command{
		Use:   "reply",
		Short: "Generate a reply and put it into a reply draft",
		Long: `Generate a reply to an email and deliver it to the host: a reply draft
for Gmail and IMAP, a .reply.eml file next to an .eml source. The reply is
never sent.

Style presets: ` + strings.Join(reply.Styles(), ", ") + `. Without --style the
configured reply.default_style is used; on a terminal you are asked to pick one.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, nil, src.apply)
			if err != nil {
				return err
			}
			defer closeApp(a)

			if style == "" {
				style = a.Config.Reply.DefaultStyle
				if style == "" && isTerminal(os.Stdin) {
					if style, err = pickStyle(); err != nil {
						return err
					}
				}
			}
			if style != "" && !reply.IsStyle(style) {
				return fmt.Errorf("unknown style %q, use one of: %s", style, strings.Join(reply.Styles(), ", "))
			}
			opts := reply.StyleOptions(style)
			opts.CustomInstructions = instructions

			ctx := cmd.Context()
			item, h, err := a.Open(ctx, src.source())
			if err != nil {
				return err
			}

			var outcome *reply.Outcome
			if open {
				outcome, err = a.Injector.OpenReplyFormAndGenerate(ctx, h, item, opts)
			} else {
				outcome, err = a.Injector.Reply(ctx, h, item, opts)
			}
			if err != nil {
				return fmt.Errorf("reply failed: %w", err)
			}

			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), outcome)
			}
			newPrinter(cmd.OutOrStdout()).outcome(outcome, replyTarget(h, outcome.Surface))
			return nil
		},
	}

	src.register(cmd)
	cmd.Flags().StringVar(&style, "style", "", "Reply style: "+strings.Join(reply.Styles(), ", "))
	cmd.Flags().StringVar(&instructions, "instructions", "", "Additional instructions for the reply")
	cmd.Flags().BoolVar(&open, "open", false, "Open the reply form first and fill it in once the text is generated")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the outcome as JSON")

	return cmd
}

// pickStyle asks for a style preset.
func pickStyle() (string, error) {
	presets := reply.Presets()
	options := make([]huh.Option[string], 0, len(presets))
	for _, p := range presets {
		options = append(options, huh.NewOption(p.Label, p.Name))
	}

	style := presets[0].Name
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Reply style").
				Description("How the reply should sound").
				Options(options...).
				Value(&style),
		),
	).Run()
	if err != nil {
		return "", fmt.Errorf("style selection: %w", err)
	}
	return style, nil
}

// replyTarget names the file an .eml reply was written to.
func replyTarget(h host.Host, surface string) string {
	fh, ok := h.(*eml.FileHost)
	if !ok {
		return ""
	}
	switch surface {
	case host.SurfaceReplyForm:
		return fh.ReplyPath()
	case host.SurfaceCompose:
		return fh.DraftPath()
	}
	return ""
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
