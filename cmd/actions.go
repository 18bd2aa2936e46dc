package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teemow/inboxassist/internal/actions"
)

// actionFlags are shared by every action command.
type actionFlags struct {
	src    sourceFlags
	json   bool
	to     string
	prompt string
	create bool
}

func newActionCmds() []*cobra.Command {
	return []*cobra.Command{
		newActionCmd(actions.KindAnalyze, "analyze", "Analyze an email or appointment",
			"Analyze the item: key points, requested actions and deadlines."),
		newActionCmd(actions.KindSummarize, "summarize", "Summarize an email or appointment",
			"Summarize the item in a few sentences."),
		newActionCmd(actions.KindTranslate, "translate", "Translate an email or appointment",
			"Translate the item into the language given with --to."),
		newActionCmd(actions.KindCalendar, "calendar", "Extract a calendar entry from an email",
			"Extract appointment data from the item. With --create the appointment is\n"+
				"added to the calendar instead of only being printed."),
		newActionCmd(actions.KindCustom, "custom", "Run a custom prompt against an email or appointment",
			"Run the instruction given with --prompt against the item."),
	}
}

func newActionCmd(kind actions.Kind, use, short, long string) *cobra.Command {
	var f actionFlags

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Long:  long,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAction(cmd, kind, &f)
		},
	}

	f.src.register(cmd)
	cmd.Flags().BoolVar(&f.json, "json", false, "Print the result as JSON")

	switch kind {
	case actions.KindTranslate:
		cmd.Flags().StringVar(&f.to, "to", "", "Target language, e.g. Englisch")
		_ = cmd.MarkFlagRequired("to")
	case actions.KindCustom:
		cmd.Flags().StringVar(&f.prompt, "prompt", "", "Instruction to run against the item")
		_ = cmd.MarkFlagRequired("prompt")
	case actions.KindCalendar:
		cmd.Flags().BoolVar(&f.create, "create", false, "Create the extracted appointment in the calendar")
	}

	return cmd
}

func runAction(cmd *cobra.Command, kind actions.Kind, f *actionFlags) error {
	a, err := newApp(cmd, nil, f.src.apply)
	if err != nil {
		return err
	}
	defer closeApp(a)

	ctx := cmd.Context()
	item, h, err := a.Open(ctx, f.src.source())
	if err != nil {
		return err
	}

	result, err := a.Orchestrator.Execute(ctx, item, actions.Request{
		Kind:           kind,
		TargetLanguage: f.to,
		CustomPrompt:   f.prompt,
	})
	if err != nil {
		return fmt.Errorf("%s failed: %w", kind, err)
	}

	if f.json {
		if err := writeJSON(cmd.OutOrStdout(), result); err != nil {
			return err
		}
	} else {
		newPrinter(cmd.OutOrStdout()).result(result)
	}

	if !f.create {
		return nil
	}
	if result.Event == nil {
		return fmt.Errorf("no appointment to create: %s", result.ParseError)
	}
	form, err := a.AppointmentForm(h, f.src.account)
	if err != nil {
		return err
	}
	if err := a.Orchestrator.CreateAppointment(ctx, form, *result.Event); err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	if !f.json {
		p := newPrinter(cmd.OutOrStdout())
		p.printf("\n%s\n", p.ok.Render("Appointment created"))
	}
	return nil
}
