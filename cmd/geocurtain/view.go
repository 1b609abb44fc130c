package main

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"geocurtain/internal/tui"
)

func newViewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view [file]",
		Short: "Preview boundaries and their curtains in the terminal",
		Long: `View opens an interactive viewer. Boundaries are drawn from above; the
profile view unrolls the selected curtain against the sampled terrain.
Logs are discarded unless --log-file is set.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runView,
	}
	addCurtainFlags(cmd.Flags())
	return cmd
}

func runView(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd, true)
	if err != nil {
		return err
	}
	defer a.close()

	opts := tui.Options{Service: a.svc, Policy: a.policy, Log: a.log}
	var m tea.Model
	if len(args) > 0 {
		m = tui.NewWithPath(opts, args[0])
	} else {
		m = tui.New(opts)
	}
	_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseAllMotion(), tea.WithContext(cmd.Context())).Run()
	return err
}
