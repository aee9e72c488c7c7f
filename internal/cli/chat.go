package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"bookrag/internal/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Ask questions in an interactive terminal chat",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		sources, err := a.Gateway.Sources(cmd.Context())
		if err != nil {
			return err
		}
		summary := fmt.Sprintf("%d book(s) stored, answering with %s", len(sources), a.Generator.Name())
		m := tui.New(cmd.Context(), a.Answerer, summary)
		_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
		return err
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
