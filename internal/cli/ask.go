package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var askPassages bool

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question from the loaded books",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		ans, err := a.Answerer.Answer(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ans.Text)
		if askPassages {
			for i, p := range ans.Passages {
				fmt.Fprintf(cmd.OutOrStdout(), "\n%s\n%s\n", boldText(fmt.Sprintf("[%d]", i+1)), p)
			}
		}
		return nil
	},
}

func init() {
	askCmd.Flags().BoolVarP(&askPassages, "passages", "p", false, "also print the retrieved passages")
	rootCmd.AddCommand(askCmd)
}
