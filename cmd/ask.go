package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a single question and print the grounded answer",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		idx, err := openIndex(cfg)
		if err != nil {
			return err
		}
		defer idx.Close()

		agent := newAgent(cfg, idx)
		question := strings.Join(args, " ")

		resp, err := agent.Answer(cmd.Context(), question)
		if err != nil {
			return err
		}

		fmt.Println(resp.Answer)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
}
