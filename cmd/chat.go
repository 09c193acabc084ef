package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"docrag/internal/rag"

	"github.com/spf13/cobra"
)

var flagShowContext bool

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Ask questions about the ingested documentation interactively",
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

		scanner := bufio.NewScanner(os.Stdin)
		fmt.Println("docrag chat (type /help for commands, /exit to quit)")

		for {
			fmt.Println("\n" + strings.Repeat("-", 80))
			fmt.Print("> ")
			if !scanner.Scan() {
				break
			}
			question := strings.TrimSpace(scanner.Text())
			if question == "" {
				continue
			}

			switch question {
			case "/exit", "/quit":
				fmt.Println("Goodbye.")
				return nil
			case "/context":
				flagShowContext = !flagShowContext
				fmt.Printf("Context display: %v\n", flagShowContext)
				continue
			case "/help":
				fmt.Println("Commands:")
				fmt.Println("  /context - toggle retrieved-context display")
				fmt.Println("  /exit    - quit chat")
				fmt.Println("  /help    - show this help")
				continue
			}

			resp, err := agent.Answer(cmd.Context(), question)
			if err != nil {
				// A failed generation still carries the retrieved context.
				if resp != nil && flagShowContext {
					printContext(resp)
				}
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				continue
			}

			if flagShowContext {
				printContext(resp)
			}

			fmt.Println("Answer:")
			fmt.Println(strings.Repeat("-", 80))
			fmt.Println(resp.Answer)
			fmt.Println(strings.Repeat("-", 80))
		}

		return scanner.Err()
	},
}

func printContext(resp *rag.Response) {
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Retrieved context (%d chunks):\n", len(resp.Context))
	fmt.Println(strings.Repeat("=", 80))
	for _, r := range resp.Context {
		fmt.Printf("[%s] %s\n%s\n\n", r.ID, r.SourceURL, r.Content)
	}
	fmt.Println(strings.Repeat("=", 80))
}

func init() {
	chatCmd.Flags().BoolVar(&flagShowContext, "show-context", true, "print retrieved chunks before each answer")
	rootCmd.AddCommand(chatCmd)
}
