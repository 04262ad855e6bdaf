package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/sweepq/internal/ai"
)

var (
	chatModel   string
	chatVerbose bool
)

var chatCmd = &cobra.Command{
	Use:   "chat <csv>",
	Short: "Ask an assistant about a sweep export",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			return fmt.Errorf("configuration not loaded")
		}
		key, err := cfg.ResolveAPIKey()
		if err != nil {
			return err
		}
		fmt.Printf("Loading %s...\n", args[0])
		ix, err := loadIndex(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("✓ Loaded %d series.\n\n", ix.Len())

		model := cfg.Model
		if chatModel != "" {
			model = chatModel
		}
		client := ai.NewClientWithBaseURL(key,
			time.Duration(cfg.HTTPTimeoutSec)*time.Second,
			cfg.RetryMaxAttempts,
			time.Duration(cfg.RetryBaseDelayMs)*time.Millisecond,
			time.Duration(cfg.RetryMaxDelayMs)*time.Millisecond,
			cfg.BaseURL)
		assistant := ai.NewAssistant(client, ai.NewToolset(ix, cfg.Workers), ai.AssistantOptions{
			Model:         model,
			MaxTokens:     cfg.MaxTokens,
			Temperature:   cfg.Temperature,
			HistoryBudget: ai.ClampHistoryBudget(model, cfg.HistoryTokenBudget),
		})
		if chatVerbose {
			assistant.OnToolCall = func(name, arguments string) {
				fmt.Printf("  [tool] %s %s\n", name, arguments)
			}
		}
		runChat(cmd.Context(), assistant, os.Stdin)
		return nil
	},
}

// runChat drives the conversation loop until quit/exit or EOF.
func runChat(ctx context.Context, assistant *ai.Assistant, in io.Reader) {
	fmt.Println("Circuit Sweep Chat")
	fmt.Println(strings.Repeat("=", 50))
	fmt.Println("Ask questions about the loaded sweep series.")
	fmt.Println("Type 'quit' or 'exit' to end the conversation.")
	fmt.Println("Type 'reset' to start a new conversation.")
	fmt.Println(strings.Repeat("=", 50))
	fmt.Println()

	sc := bufio.NewScanner(in)
	for {
		fmt.Print("You: ")
		if !sc.Scan() {
			fmt.Println("\nGoodbye!")
			return
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		switch strings.ToLower(line) {
		case "quit", "exit", "q":
			fmt.Println("Goodbye!")
			return
		case "reset":
			assistant.Reset()
			fmt.Println("Conversation reset.")
			fmt.Println()
			continue
		}
		fmt.Print("Assistant: ")
		if _, err := assistant.ChatStream(ctx, line, func(delta string) {
			fmt.Print(delta)
		}); err != nil {
			fmt.Printf("\nError: %v\n\n", err)
			continue
		}
		fmt.Println()
		fmt.Println()
	}
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringVar(&chatModel, "model", "", "chat model (default is the configured model)")
	chatCmd.Flags().BoolVarP(&chatVerbose, "verbose", "v", false, "print each tool call before it runs")
}
