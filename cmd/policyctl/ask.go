package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a policy question",
	Long: `Send a question to the answer endpoint and print the grounded answer
with its citations.

Examples:
  policyctl ask "How many vacation days do new hires get?"
  policyctl ask --include-superseded "What was the 2022 remote work rule?"
  policyctl ask --json "Who approves travel expenses?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().Bool("include-superseded", false, "also return superseded policy text")
	askCmd.Flags().Int("max-tokens", 0, "override the generation token limit")
	askCmd.Flags().Bool("json", false, "print the raw JSON response")
}

func runAsk(cmd *cobra.Command, args []string) error {
	includeSuperseded, _ := cmd.Flags().GetBool("include-superseded")
	maxTokens, _ := cmd.Flags().GetInt("max-tokens")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	query := strings.Join(args, " ")

	resp, err := postJSON("/v1/policy/answer", map[string]interface{}{
		"query":              query,
		"include_superseded": includeSuperseded,
		"max_tokens":         maxTokens,
	})
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(cmd, resp)
	}

	answer, _ := resp["answer"].(string)
	cmd.Println(answer)

	if fallback, _ := resp["fallback"].(bool); fallback {
		if reason, _ := resp["reason"].(string); reason != "" {
			cmd.Println("(fallback: " + reason + ")")
		}
		return nil
	}

	if citations, ok := resp["citations"].([]interface{}); ok && len(citations) > 0 {
		cmd.Println("\nSources:")
		for i, raw := range citations {
			cite, ok := raw.(map[string]interface{})
			if !ok {
				continue
			}
			label, _ := cite["label"].(string)
			cmd.Println(fmt.Sprintf("  [%d] %s", i+1, label))
		}
	}
	return nil
}
