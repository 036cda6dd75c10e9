package main

import (
	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [source-path...]",
	Short: "Queue documents for indexing",
	Long: `Queue one or more documents for (re)indexing. Paths are relative to
the corpus root configured on the server.

Examples:
  policyctl ingest hr/leave-policy-2024.txt
  policyctl ingest hr/leave-policy-2024.txt finance/expense-rules.md`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

var reingestCmd = &cobra.Command{
	Use:   "reingest",
	Short: "Queue a full corpus re-scan",
	RunE:  runReingest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(reingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	for _, path := range args {
		resp, err := postJSON("/internal/policy/ingest", map[string]interface{}{
			"source_path": path,
		})
		if err != nil {
			return err
		}
		jobID, _ := resp["job_id"].(string)
		cmd.Println(path + ": queued as " + jobID)
	}
	return nil
}

func runReingest(cmd *cobra.Command, args []string) error {
	resp, err := postJSON("/internal/policy/reingest", nil)
	if err != nil {
		return err
	}
	jobID, _ := resp["job_id"].(string)
	cmd.Println("corpus re-scan queued as " + jobID)
	return nil
}
