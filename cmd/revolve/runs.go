package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evolvekit/revolve/pkg/history"
)

var historyPath string

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List stored optimization runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := history.Open(historyPath)
		if err != nil {
			return err
		}
		defer store.Close()

		runs, err := store.ListRuns()
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("no stored runs")
			return nil
		}

		for _, run := range runs {
			fmt.Printf("%s  %-24s  best=%.3f  %s\n",
				run.RunID, run.Status, run.BestScore, run.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the generation history of a stored run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := history.Open(historyPath)
		if err != nil {
			return err
		}
		defer store.Close()

		records, err := store.LoadGenerations(args[0])
		if err != nil {
			return err
		}
		for _, record := range records {
			fmt.Printf("gen %2d  fitness=[%.3f %.3f %.3f]  val=%.3f  reflect=%.2f  mut=%d  cross=%d  traces=%d\n",
				record.Generation, record.FitnessMin, record.FitnessMean, record.FitnessMax,
				record.BestValidationScore, record.ReflectionConfidence,
				record.MutationCount, record.CrossoverCount, record.TraceCount)
		}
		return nil
	},
}

func init() {
	runsCmd.PersistentFlags().StringVar(&historyPath, "history", "revolve_runs.db", "run-history database path")
	showCmd.Flags().StringVar(&historyPath, "history", "revolve_runs.db", "run-history database path")
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(showCmd)
}
