package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "revolve",
	Short: "Reflective genetic optimizer for LM program instructions",
	Long: `revolve evolves the instructions of a language-model program against a
dataset: candidates are scored concurrently, execution traces are diagnosed by
a reflection model, and survivors are chosen by multi-objective Pareto
selection.`,
	Version: "0.1.0",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
