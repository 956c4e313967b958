package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evolvekit/revolve/pkg/config"
	"github.com/evolvekit/revolve/pkg/core"
	"github.com/evolvekit/revolve/pkg/datasets"
	"github.com/evolvekit/revolve/pkg/history"
	"github.com/evolvekit/revolve/pkg/llms"
	"github.com/evolvekit/revolve/pkg/metrics"
	"github.com/evolvekit/revolve/pkg/optimizer"
)

var (
	configPath  string
	metricName  string
	instruction string
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Run instruction optimization against a QA dataset",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOptimize(cmd.Context())
	},
}

func init() {
	optimizeCmd.Flags().StringVarP(&configPath, "config", "c", "revolve.yaml", "run configuration file")
	optimizeCmd.Flags().StringVarP(&metricName, "metric", "m", "normalized_exact", "metric: exact, normalized_exact or f1")
	optimizeCmd.Flags().StringVarP(&instruction, "instruction", "i", "Answer the question concisely.", "baseline instruction")
	rootCmd.AddCommand(optimizeCmd)
}

func runOptimize(ctx context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	metric, err := metricByName(metricName)
	if err != nil {
		return err
	}

	generationLM, err := llms.New(cfg.Generation.Provider, cfg.Generation.Model)
	if err != nil {
		return err
	}
	reflectionLM, err := llms.New(cfg.Reflection.Provider, cfg.Reflection.Model)
	if err != nil {
		return err
	}

	trainset, valset, err := loadDatasets(cfg)
	if err != nil {
		return err
	}

	optConfig := cfg.Optimizer()
	optConfig.GenerationLM = generationLM
	optConfig.ReflectionLM = reflectionLM

	var opts []optimizer.Option
	if cfg.HistoryPath != "" {
		store, err := history.Open(cfg.HistoryPath)
		if err != nil {
			return err
		}
		defer store.Close()
		opts = append(opts, optimizer.WithRunStore(store))
	}

	program := qaProgram(generationLM, instruction)
	result := optimizer.New(optConfig, opts...).Compile(ctx, program, trainset, valset, metric)

	printResult(result)
	return nil
}

func metricByName(name string) (core.Metric, error) {
	switch name {
	case "exact":
		return metrics.ExactMatch, nil
	case "normalized_exact":
		return metrics.NormalizedExactMatch, nil
	case "f1":
		return metrics.F1Score, nil
	default:
		return nil, fmt.Errorf("unknown metric %q", name)
	}
}

func loadDatasets(cfg *config.Config) (core.Dataset, core.Dataset, error) {
	if cfg.Dataset.TrainPath == "" {
		return nil, nil, fmt.Errorf("dataset.train_path is required")
	}
	full, err := loadDataset(cfg.Dataset.TrainPath)
	if err != nil {
		return nil, nil, err
	}

	if cfg.Dataset.ValPath != "" {
		val, err := loadDataset(cfg.Dataset.ValPath)
		if err != nil {
			return nil, nil, err
		}
		return full, val, nil
	}

	train, val := full.Split(cfg.Dataset.TrainFraction)
	return train, val, nil
}

func loadDataset(path string) (*datasets.InMemoryDataset, error) {
	if strings.HasSuffix(path, ".parquet") {
		return datasets.LoadParquetQA(context.Background(), path, "", "")
	}
	return datasets.LoadJSON(path)
}

// qaProgram builds a single-step QA pipeline whose behavior follows the
// evolving instruction slot.
func qaProgram(llm core.LLM, instruction string) core.Program {
	predictors := []*core.Predictor{{Name: "answer", Instruction: instruction}}

	forward := func(ctx context.Context, inputs map[string]any, preds []*core.Predictor) (map[string]any, error) {
		question, _ := inputs["question"].(string)
		prompt := fmt.Sprintf("%s\n\nQuestion: %s\nAnswer:", preds[0].Instruction, question)

		response, err := llm.Generate(ctx, prompt, core.WithMaxTokens(256))
		if err != nil {
			return nil, err
		}
		return map[string]any{"answer": strings.TrimSpace(response.Content)}, nil
	}

	return core.NewPipeline(predictors, forward)
}

func printResult(result *optimizer.OptimizationResult) {
	fmt.Printf("run:    %s\n", result.Metadata.OptimizationRunID)
	fmt.Printf("status: %s\n", result.Metadata.ImplementationStatus)
	fmt.Printf("score:  %.3f\n", result.BestScoreValue)
	if !result.Succeeded() {
		fmt.Printf("error:  %s\n", result.History.Error)
		return
	}

	for name, value := range result.Scores {
		fmt.Printf("  %-18s %.3f\n", name, value)
	}
	for _, instruction := range core.Instructions(result.OptimizedProgram) {
		fmt.Printf("instruction: %s\n", instruction)
	}
	if insights := result.Metadata.ReflectionInsights; insights != nil {
		fmt.Printf("reflection (%.2f): %s\n", insights.Confidence, insights.Diagnosis)
	}
}
