package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sheetsense/adapters/excel"
	"sheetsense/adapters/ingest/cleaner"
	"sheetsense/adapters/ingest/coercer"
	"sheetsense/adapters/llm/heuristic"
	"sheetsense/domain/core"
	"sheetsense/domain/table"
	"sheetsense/internal/chart"
	"sheetsense/internal/compiler"
	"sheetsense/internal/executor"
	"sheetsense/internal/profiling"
	"sheetsense/internal/suggest"
)

// The CLI runs the ingestion and query pipeline in-process against a local
// spreadsheet, with no database and no language model. Useful for inspecting
// what a file profiles to and how a question resolves before uploading.
func main() {
	rootCmd := &cobra.Command{
		Use:   "sheetsense-cli",
		Short: "Run the spreadsheet analysis pipeline against a local file",
	}

	rootCmd.AddCommand(
		newInspectCmd(),
		newAskCmd(),
		newSuggestCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newInspectCmd() *cobra.Command {
	var dayFirst bool

	cmd := &cobra.Command{
		Use:   "inspect [file]",
		Short: "Clean and profile a spreadsheet, printing the inferred schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			datasets, empty, err := buildDatasets(args[0], dayFirst)
			if err != nil {
				return err
			}
			for _, ds := range datasets {
				fmt.Printf("Sheet %q: %d rows\n", ds.SheetName, ds.RowCount)
				for _, col := range ds.Columns {
					fmt.Printf("  %-24s %-12s nulls=%-5d unique=%d\n",
						col.Name, col.InferredType, col.NullCount, col.UniqueCount)
				}
			}
			for _, name := range empty {
				fmt.Printf("Sheet %q: empty, skipped\n", name)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dayFirst, "day-first", false, "Read ambiguous numeric dates as day/month")
	return cmd
}

func newAskCmd() *cobra.Command {
	var sheet string
	var dayFirst bool
	var showPlan bool

	cmd := &cobra.Command{
		Use:   "ask [file] [question]",
		Short: "Answer a question against a spreadsheet using keyword classification",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := pickDataset(args[0], sheet, dayFirst)
			if err != nil {
				return err
			}

			classified, err := heuristic.New().Classify(context.Background(), args[1], ds)
			if err != nil {
				return err
			}

			plan, err := compiler.Compile(classified.Intent, ds)
			if err != nil {
				return err
			}
			if showPlan {
				raw, _ := plan.Canonical()
				fmt.Printf("Plan: %s\n", raw)
			}

			res, err := executor.Execute(plan, ds)
			if err != nil {
				return err
			}
			chart.Apply(res)

			out, err := json.MarshalIndent(res, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			if classified.Explanation != "" {
				fmt.Println(classified.Explanation)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sheet, "sheet", "", "Sheet to query (defaults to the first)")
	cmd.Flags().BoolVar(&dayFirst, "day-first", false, "Read ambiguous numeric dates as day/month")
	cmd.Flags().BoolVar(&showPlan, "plan", false, "Print the compiled plan before executing")
	return cmd
}

func newSuggestCmd() *cobra.Command {
	var sheet string
	var dayFirst bool

	cmd := &cobra.Command{
		Use:   "suggest [file]",
		Short: "Propose starter questions for a spreadsheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := pickDataset(args[0], sheet, dayFirst)
			if err != nil {
				return err
			}
			for _, s := range suggest.Generate(ds) {
				fmt.Printf("[%s] %s\n", s.Kind, s.Question)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sheet, "sheet", "", "Sheet to use (defaults to the first)")
	cmd.Flags().BoolVar(&dayFirst, "day-first", false, "Read ambiguous numeric dates as day/month")
	return cmd
}

func buildDatasets(path string, dayFirst bool) ([]*table.Dataset, []string, error) {
	coerceConfig := coercer.DefaultConfig()
	coerceConfig.DayFirst = dayFirst
	coerce := coercer.New(coerceConfig)
	clean := cleaner.New(cleaner.DefaultConfig(), coerce)
	profiler := profiling.New(profiling.DefaultConfig(), coerce)

	sheets, _, err := excel.NewReader(excel.DefaultConfig()).ReadSheets(path)
	if err != nil {
		return nil, nil, err
	}

	fileID := core.FileID(core.NewID())
	var datasets []*table.Dataset
	var empty []string
	for _, raw := range sheets {
		cs, err := clean.Clean(raw)
		if err != nil {
			empty = append(empty, raw.Name)
			continue
		}
		datasets = append(datasets, profiler.Profile(cs, fileID))
	}
	if len(datasets) == 0 {
		return nil, nil, fmt.Errorf("no sheet in %s contained data", path)
	}
	return datasets, empty, nil
}

func pickDataset(path, sheet string, dayFirst bool) (*table.Dataset, error) {
	datasets, _, err := buildDatasets(path, dayFirst)
	if err != nil {
		return nil, err
	}
	if sheet == "" {
		return datasets[0], nil
	}
	for _, ds := range datasets {
		if ds.SheetName == sheet {
			return ds, nil
		}
	}
	return nil, fmt.Errorf("sheet %q not found in %s", sheet, path)
}
