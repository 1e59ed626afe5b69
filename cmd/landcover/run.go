package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ironsheep/landcover-mcp/internal/pipeline"
)

var (
	runInput     string
	runK         int
	runSeed      int64
	runOutputDir string
	runNoBasemap bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Classify a band stack and write the map and rasters",
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		if flags.Changed("input") {
			cfg.Input.Dir = runInput
		}
		if flags.Changed("k") {
			cfg.Classify.K = runK
		}
		if flags.Changed("seed") {
			cfg.Classify.Seed = runSeed
		}
		if flags.Changed("output") {
			cfg.Output.Dir = runOutputDir
		}
		if runNoBasemap {
			cfg.Basemap.Enabled = false
		}

		report, err := pipeline.Run(cmd.Context(), cfg)
		if err != nil {
			return eris.Wrap(err, "run")
		}
		zap.L().Info("outputs written",
			zap.String("run_id", report.RunID),
			zap.String("map", report.Files.Map),
			zap.String("manifest", report.Files.Manifest),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

func init() {
	runCmd.Flags().StringVarP(&runInput, "input", "i", "", "directory of band files (overrides input.dir)")
	runCmd.Flags().IntVarP(&runK, "k", "k", 5, "number of classes (overrides classify.k)")
	runCmd.Flags().Int64Var(&runSeed, "seed", 1, "random seed (overrides classify.seed)")
	runCmd.Flags().StringVarP(&runOutputDir, "output", "o", "", "output directory (overrides output.dir)")
	runCmd.Flags().BoolVar(&runNoBasemap, "no-basemap", false, "skip the basemap fetch")
	rootCmd.AddCommand(runCmd)
}
