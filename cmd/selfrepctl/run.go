package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"selfrep/internal/scape"
	"selfrep/pkg/selfrep"
)

func newRunCmd(opts *globalOptions) *cobra.Command {
	var (
		configPath string
		req        selfrep.RunRequest
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Evolve a habitat until a champion solves the scape",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			effective := req
			if configPath != "" {
				fromFile, err := loadRunRequestFromConfig(configPath)
				if err != nil {
					return err
				}
				effective = overrideRunRequest(fromFile, cmd.Flags(), req)
			}

			s, err := openSession(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer s.Close()

			summary, err := s.client.Run(cmd.Context(), effective)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "run completed run_id=%s scape=%s gens=%d reason=%s population=%d\n",
				summary.RunID, summary.Scape, summary.Generations, summary.StopReason, summary.FinalPopulation)
			for _, champion := range summary.Champions {
				fmt.Fprintf(out, "champion fingerprint=%s generation=%d steps=%d neurons=%d synapses=%d\n",
					champion.Fingerprint, champion.Generation, champion.Steps, champion.Neurons, champion.Synapses)
			}
			if summary.ArtifactsDir != "" {
				fmt.Fprintf(out, "artifacts dir=%s\n", summary.ArtifactsDir)
			}
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&configPath, "config", "", "YAML run config; explicit flags override it")
	flags.StringVar(&req.RunID, "run-id", "", "run id (random uuid when empty)")
	flags.StringVar(&req.Scape, "scape", scape.CartPoleName, "scape name")
	flags.IntVar(&req.Capacity, "capacity", 100, "habitat capacity")
	flags.IntVar(&req.Generations, "generations", 0, "generation limit (0 scales with the scape's solve length, negative for unbounded)")
	flags.Int64Var(&req.Seed, "seed", 0, "seed for the genome context and environments (0 takes the --params seed)")
	flags.StringVar(&req.ParametersFile, "params", "", "YAML evolutionary parameters")
	flags.Float64Var(&req.SeedFraction, "seed-fraction", 0, "share of capacity seeded into an empty habitat (0 uses the default)")
	flags.Float64Var(&req.ReproductionProbability, "reproduction-probability", 0, "per-parent reproduction chance (0 uses the default)")
	flags.BoolVar(&req.ContinueAfterSolve, "continue-after-solve", false, "keep evolving after the first champion")
	flags.StringVar(&req.ResumeFrom, "resume-from", "", "seed the habitat with the champions of this run id")
	return cmd
}
