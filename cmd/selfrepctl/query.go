package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"selfrep/pkg/selfrep"
)

func newChampionsCmd(opts *globalOptions) *cobra.Command {
	var (
		req     selfrep.ChampionsRequest
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "champions",
		Short: "List stored champions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer s.Close()

			items, err := s.client.Champions(cmd.Context(), req)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOut {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(items)
			}
			for _, item := range items {
				fmt.Fprintf(out, "fingerprint=%s topology=%s run_id=%s scape=%s gen=%d steps=%d neurons=%d hidden=%d synapses=%d recorded_at=%s\n",
					item.Fingerprint, item.TopologyFingerprint, item.RunID, item.Scape, item.Generation, item.Steps,
					item.Neurons, item.Hidden, item.Synapses, item.RecordedAt.Format(time.RFC3339))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&req.RunID, "run-id", "", "only champions of this run")
	cmd.Flags().IntVar(&req.Limit, "limit", 0, "max rows (0 for all)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "emit champions as JSON")
	return cmd
}

func newGenerationsCmd(opts *globalOptions) *cobra.Command {
	var (
		req     selfrep.GenerationsRequest
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "generations",
		Short: "Show per-generation habitat diagnostics of a run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer s.Close()

			diagnostics, err := s.client.Generations(cmd.Context(), req)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOut {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(diagnostics)
			}
			for _, d := range diagnostics {
				fmt.Fprintf(out, "generation=%d seeded=%d deaths=%d births=%d fabrication_failures=%d population=%d topologies=%d\n",
					d.Generation, d.Seeded, d.Deaths, d.Births, d.FabricationFailures, d.Population, d.TopologyDiversity)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&req.RunID, "run-id", "", "run id")
	cmd.Flags().IntVar(&req.Limit, "limit", 0, "max rows (0 for all)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "emit diagnostics as JSON")
	_ = cmd.MarkFlagRequired("run-id")
	return cmd
}

func newReplayCmd(opts *globalOptions) *cobra.Command {
	var req selfrep.ReplayRequest
	cmd := &cobra.Command{
		Use:   "replay <fingerprint>",
		Short: "Re-run a stored champion in a fresh environment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer s.Close()

			req.Fingerprint = args[0]
			summary, err := s.client.Replay(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "replay fingerprint=%s scape=%s steps=%d solved=%t alive=%t\n",
				summary.Fingerprint, summary.Scape, summary.Steps, summary.Solved, summary.Alive)
			return nil
		},
	}
	cmd.Flags().IntVar(&req.MaxSteps, "max-steps", 0, "tick limit (0 uses twice the scape's solve length)")
	cmd.Flags().Int64Var(&req.Seed, "seed", 1, "environment seed")
	return cmd
}

func newScapesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scapes",
		Short: "List built-in scapes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := selfrep.New(selfrep.Options{StoreKind: "memory"})
			if err != nil {
				return err
			}
			defer client.Close()
			for _, item := range client.Scapes() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s inputs=%d outputs=%d solve_steps=%d  %s\n",
					item.Name, item.Inputs, item.Outputs, item.SolveSteps, item.Description)
			}
			return nil
		},
	}
}

func newRunsCmd(opts *globalOptions) *cobra.Command {
	var req selfrep.RunsRequest
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List indexed runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer s.Close()

			items, err := s.client.Runs(cmd.Context(), req)
			if err != nil {
				return err
			}
			for _, item := range items {
				fmt.Fprintf(cmd.OutOrStdout(), "run_id=%s created_at=%s scape=%s capacity=%d seed=%d generations=%d stop_reason=%s champions=%d\n",
					item.RunID, item.CreatedAtUTC, item.Scape, item.Capacity, item.Seed, item.Generations, item.StopReason, item.Champions)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&req.Limit, "limit", 0, "max rows (0 for all)")
	return cmd
}

func newExportCmd(opts *globalOptions) *cobra.Command {
	var req selfrep.ExportRequest
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Copy a run's artifacts into another directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer s.Close()

			summary, err := s.client.Export(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported run_id=%s dir=%s\n", summary.RunID, summary.Directory)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.RunID, "run-id", "", "run id to export")
	cmd.Flags().BoolVar(&req.Latest, "latest", false, "export the newest run")
	cmd.Flags().StringVar(&req.OutDir, "out", "exports", "output directory")
	return cmd
}
