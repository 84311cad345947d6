package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"selfrep/pkg/selfrep"
)

// runFile is the YAML form of a run request. Unknown keys are rejected.
type runFile struct {
	RunID                   string  `yaml:"run_id"`
	Scape                   string  `yaml:"scape"`
	Capacity                int     `yaml:"capacity"`
	Generations             int     `yaml:"generations"`
	Seed                    int64   `yaml:"seed"`
	ParametersFile          string  `yaml:"parameters_file"`
	SeedFraction            float64 `yaml:"seed_fraction"`
	ReproductionProbability float64 `yaml:"reproduction_probability"`
	ContinueAfterSolve      bool    `yaml:"continue_after_solve"`
	ResumeFrom              string  `yaml:"resume_from"`
}

func loadRunRequestFromConfig(path string) (selfrep.RunRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return selfrep.RunRequest{}, err
	}
	var file runFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		return selfrep.RunRequest{}, fmt.Errorf("parse run config %s: %w", path, err)
	}
	return selfrep.RunRequest{
		RunID:                   file.RunID,
		Scape:                   file.Scape,
		Capacity:                file.Capacity,
		Generations:             file.Generations,
		Seed:                    file.Seed,
		ParametersFile:          file.ParametersFile,
		SeedFraction:            file.SeedFraction,
		ReproductionProbability: file.ReproductionProbability,
		ContinueAfterSolve:      file.ContinueAfterSolve,
		ResumeFrom:              file.ResumeFrom,
	}, nil
}

// overrideRunRequest applies only the flags the user set explicitly, so a
// config file supplies defaults and the command line wins.
func overrideRunRequest(req selfrep.RunRequest, flags *pflag.FlagSet, set selfrep.RunRequest) selfrep.RunRequest {
	flags.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "run-id":
			req.RunID = set.RunID
		case "scape":
			req.Scape = set.Scape
		case "capacity":
			req.Capacity = set.Capacity
		case "generations":
			req.Generations = set.Generations
		case "seed":
			req.Seed = set.Seed
		case "params":
			req.ParametersFile = set.ParametersFile
		case "seed-fraction":
			req.SeedFraction = set.SeedFraction
		case "reproduction-probability":
			req.ReproductionProbability = set.ReproductionProbability
		case "continue-after-solve":
			req.ContinueAfterSolve = set.ContinueAfterSolve
		case "resume-from":
			req.ResumeFrom = set.ResumeFrom
		}
	})
	return req
}
