package storage

import (
	"context"

	"selfrep/internal/model"
)

// Store persists what a run leaves behind: the genomes that solved a scape
// and the per-generation habitat diagnostics.
type Store interface {
	Init(ctx context.Context) error
	SaveChampion(ctx context.Context, champion model.Champion) error
	GetChampion(ctx context.Context, fingerprint string) (model.Champion, bool, error)
	// ListChampions returns champions in recording order. An empty runID
	// lists every run.
	ListChampions(ctx context.Context, runID string) ([]model.Champion, error)
	SaveGenerations(ctx context.Context, runID string, diagnostics []model.GenerationDiagnostics) error
	GetGenerations(ctx context.Context, runID string) ([]model.GenerationDiagnostics, bool, error)
}
