package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"selfrep/internal/genotype"
)

func TestDecodeChampionFixture(t *testing.T) {
	data, err := os.ReadFile(fixturePath("minimal_champion_v1.json"))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}

	champion, err := DecodeChampion(data)
	if err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	if champion.RunID != "run-fixture-1" || champion.Scape != "cart-pole" {
		t.Fatalf("unexpected champion: %+v", champion)
	}
	if len(champion.Genome.Synapses) != 2 {
		t.Fatalf("unexpected synapses: %+v", champion.Genome.Synapses)
	}
	if err := genotype.Validate(champion.Genome); err != nil {
		t.Fatalf("fixture genome invalid: %v", err)
	}
}

func TestChampionRoundTrip(t *testing.T) {
	champion := testChampion("run-1", 0.25)
	champion.Fingerprint = genotype.Fingerprint(champion.Genome)

	encoded, err := EncodeChampion(champion)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodeChampion(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Fingerprint != genotype.Fingerprint(decoded.Genome) {
		t.Fatal("expected fingerprint to survive the round trip")
	}
	if !decoded.RecordedAt.Equal(champion.RecordedAt) {
		t.Fatalf("unexpected recorded_at: %s", decoded.RecordedAt)
	}
}

func TestDecodeChampionVersionMismatch(t *testing.T) {
	champion := testChampion("run-1", 0.25)
	champion.SchemaVersion = CurrentSchemaVersion + 1
	encoded, err := EncodeChampion(champion)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := DecodeChampion(encoded); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected ErrVersionMismatch, got: %v", err)
	}

	champion = testChampion("run-1", 0.25)
	champion.Genome.CodecVersion = 0
	encoded, err = EncodeChampion(champion)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := DecodeChampion(encoded); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected ErrVersionMismatch for embedded genome, got: %v", err)
	}
}

func TestDecodeGenomeVersionMismatch(t *testing.T) {
	genome := testGenome(1)
	genome.VersionedRecord.SchemaVersion = 0
	encoded, err := EncodeGenome(genome)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := DecodeGenome(encoded); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected ErrVersionMismatch, got: %v", err)
	}
}

func fixturePath(name string) string {
	return filepath.Join("..", "..", "testdata", "fixtures", name)
}
