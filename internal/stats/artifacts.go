package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"selfrep/internal/model"
)

const (
	runIndexFile    = "run_index.json"
	configFile      = "config.json"
	summaryFile     = "summary.json"
	championsFile   = "champions.json"
	generationsFile = "generations.csv"
)

var generationsHeader = []string{
	"generation", "seeded", "deaths", "births", "fabrication_failures", "population", "topology_diversity",
}

type RunConfig struct {
	RunID                   string  `json:"run_id"`
	Scape                   string  `json:"scape"`
	Capacity                int     `json:"capacity"`
	Generations             int     `json:"generations"`
	Seed                    int64   `json:"seed"`
	ParametersFile          string  `json:"parameters_file,omitempty"`
	SeedFraction            float64 `json:"seed_fraction,omitempty"`
	ReproductionProbability float64 `json:"reproduction_probability,omitempty"`
	ContinueAfterSolve      bool    `json:"continue_after_solve,omitempty"`
	ResumeFrom              string  `json:"resume_from,omitempty"`
}

type RunSummary struct {
	StopReason      string `json:"stop_reason"`
	GenerationsRun  int    `json:"generations_run"`
	Champions       int    `json:"champions"`
	FinalPopulation int    `json:"final_population"`
}

type RunArtifacts struct {
	Config      RunConfig
	Summary     RunSummary
	Diagnostics []model.GenerationDiagnostics
	Champions   []model.Champion
}

type RunIndexEntry struct {
	RunID        string `json:"run_id"`
	Scape        string `json:"scape"`
	Capacity     int    `json:"capacity"`
	Seed         int64  `json:"seed"`
	StopReason   string `json:"stop_reason"`
	Generations  int    `json:"generations_run"`
	Champions    int    `json:"champions"`
	CreatedAtUTC string `json:"created_at_utc"`
}

// WriteRunArtifacts writes one directory per run under baseDir and returns it.
func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if artifacts.Config.RunID == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, artifacts.Config.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, configFile), artifacts.Config); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, summaryFile), artifacts.Summary); err != nil {
		return "", err
	}
	champions := artifacts.Champions
	if champions == nil {
		champions = []model.Champion{}
	}
	if err := writeJSON(filepath.Join(runDir, championsFile), champions); err != nil {
		return "", err
	}
	if err := WriteGenerationSeries(runDir, artifacts.Diagnostics); err != nil {
		return "", err
	}
	return runDir, nil
}

// AppendRunIndex adds entry to the index, replacing an entry with the same
// run id.
func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := readRunIndex(baseDir)
	if err != nil {
		return err
	}
	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}
	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

// ListRunIndex returns index entries newest first. Entries with equal
// timestamps keep reverse append order.
func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	entries, err := readRunIndex(baseDir)
	if err != nil {
		return nil, err
	}

	type indexedEntry struct {
		entry RunIndexEntry
		idx   int
	}
	indexed := make([]indexedEntry, len(entries))
	for i := range entries {
		indexed[i] = indexedEntry{entry: entries[i], idx: i}
	}
	sort.Slice(indexed, func(i, j int) bool {
		if indexed[i].entry.CreatedAtUTC == indexed[j].entry.CreatedAtUTC {
			return indexed[i].idx > indexed[j].idx
		}
		return indexed[i].entry.CreatedAtUTC > indexed[j].entry.CreatedAtUTC
	})

	sorted := make([]RunIndexEntry, 0, len(indexed))
	for _, item := range indexed {
		sorted = append(sorted, item.entry)
	}
	return sorted, nil
}

func readRunIndex(baseDir string) ([]RunIndexEntry, error) {
	data, err := os.ReadFile(filepath.Join(baseDir, runIndexFile))
	if err != nil {
		if os.IsNotExist(err) {
			return []RunIndexEntry{}, nil
		}
		return nil, err
	}
	var entries []RunIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// ExportRunArtifacts copies a run directory into outDir.
func ExportRunArtifacts(baseDir, runID, outDir string) (string, error) {
	if runID == "" {
		return "", fmt.Errorf("run id is required")
	}

	src := filepath.Join(baseDir, runID)
	if _, err := os.Stat(src); err != nil {
		return "", err
	}

	dst := filepath.Join(outDir, runID)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return "", err
	}
	for _, file := range []string{configFile, summaryFile, championsFile, generationsFile} {
		if err := copyFile(filepath.Join(src, file), filepath.Join(dst, file)); err != nil {
			return "", err
		}
	}
	return dst, nil
}

func ReadRunConfig(baseDir, runID string) (RunConfig, bool, error) {
	data, err := os.ReadFile(filepath.Join(baseDir, runID, configFile))
	if err != nil {
		if os.IsNotExist(err) {
			return RunConfig{}, false, nil
		}
		return RunConfig{}, false, err
	}
	var cfg RunConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return RunConfig{}, false, err
	}
	return cfg, true, nil
}

func WriteGenerationSeries(runDir string, diagnostics []model.GenerationDiagnostics) error {
	file, err := os.Create(filepath.Join(runDir, generationsFile))
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(generationsHeader); err != nil {
		return err
	}
	for _, d := range diagnostics {
		if err := writer.Write([]string{
			strconv.Itoa(d.Generation),
			strconv.Itoa(d.Seeded),
			strconv.Itoa(d.Deaths),
			strconv.Itoa(d.Births),
			strconv.Itoa(d.FabricationFailures),
			strconv.Itoa(d.Population),
			strconv.Itoa(d.TopologyDiversity),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func ReadGenerationSeries(baseDir, runID string) ([]model.GenerationDiagnostics, bool, error) {
	file, err := os.Open(filepath.Join(baseDir, runID, generationsFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = len(generationsHeader)
	if _, err := reader.Read(); err != nil {
		if err == io.EOF {
			return []model.GenerationDiagnostics{}, true, nil
		}
		return nil, false, err
	}

	series := make([]model.GenerationDiagnostics, 0, 128)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, false, err
		}
		values := make([]int, len(record))
		for i, field := range record {
			values[i], err = strconv.Atoi(field)
			if err != nil {
				return nil, false, fmt.Errorf("%s column %s: %w", generationsFile, generationsHeader[i], err)
			}
		}
		series = append(series, model.GenerationDiagnostics{
			Generation:          values[0],
			Seeded:              values[1],
			Deaths:              values[2],
			Births:              values[3],
			FabricationFailures: values[4],
			Population:          values[5],
			TopologyDiversity:   values[6],
		})
	}
	return series, true, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
