// Command genmock reads a model-output reco CSV and generates the JSON
// fixtures the service falls back to (areas.json, grids.json, reco.json).
// It runs the CSV through the actual domain parser so the fixtures match
// what the service would serve from the CSV itself.
//
// Usage:
//
//	go run ./cmd/genmock -csv data/mock/reco.csv -out-dir data/mock
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/luxgrid/dimming-reco-service/internal/domain"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	csvPath := flag.String("csv", "", "path to the model-output reco CSV")
	outDir := flag.String("out-dir", "", "directory to write fixture JSON files into")
	cellMeters := flag.Float64("cell-meters", domain.DefaultCellSizeMeters, "grid cell edge length in meters")
	flag.Parse()

	if *csvPath == "" || *outDir == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -csv, -out-dir")
	}

	recs, skipped, err := parseCSV(*csvPath)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", *csvPath, err)
	}
	log.Printf("parsed %d recommendations (%d rows skipped)", len(recs), skipped)

	cells := domain.SynthesizeCells(len(recs), domain.SeongsuCenter, *cellMeters)
	for i := range cells {
		// The export has no brightness column; clamp existing illuminance
		// into the 0-100 intensity range so the map renders meaningfully.
		ntl := recs[i].ExistingLx
		if ntl > 100 {
			ntl = 100
		}
		if ntl < 0 {
			ntl = 0
		}
		cells[i].NTLMean = &ntl
	}

	areas := []domain.Area{
		{Gu: "Seongdong-gu", Dongs: []string{"Seongsu-dong"}},
	}

	outputs := []struct {
		file string
		data any
	}{
		{"areas.json", areas},
		{"grids.json", cells},
		{"reco.json", recs},
	}
	for _, out := range outputs {
		path := filepath.Join(*outDir, out.file)
		if err := writeJSON(path, out.data); err != nil {
			return fmt.Errorf("writing %s: %w", out.file, err)
		}
		log.Printf("wrote fixture: %s", path)
	}

	printStats(recs)
	return nil
}

func parseCSV(path string) ([]domain.Recommendation, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, 0, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) < 2 {
		return nil, 0, fmt.Errorf("no data rows")
	}

	header := rows[0]
	colIdx := map[string]int{}
	for i, h := range header {
		colIdx[strings.ToLower(strings.TrimSpace(h))] = i
	}

	var recs []domain.Recommendation
	skipped := 0
	for _, row := range rows[1:] {
		raw := make(domain.RawRecoRow, len(colIdx))
		for name, i := range colIdx {
			if i < len(row) {
				raw[name] = row[i]
			}
		}
		rec, err := domain.NormalizeRecoRow(raw)
		if err != nil {
			skipped++
			continue
		}
		recs = append(recs, rec)
	}
	return recs, skipped, nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func printStats(recs []domain.Recommendation) {
	var dimmed, raised, unchanged, withReasons int
	var minDelta, maxDelta float64
	reasonKeys := map[string]int{}

	for i := range recs {
		r := &recs[i]
		switch {
		case r.DeltaPercent < 0:
			dimmed++
		case r.DeltaPercent > 0:
			raised++
		default:
			unchanged++
		}
		if len(r.Reasons) > 0 {
			withReasons++
		}
		for _, reason := range r.Reasons {
			reasonKeys[reason.Key]++
		}
		if r.DeltaPercent < minDelta {
			minDelta = r.DeltaPercent
		}
		if r.DeltaPercent > maxDelta {
			maxDelta = r.DeltaPercent
		}
	}

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Total: %d\n", len(recs))
	fmt.Printf("Dimmed: %d, raised: %d, unchanged: %d\n", dimmed, raised, unchanged)
	fmt.Printf("Delta range: [%g, %g]\n", minDelta, maxDelta)
	fmt.Printf("With reasons: %d\n", withReasons)
	fmt.Printf("Reason keys:")
	for key, n := range reasonKeys {
		fmt.Printf(" %s=%d", key, n)
	}
	fmt.Println()
}
