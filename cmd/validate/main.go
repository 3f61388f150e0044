// Command validate performs data integrity checks across the recommendation
// mock data: the model-output CSV and the JSON fixtures generated from it.
// It verifies row counts, delta consistency, reason integrity, and the
// grid/recommendation join.
//
// Usage:
//
//	go run ./cmd/validate -csv data/mock/reco.csv -fixture-dir data/mock
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"

	"github.com/luxgrid/dimming-reco-service/internal/adapter/fixtures"
	"github.com/luxgrid/dimming-reco-service/internal/domain"
)

// deltaTolerance is the allowed drift between the supplied delta_percent and
// the value derived from existing/recommended illuminance. The exporter
// rounds to two decimals.
const deltaTolerance = 0.05

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	csvPath := flag.String("csv", "", "path to the model-output reco CSV")
	fixtureDir := flag.String("fixture-dir", "", "directory containing the JSON fixtures")
	flag.Parse()

	if *csvPath == "" || *fixtureDir == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*csvPath, *fixtureDir); code != 0 {
		os.Exit(code)
	}
}

func run(csvPath, fixtureDir string) int {
	fmt.Println("=== Recommendation Data Integrity Validation ===")
	fmt.Println()

	csvRecs, err := loadCSV(csvPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load CSV: %v\n", err)
		return 1
	}

	src := fixtures.New(fixtureDir, slog.New(slog.NewTextHandler(os.Stderr, nil)))
	ctx := context.Background()

	fixtureRecs, err := src.Recommendations(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load reco fixture: %v\n", err)
		return 1
	}
	cells, err := src.GridCells(ctx, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load grid fixture: %v\n", err)
		return 1
	}
	areas, err := src.Areas(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load area fixture: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateCounts(csvRecs, fixtureRecs, cells, areas),
		validateDeltas(csvRecs, fixtureRecs),
		validateReasons(fixtureRecs),
		validateGridJoin(fixtureRecs, cells),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d CSV, %d reco fixture, %d grid cells, %d areas\n",
		len(csvRecs), len(fixtureRecs), len(cells), len(areas))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// loadCSV parses the model-output CSV through the domain normalizer, the
// same path the service takes.
func loadCSV(path string) ([]domain.Recommendation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("no data rows in %s", path)
	}

	colIdx := map[string]int{}
	for i, h := range rows[0] {
		colIdx[strings.ToLower(strings.TrimSpace(h))] = i
	}

	var recs []domain.Recommendation
	for _, row := range rows[1:] {
		raw := make(domain.RawRecoRow, len(colIdx))
		for name, i := range colIdx {
			if i < len(row) {
				raw[name] = row[i]
			}
		}
		rec, err := domain.NormalizeRecoRow(raw)
		if err != nil {
			continue
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// ── Phase 1: Row Counts ──
// The fixture set must carry exactly the CSV's valid rows, one grid cell per
// recommendation, and at least one selectable area.

func validateCounts(csvRecs, fixtureRecs []domain.Recommendation, cells []domain.GridCell, areas []domain.Area) *phase {
	p := &phase{name: "Phase 1: Row Counts"}

	if len(csvRecs) != len(fixtureRecs) {
		p.errorf("CSV has %d valid rows, reco fixture has %d", len(csvRecs), len(fixtureRecs))
	}
	if len(cells) != len(fixtureRecs) {
		p.errorf("grid fixture has %d cells for %d recommendations", len(cells), len(fixtureRecs))
	}
	if len(areas) == 0 {
		p.errorf("area fixture is empty")
	}
	return p
}

// ── Phase 2: Delta Consistency ──
// Supplied delta_percent must agree with the value derived from the
// illuminance pair, within the exporter's rounding.

func validateDeltas(csvRecs, fixtureRecs []domain.Recommendation) *phase {
	p := &phase{name: "Phase 2: Delta Consistency"}

	csvByID := map[string]*domain.Recommendation{}
	for i := range csvRecs {
		csvByID[csvRecs[i].GridID] = &csvRecs[i]
	}

	for i := range fixtureRecs {
		r := &fixtureRecs[i]

		if r.ExistingLx > 0 {
			derived := domain.DeriveDeltaPercent(r.ExistingLx, r.RecommendedLx)
			if math.Abs(derived-r.DeltaPercent) > deltaTolerance {
				p.errorf("grid %s: delta %.4f disagrees with derived %.4f", r.GridID, r.DeltaPercent, derived)
			}
		}

		src, ok := csvByID[r.GridID]
		if !ok {
			p.errorf("grid %s: fixture row has no CSV counterpart", r.GridID)
			continue
		}
		if !floatEq(src.ExistingLx, r.ExistingLx) || !floatEq(src.RecommendedLx, r.RecommendedLx) {
			p.errorf("grid %s: illuminance mismatch: CSV (%g → %g), fixture (%g → %g)",
				r.GridID, src.ExistingLx, src.RecommendedLx, r.ExistingLx, r.RecommendedLx)
		}
		if !floatEq(src.DimHours, r.DimHours) {
			p.errorf("grid %s: dim hours: CSV %g, fixture %g", r.GridID, src.DimHours, r.DimHours)
		}
	}
	return p
}

// ── Phase 3: Reason Integrity ──

func validateReasons(fixtureRecs []domain.Recommendation) *phase {
	p := &phase{name: "Phase 3: Reason Integrity"}

	for i := range fixtureRecs {
		r := &fixtureRecs[i]
		if r.Reasons == nil {
			p.errorf("grid %s: reasons is null (must be an array, possibly empty)", r.GridID)
			continue
		}
		for j, reason := range r.Reasons {
			if err := reason.Validate(); err != nil {
				p.errorf("grid %s reason %d: %v", r.GridID, j, err)
			}
		}
	}
	return p
}

// ── Phase 4: Grid Join ──
// Every recommendation must land on a grid cell and vice versa.

func validateGridJoin(fixtureRecs []domain.Recommendation, cells []domain.GridCell) *phase {
	p := &phase{name: "Phase 4: Grid Join"}

	cellIDs := map[string]bool{}
	for i := range cells {
		if cells[i].GridID == "" {
			p.errorf("grid cell %d: empty grid_id", i)
			continue
		}
		if cellIDs[cells[i].GridID] {
			p.errorf("grid cell %d: duplicate grid_id %q", i, cells[i].GridID)
		}
		cellIDs[cells[i].GridID] = true
	}

	recIDs := map[string]bool{}
	for i := range fixtureRecs {
		recIDs[fixtureRecs[i].GridID] = true
		if !cellIDs[fixtureRecs[i].GridID] {
			p.errorf("grid %s: recommendation has no grid cell", fixtureRecs[i].GridID)
		}
	}
	for id := range cellIDs {
		if !recIDs[id] {
			p.errorf("grid %s: cell has no recommendation", id)
		}
	}
	return p
}

func floatEq(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
