package stats

import (
	"context"
	"encoding/csv"
	"encoding/xml"
	"os"
	"path/filepath"
	"testing"

	"github.com/kalden/ppsim/internal/config"
	"github.com/kalden/ppsim/internal/constants"
	"github.com/kalden/ppsim/internal/models"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return rows
}

func TestFileSinkTracks(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "baseline", "Results", "1")
	sink, err := NewFileSink(dir)
	if err != nil {
		t.Fatalf("NewFileSink: %v", err)
	}
	defer sink.Close()

	records := []models.TrackRecord{
		{Table: models.TableClose, CellType: "LTi", State: 8, Steps: 60, Speed: 6, Length: 0, NearestOrganizer: 20},
		{Table: models.TableAway, CellType: "LTin", State: 4, Steps: 60, Speed: 5, Length: 300, Velocity: 5, Displacement: 120, DisplacementRate: 2, MeanderingIndex: 0.4, NearestOrganizer: -1},
		{Table: models.TableAway, CellType: "LTi", State: 7, Steps: 60, Speed: 4, Length: 240, Velocity: 4, NearestOrganizer: 96},
	}
	if err := sink.WriteTracks(context.Background(), config.HourRange{Start: 12, End: 13}, records); err != nil {
		t.Fatalf("WriteTracks: %v", err)
	}

	closeRows := readCSV(t, filepath.Join(dir, "trackedCells_Close_12.csv"))
	if len(closeRows) != 2 {
		t.Fatalf("Close CSV has %d rows, want header + 1", len(closeRows))
	}
	if len(closeRows[0]) != len(trackHeader) || closeRows[0][0] != "Cell Type" {
		t.Errorf("Close CSV header = %v", closeRows[0])
	}
	if got := closeRows[1][13]; got != "20" {
		t.Errorf("Close nearest organizer = %q, want 20", got)
	}

	awayRows := readCSV(t, filepath.Join(dir, "trackedCells_Away_12.csv"))
	if len(awayRows) != 3 {
		t.Fatalf("Away CSV has %d rows, want header + 2", len(awayRows))
	}
	if got := awayRows[1][12]; got != "0.4" {
		t.Errorf("Away meandering index = %q, want 0.4", got)
	}

	data, err := os.ReadFile(filepath.Join(dir, "trackedCells_Away_12.xml"))
	if err != nil {
		t.Fatalf("read XML: %v", err)
	}
	var doc simulationResult[xmlTrack]
	if err := xml.Unmarshal(data, &doc); err != nil {
		t.Fatalf("parse XML: %v", err)
	}
	if doc.XMLName.Local != "SimulationResult" {
		t.Errorf("root element = %q, want SimulationResult", doc.XMLName.Local)
	}
	if len(doc.Cells) != 2 {
		t.Fatalf("XML has %d cells, want 2", len(doc.Cells))
	}
	if doc.Cells[0].CellType != "LTin" || doc.Cells[0].Displacement != 120 || doc.Cells[0].NearestLToCell != -1 {
		t.Errorf("first XML cell = %+v", doc.Cells[0])
	}
}

func TestFileSinkPatches(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewFileSink(dir)
	if err != nil {
		t.Fatalf("NewFileSink: %v", err)
	}
	defer sink.Close()

	positions := []models.PatchPosition{
		{Hour: 24, X: 10.5, Y: 20, InPatch: true},
		{Hour: 24, X: 100, Y: 40},
	}
	if err := sink.WritePatches(context.Background(), 24, positions); err != nil {
		t.Fatalf("WritePatches: %v", err)
	}

	patch := readCSV(t, filepath.Join(dir, "patchStats_24.csv"))
	if len(patch) != 2 || patch[1][0] != "10.5" || patch[1][1] != "20" {
		t.Errorf("patchStats rows = %v, want header + (10.5,20)", patch)
	}
	all := readCSV(t, filepath.Join(dir, "patchStatsAll_24.csv"))
	if len(all) != 3 {
		t.Errorf("patchStatsAll rows = %v, want header + 2", all)
	}

	data, err := os.ReadFile(filepath.Join(dir, "patchStatsAll_24.xml"))
	if err != nil {
		t.Fatalf("read XML: %v", err)
	}
	var doc simulationResult[xmlPatch]
	if err := xml.Unmarshal(data, &doc); err != nil {
		t.Fatalf("parse XML: %v", err)
	}
	if len(doc.Cells) != 2 || doc.Cells[1].X != 100 || doc.Cells[1].Y != 40 {
		t.Errorf("XML cells = %+v", doc.Cells)
	}
}

func TestFileSinkPopulation(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewFileSink(dir)
	if err != nil {
		t.Fatalf("NewFileSink: %v", err)
	}

	ctx := context.Background()
	sink.WritePopulation(ctx, []models.PopulationSample{{Hour: 0, Class: "LTo", State: 3, Count: 50}})
	sink.WritePopulation(ctx, []models.PopulationSample{
		{Hour: 1, Class: "LTo", State: 3, Count: 52},
		{Hour: 1, Class: "LTi", State: 7, Count: 4},
	})
	if err := sink.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if err := sink.WritePopulation(ctx, nil); err == nil {
		t.Error("WritePopulation after Close should fail")
	}

	rows := readCSV(t, filepath.Join(dir, constants.PopulationFile))
	want := [][]string{
		populationHeader,
		{"0", "LTo", "active_expressing", "3", "50"},
		{"1", "LTo", "active_expressing", "3", "52"},
		{"1", "LTi", "lti_migrating", "7", "4"},
	}
	if len(rows) != len(want) {
		t.Fatalf("population rows = %v, want %v", rows, want)
	}
	for i := range want {
		for j := range want[i] {
			if rows[i][j] != want[i][j] {
				t.Errorf("row %d col %d = %q, want %q", i, j, rows[i][j], want[i][j])
			}
		}
	}
}
