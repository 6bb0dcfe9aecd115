package archive

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kalden/ppsim/internal/models"
	"github.com/kalden/ppsim/internal/store"
)

// seededStore returns an in-memory store holding one finished run with two
// tracks, three patch positions and two population samples.
func seededStore(t *testing.T) store.ResultStore {
	t.Helper()
	ctx := context.Background()
	s := store.NewInMemoryResultStore()

	started := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	finished := started.Add(time.Minute)
	run := models.RunInfo{
		ID:             "run-1",
		Description:    "baseline",
		Replicate:      "2",
		Seed:           7,
		Status:         models.RunStatusCompleted,
		Hours:          72,
		SecondsPerStep: 60,
		Steps:          4321,
		StartedAt:      started,
		FinishedAt:     &finished,
	}
	if err := s.CreateRun(ctx, run); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if err := s.AddTrackRecords(ctx, []models.TrackRecord{
		{RunID: "run-1", Window: "12-13", Table: models.TableClose, CellType: "LTi", Steps: 60, Length: 40},
		{RunID: "run-1", Window: "12-13", Table: models.TableAway, CellType: "LTin", Steps: 60, Length: 80},
	}); err != nil {
		t.Fatalf("AddTrackRecords: %v", err)
	}
	if err := s.AddPatchPositions(ctx, []models.PatchPosition{
		{RunID: "run-1", Hour: 24, X: 10, Y: 20, InPatch: true},
		{RunID: "run-1", Hour: 24, X: 11, Y: 22, InPatch: true},
		{RunID: "run-1", Hour: 24, X: 200, Y: 90},
	}); err != nil {
		t.Fatalf("AddPatchPositions: %v", err)
	}
	if err := s.AddPopulationSamples(ctx, []models.PopulationSample{
		{RunID: "run-1", Hour: 72, Class: "LTi", State: 7, Count: 30},
		{RunID: "run-1", Hour: 72, Class: "LTo", State: 3, Count: 12},
	}); err != nil {
		t.Fatalf("AddPopulationSamples: %v", err)
	}
	return s
}

func TestExportImport_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := DefaultPath(t.TempDir(), "run-1")

	header, err := Export(ctx, seededStore(t), "run-1", path)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if header.RunID != "run-1" || header.Replicate != "2" {
		t.Errorf("header run = %q/%q, want run-1/2", header.RunID, header.Replicate)
	}
	if header.Tracks != 2 || header.Patches != 3 || header.Samples != 2 {
		t.Errorf("header counts = %d/%d/%d, want 2/3/2", header.Tracks, header.Patches, header.Samples)
	}
	if !strings.HasPrefix(header.Checksum, "sha256:") {
		t.Errorf("Checksum = %q, want sha256: prefix", header.Checksum)
	}

	target := store.NewInMemoryResultStore()
	exp, err := Import(ctx, target, path)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if exp.Run.Steps != 4321 {
		t.Errorf("imported Steps = %d, want 4321", exp.Run.Steps)
	}

	summary, err := store.Summarize(ctx, target, "run-1")
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if got := summary.TrackRecords[models.TableClose]; got != 1 {
		t.Errorf("Close tracks = %d, want 1", got)
	}
	if len(summary.Patches) != 1 || summary.Patches[0].InPatch != 2 {
		t.Errorf("Patches = %+v, want one hour with 2 in patch", summary.Patches)
	}
	if len(summary.FinalPopulation) != 2 {
		t.Errorf("FinalPopulation = %d entries, want 2", len(summary.FinalPopulation))
	}
}

func TestExport_UnknownRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.ppsim.gz")
	if _, err := Export(context.Background(), seededStore(t), "nope", path); err == nil {
		t.Fatal("Export() should fail for an unknown run")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("archive written for an unknown run: %v", err)
	}
}

func TestVerify(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "run.ppsim.gz")
	if _, err := Export(ctx, seededStore(t), "run-1", path); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		mutate  func([]byte) []byte
		wantErr string
	}{
		{"intact", func(b []byte) []byte { return b }, ""},
		{"tampered payload", func(b []byte) []byte {
			out := append([]byte(nil), b...)
			out[len(out)-1] ^= 0xFF
			return out
		}, "checksum mismatch"},
		{"no header", func(b []byte) []byte { return []byte("not an archive") }, "reading header line"},
		{"wrong version", func(b []byte) []byte {
			return []byte(strings.Replace(string(b), `"version":1`, `"version":9`, 1))
		}, "unsupported archive version"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := filepath.Join(dir, strings.ReplaceAll(tt.name, " ", "_"))
			if err := os.WriteFile(p, tt.mutate(data), 0644); err != nil {
				t.Fatal(err)
			}

			header, err := Verify(p)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Verify() error = %v", err)
				}
				if header.RunID != "run-1" {
					t.Errorf("RunID = %q, want run-1", header.RunID)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Verify() error = %v, want containing %q", err, tt.wantErr)
			}
			if _, err := Read(p); err == nil {
				t.Error("Read() should fail for a bad archive")
			}
		})
	}
}

func TestReadHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.ppsim.gz")
	if _, err := Export(context.Background(), seededStore(t), "run-1", path); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	header, err := ReadHeader(path)
	if err != nil {
		t.Fatalf("ReadHeader() error = %v", err)
	}
	if header.Version != FormatVersion {
		t.Errorf("Version = %d, want %d", header.Version, FormatVersion)
	}
	if header.Description != "baseline" {
		t.Errorf("Description = %q, want baseline", header.Description)
	}
	if header.CreatedAt.IsZero() {
		t.Error("CreatedAt is zero")
	}
}

func TestDefaultPath(t *testing.T) {
	got := DefaultPath("out", "abc")
	want := filepath.Join("out", "abc.ppsim.gz")
	if got != want {
		t.Errorf("DefaultPath() = %q, want %q", got, want)
	}
}
