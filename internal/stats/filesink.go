package stats

import (
	"context"
	"encoding/csv"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/kalden/ppsim/internal/config"
	"github.com/kalden/ppsim/internal/constants"
	"github.com/kalden/ppsim/internal/models"
)

var trackHeader = []string{
	"Cell Type", "Time Span", "Cell State", "Cell Speed",
	"Cell Start Position X", "Cell Start Position Y",
	"Cell End Position X", "Cell End Position Y",
	"Length", "Velocity", "Displacement", "Displacement Rate",
	"Meandering Index", "Nearest LTo Cell (microns)",
}

var patchHeader = []string{"LTi_X", "LTi_Y"}

var populationHeader = []string{"hour", "class", "state", "state_code", "count"}

// simulationResult is the root element of every XML result file.
type simulationResult[T any] struct {
	XMLName xml.Name `xml:"SimulationResult"`
	Cells   []T      `xml:"cell"`
}

type xmlTrack struct {
	CellType           string  `xml:"cellType"`
	TimeSpan           int64   `xml:"TimeSpan"`
	CellState          int     `xml:"CellState"`
	CellSpeed          float64 `xml:"CellSpeed"`
	CellStartPositionX float64 `xml:"CellStartPositionX"`
	CellStartPositionY float64 `xml:"CellStartPositionY"`
	CellEndPositionX   float64 `xml:"CellEndPositionX"`
	CellEndPositionY   float64 `xml:"CellEndPositionY"`
	Length             float64 `xml:"Length"`
	Velocity           float64 `xml:"Velocity"`
	Displacement       float64 `xml:"Displacement"`
	DisplacementRate   float64 `xml:"DisplacementRate"`
	MeanderingIndex    float64 `xml:"MeanderingIndex"`
	NearestLToCell     float64 `xml:"NearestLToCell"`
}

type xmlPatch struct {
	X float64 `xml:"LTi_X"`
	Y float64 `xml:"LTi_Y"`
}

// FileSink writes results as CSV and XML files under one run directory:
//
//	trackedCells_Close_<start>.csv/.xml, trackedCells_Away_<start>.csv/.xml
//	patchStats_<hour>.csv/.xml (cells in a patch)
//	patchStatsAll_<hour>.csv/.xml (every LTi)
//	population.csv
type FileSink struct {
	dir string

	mu        sync.Mutex
	popFile   *os.File
	popWriter *csv.Writer
}

// NewFileSink creates dir if needed and opens the population file.
func NewFileSink(dir string) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating results directory: %w", err)
	}
	f, err := os.Create(filepath.Join(dir, constants.PopulationFile))
	if err != nil {
		return nil, fmt.Errorf("creating population file: %w", err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(populationHeader); err != nil {
		f.Close()
		return nil, err
	}
	return &FileSink{dir: dir, popFile: f, popWriter: w}, nil
}

// Dir returns the run directory.
func (s *FileSink) Dir() string {
	return s.dir
}

func (s *FileSink) WriteTracks(ctx context.Context, window config.HourRange, records []models.TrackRecord) error {
	for _, table := range []string{models.TableClose, models.TableAway} {
		var rows [][]string
		var cells []xmlTrack
		for _, r := range records {
			if r.Table != table {
				continue
			}
			rows = append(rows, []string{
				r.CellType,
				strconv.FormatInt(r.Steps, 10),
				strconv.Itoa(r.State),
				formatFloat(r.Speed),
				formatFloat(r.StartX),
				formatFloat(r.StartY),
				formatFloat(r.EndX),
				formatFloat(r.EndY),
				formatFloat(r.Length),
				formatFloat(r.Velocity),
				formatFloat(r.Displacement),
				formatFloat(r.DisplacementRate),
				formatFloat(r.MeanderingIndex),
				formatFloat(r.NearestOrganizer),
			})
			cells = append(cells, xmlTrack{
				CellType:           r.CellType,
				TimeSpan:           r.Steps,
				CellState:          r.State,
				CellSpeed:          r.Speed,
				CellStartPositionX: r.StartX,
				CellStartPositionY: r.StartY,
				CellEndPositionX:   r.EndX,
				CellEndPositionY:   r.EndY,
				Length:             r.Length,
				Velocity:           r.Velocity,
				Displacement:       r.Displacement,
				DisplacementRate:   r.DisplacementRate,
				MeanderingIndex:    r.MeanderingIndex,
				NearestLToCell:     r.NearestOrganizer,
			})
		}

		base := filepath.Join(s.dir, fmt.Sprintf("trackedCells_%s_%d", table, window.Start))
		if err := writeCSV(base+".csv", trackHeader, rows); err != nil {
			return err
		}
		if err := writeXML(base+".xml", simulationResult[xmlTrack]{Cells: cells}); err != nil {
			return err
		}
	}
	return nil
}

func (s *FileSink) WritePatches(ctx context.Context, hour float64, positions []models.PatchPosition) error {
	var patchRows, allRows [][]string
	var patchCells, allCells []xmlPatch
	for _, p := range positions {
		row := []string{formatFloat(p.X), formatFloat(p.Y)}
		cell := xmlPatch{X: p.X, Y: p.Y}
		if p.InPatch {
			patchRows = append(patchRows, row)
			patchCells = append(patchCells, cell)
		}
		allRows = append(allRows, row)
		allCells = append(allCells, cell)
	}

	label := formatFloat(hour)
	outputs := []struct {
		name  string
		rows  [][]string
		cells []xmlPatch
	}{
		{"patchStats_" + label, patchRows, patchCells},
		{"patchStatsAll_" + label, allRows, allCells},
	}
	for _, o := range outputs {
		base := filepath.Join(s.dir, o.name)
		if err := writeCSV(base+".csv", patchHeader, o.rows); err != nil {
			return err
		}
		if err := writeXML(base+".xml", simulationResult[xmlPatch]{Cells: o.cells}); err != nil {
			return err
		}
	}
	return nil
}

func (s *FileSink) WritePopulation(ctx context.Context, samples []models.PopulationSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.popWriter == nil {
		return fmt.Errorf("population file is closed")
	}
	for _, sm := range samples {
		if err := s.popWriter.Write([]string{
			formatFloat(sm.Hour),
			sm.Class,
			stateName(sm.State),
			strconv.Itoa(sm.State),
			strconv.Itoa(sm.Count),
		}); err != nil {
			return err
		}
	}
	s.popWriter.Flush()
	return s.popWriter.Error()
}

// Close flushes and closes the population file.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.popFile == nil {
		return nil
	}
	s.popWriter.Flush()
	err := s.popWriter.Error()
	if cerr := s.popFile.Close(); err == nil {
		err = cerr
	}
	s.popFile = nil
	s.popWriter = nil
	return err
}

func writeCSV(path string, header []string, rows [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(header); err != nil {
		return err
	}
	if err := writer.WriteAll(rows); err != nil {
		return err
	}
	return file.Close()
}

func writeXML(path string, v any) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if _, err := file.WriteString(xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(file)
	enc.Indent("", "     ")
	if err := enc.Encode(v); err != nil {
		return err
	}
	if _, err := file.WriteString("\n"); err != nil {
		return err
	}
	return file.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
