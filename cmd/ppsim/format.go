package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/kalden/ppsim/internal/models"
	"github.com/kalden/ppsim/internal/tissue"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// printer groups thousands in human output.
var printer = message.NewPrinter(language.English)

// populationRow is the JSON form of one class/state count.
type populationRow struct {
	Class     string `json:"class"`
	State     string `json:"state"`
	StateCode int    `json:"state_code"`
	Count     int    `json:"count"`
}

func populationFromCounts(counts []tissue.PopulationCount) []populationRow {
	rows := make([]populationRow, 0, len(counts))
	for _, pc := range counts {
		rows = append(rows, populationRow{
			Class:     pc.Class,
			State:     pc.State.String(),
			StateCode: int(pc.State),
			Count:     pc.Count,
		})
	}
	return rows
}

func populationFromSamples(samples []models.PopulationSample) []populationRow {
	rows := make([]populationRow, 0, len(samples))
	for _, sm := range samples {
		rows = append(rows, populationRow{
			Class:     sm.Class,
			State:     tissue.State(sm.State).String(),
			StateCode: sm.State,
			Count:     sm.Count,
		})
	}
	return rows
}

// printPopulation writes rows as an aligned table.
func printPopulation(w io.Writer, rows []populationRow) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  CLASS\tSTATE\tCOUNT")
	for _, r := range rows {
		printer.Fprintf(tw, "  %s\t%s (%d)\t%d\n", r.Class, r.State, r.StateCode, r.Count)
	}
	tw.Flush()
}

// formatBytes formats a byte count as a human-readable string.
func formatBytes(b int64) string {
	const (
		kb = 1024
		mb = kb * 1024
		gb = mb * 1024
	)
	switch {
	case b >= gb:
		return fmt.Sprintf("%.1fGB", float64(b)/float64(gb))
	case b >= mb:
		return fmt.Sprintf("%.1fMB", float64(b)/float64(mb))
	case b >= kb:
		return fmt.Sprintf("%.1fKB", float64(b)/float64(kb))
	default:
		return fmt.Sprintf("%dB", b)
	}
}
