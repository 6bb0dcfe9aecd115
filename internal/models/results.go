package models

// Track tables. A tracked cell goes to TableClose when its nearest expressing
// organizer was within the close distance at the start of the window.
const (
	TableClose = "Close"
	TableAway  = "Away"
)

// TrackRecord is one migrating cell's path over one complete tracking window.
// Distances are in microns.
type TrackRecord struct {
	RunID  string `json:"run_id"`
	Window string `json:"window"` // Tracking range, e.g. "12-13"
	Table  string `json:"table"`  // TableClose or TableAway

	CellType string  `json:"cell_type"`
	State    int     `json:"state"`
	Steps    int64   `json:"steps"`
	Speed    float64 `json:"speed"`

	StartX float64 `json:"start_x"`
	StartY float64 `json:"start_y"`
	EndX   float64 `json:"end_x"`
	EndY   float64 `json:"end_y"`

	Length           float64 `json:"length"`
	Velocity         float64 `json:"velocity"` // Microns per minute
	Displacement     float64 `json:"displacement"`
	DisplacementRate float64 `json:"displacement_rate"`
	MeanderingIndex  float64 `json:"meandering_index"`

	// NearestOrganizer is the distance to the closest expressing organizer
	// when the window closed, or -1 when there was none.
	NearestOrganizer float64 `json:"nearest_organizer"`
}

// PatchPosition is one LTi cell's position at a patch statistics sample.
type PatchPosition struct {
	RunID string  `json:"run_id"`
	Hour  float64 `json:"hour"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	State int     `json:"state"`

	// InPatch is true when another LTi and an expressing organizer are both
	// within patch distance.
	InPatch bool `json:"in_patch"`
}

// PatchCount summarises one patch statistics sample.
type PatchCount struct {
	Hour    float64 `json:"hour"`
	Total   int     `json:"total"`
	InPatch int     `json:"in_patch"`
}

// PopulationSample is the number of cells of one class in one state at a
// simulated hour.
type PopulationSample struct {
	RunID string  `json:"run_id"`
	Hour  float64 `json:"hour"`
	Class string  `json:"class"`
	State int     `json:"state"`
	Count int     `json:"count"`
}
