// Package constants provides named constants used throughout ppsim.
// This centralizes the biological and unit-conversion constants of the model.
package constants

// Unit conversion constants
const (
	// MicronsPerUnit converts field units to microns in all result output.
	MicronsPerUnit = 4.0

	// SecondsPerHour converts configured hours to simulated seconds.
	SecondsPerHour = 3600.0

	// SecondsPerMinute converts per-minute speeds to per-step speeds.
	SecondsPerMinute = 60.0
)

// Cell geometry constants
const (
	// DefaultCellDiameter is the diameter of every cell type in field units.
	DefaultCellDiameter = 6.0

	// PatchNeighbourFactor multiplies the cell diameter to give the radius
	// within which another LTi must lie for a cell to count as patched.
	PatchNeighbourFactor = 2.0

	// PatchOrganizerFactor multiplies the cell diameter to give the radius
	// within which an expressing LTo must lie for a cell to count as patched.
	PatchOrganizerFactor = 4.0
)

// Migration constants
const (
	// DefaultSpeedMinPerMinute is the lower bound of LTin/LTi speed in
	// field units per minute.
	DefaultSpeedMinPerMinute = 0.95

	// DefaultSpeedMaxPerMinute is the upper bound of LTin/LTi speed in
	// field units per minute.
	DefaultSpeedMaxPerMinute = 2.2

	// InputRateWindowHours is the period over which an input percentage of
	// the tissue area is admitted.
	InputRateWindowHours = 24.0
)

// Expressor defaults
const (
	// DefaultSigmoidThreshold is the chemokine ligand's sigmoid offset.
	DefaultSigmoidThreshold = 3.0

	// DefaultChemokineReducer is the step by which linearAdjust moves toward
	// the maximum expression value on each LTi adhesion.
	DefaultChemokineReducer = 0.005

	// DefaultAdhesionIncrement is the VCAM expression gain per adhesion.
	DefaultAdhesionIncrement = 0.05

	// SignalScale converts sigmoid signals (0..1) to percentages for the
	// direction roll.
	SignalScale = 100.0
)

// Lifecycle defaults
const (
	// DefaultDivisionHours is the active time between stromal divisions.
	DefaultDivisionHours = 12.0

	// DefaultMaxDivisionRadius caps the expanding division search.
	DefaultMaxDivisionRadius = 10

	// DefaultMaxPlacementAttempts caps random placement before falling back
	// to a linear scan.
	DefaultMaxPlacementAttempts = 1000

	// DefaultActivationContacts is the number of LTin contacts needed to
	// bring a RET-ligand-expressing LTo to the expressing state.
	DefaultActivationContacts = 1
)

// Tracking constants
const (
	// DefaultDisplacementThreshold is the raw displacement above which the
	// circumference wraparound correction applies.
	DefaultDisplacementThreshold = 200.0

	// CloseOrganizerMicrons is the nearest-LTo distance at or below which a
	// tracked cell is reported in the "Close" table.
	CloseOrganizerMicrons = 50.0
)

// Output file names
const (
	// DecisionsFile is the JSONL decision trace written at debug level.
	DecisionsFile = "decisions.jsonl"

	// DatabaseFile is the default SQLite results database name.
	DatabaseFile = "ppsim.db"

	// PopulationFile is the hourly population CSV.
	PopulationFile = "population.csv"
)

// Directory names
const (
	// GlobalDirName is the per-user ppsim directory under the home directory.
	GlobalDirName = ".ppsim"

	// ArchivesDirName holds run archives, both under GlobalDirName and under
	// an experiment's results directory.
	ArchivesDirName = "archives"
)

// AuditFile is the MCP tool audit log under the per-user ppsim directory.
const AuditFile = "audit.jsonl"
