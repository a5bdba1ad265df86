package entities

// CoverageStatus tracks how completely a station/date-range chunk has been
// retrieved, so re-runs skip work that is already done.
type CoverageStatus string

const (
	// CoverageUnknown is the default status for chunks never attempted.
	CoverageUnknown CoverageStatus = "unknown"
	// CoverageBare marks chunks that failed to download or parse.
	CoverageBare CoverageStatus = "bare"
	// CoverageIncomplete marks chunks overlapping the current date; the
	// table keeps filling up as time progresses.
	CoverageIncomplete CoverageStatus = "incomplete"
	// CoverageCovered marks chunks fully retrieved and persisted.
	CoverageCovered CoverageStatus = "covered"
)

// DefaultWantCovered lists the statuses that a harvest run retries by default.
var DefaultWantCovered = []CoverageStatus{CoverageUnknown, CoverageBare, CoverageIncomplete}
