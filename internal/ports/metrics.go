package ports

import "time"

// Outcome labels a finished operation in metrics.
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeFailure   Outcome = "failure"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeDeclined  Outcome = "declined"
)

// MetricsCollector records plugin lifecycle metrics.
//
// Implementations:
//   - internal/metrics.NoOpCollector (default for library code and tests)
//   - internal/metrics.PrometheusCollector (watch --metrics-addr)
type MetricsCollector interface {
	// RecordLaunch counts a plugin launch or snippet execution.
	RecordLaunch(plugin string, outcome Outcome)

	// RecordProvision records how long a dependency sync took.
	RecordProvision(plugin string, duration time.Duration, outcome Outcome)

	// RecordImport records an import session by source kind (disk, http, s3, git).
	RecordImport(source string, duration time.Duration, outcome Outcome)

	// RecordExport counts an export.
	RecordExport(plugin string, outcome Outcome)

	// SetPlugins reports the number of registered plugins after a scan.
	SetPlugins(count int)
}
