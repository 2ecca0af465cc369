package status

import (
	"strings"
	"time"

	"github.com/sdkforge/repo-resolver/internal/source"
)

// LoadPhase represents the current phase of a source load operation
type LoadPhase string

const (
	// LoadPhaseLoading means a load is currently in progress
	LoadPhaseLoading LoadPhase = "Loading"

	// LoadPhaseComplete means the last load completed successfully
	LoadPhaseComplete LoadPhase = "Complete"

	// LoadPhaseFailed means the last load failed
	LoadPhaseFailed LoadPhase = "Failed"
)

// SourceStatus is the persisted state of one repository source. It survives
// restarts so the engine can report what it knew about a source even before
// the first load of the current process.
type SourceStatus struct {
	// Phase represents the current load phase
	Phase LoadPhase `json:"phase"`

	// URL is the source URL, including any canonical-filename rewrite from
	// a successful fallback
	URL string `json:"url"`

	// Message is the last load's error message, or empty on success
	Message string `json:"message,omitempty"`

	// LastAttempt is the timestamp of the last load attempt
	LastAttempt *time.Time `json:"lastAttempt,omitempty"`

	// AttemptCount is the number of load attempts since the last success
	AttemptCount int `json:"attemptCount,omitempty"`

	// LastLoadTime is the timestamp of the last successful load
	LastLoadTime *time.Time `json:"lastLoadTime,omitempty"`

	// LastOperationID correlates this status with the log entries of the
	// load that produced it
	LastOperationID string `json:"lastOperationId,omitempty"`

	// PackageCount is the number of packages from the last successful
	// load. A failed load does not reset it.
	PackageCount int `json:"packageCount,omitempty"`

	// SchemaURI is the schema the last successful document validated
	// against
	SchemaURI string `json:"schemaUri,omitempty"`

	// UpgradeRequired marks that the source publishes a newer schema and
	// only the self-update-capable subset was parsed
	UpgradeRequired bool `json:"upgradeRequired,omitempty"`
}

// RecordOutcome folds a finished load outcome into the status. Like the
// in-memory source, a failed load preserves what the last success reported:
// only the phase, message, and attempt bookkeeping change.
func (s *SourceStatus) RecordOutcome(out *source.Outcome, now time.Time) {
	s.LastAttempt = &now
	s.LastOperationID = out.OperationID

	if out.Packages == nil {
		s.Phase = LoadPhaseFailed
		s.Message = out.Error
		s.AttemptCount++
		return
	}

	s.Phase = LoadPhaseComplete
	s.Message = out.Error // non-empty only on the upgrade-required path
	s.AttemptCount = 0
	s.LastLoadTime = &now
	s.URL = out.URL
	s.PackageCount = len(out.Packages)
	s.SchemaURI = out.SchemaURI
	s.UpgradeRequired = out.UpgradeRequired
}

// SourceKey derives a filesystem-safe directory name from a source URL.
func SourceKey(url string) string {
	key := strings.TrimPrefix(url, "http://")
	key = strings.TrimPrefix(key, "https://")
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-':
			return r
		default:
			return '_'
		}
	}, key)
}
