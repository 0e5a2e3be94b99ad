package status

import "time"

// RunPhase represents the outcome of the latest aggregation run
type RunPhase string

const (
	// RunPhaseRunning means an aggregation run is in progress
	RunPhaseRunning RunPhase = "Running"

	// RunPhaseComplete means every configured source was read
	RunPhaseComplete RunPhase = "Complete"

	// RunPhasePartial means a registry was published but some sources failed
	RunPhasePartial RunPhase = "Partial"

	// RunPhaseFailed means no source could be read and the previous registry was kept
	RunPhaseFailed RunPhase = "Failed"
)

// RunStatus represents the state of the aggregation runs of a registry
type RunStatus struct {
	// RunID identifies the latest run
	RunID string `json:"runId,omitempty" yaml:"runId,omitempty"`

	// Phase is the outcome of the latest run
	Phase RunPhase `json:"phase" yaml:"phase"`

	// Message provides additional information about the latest run
	Message string `json:"message,omitempty" yaml:"message,omitempty"`

	// LastAttempt is the start time of the latest run
	LastAttempt *time.Time `json:"lastAttempt,omitempty" yaml:"lastAttempt,omitempty"`

	// AttemptCount is the number of runs since the last complete run
	AttemptCount int `json:"attemptCount,omitempty" yaml:"attemptCount,omitempty"`

	// LastSuccess is the time a registry was last published
	LastSuccess *time.Time `json:"lastSuccess,omitempty" yaml:"lastSuccess,omitempty"`

	EngineCount      int `json:"engineCount,omitempty" yaml:"engineCount,omitempty"`
	DocumentCount    int `json:"documentCount,omitempty" yaml:"documentCount,omitempty"`
	TransformerCount int `json:"transformerCount,omitempty" yaml:"transformerCount,omitempty"`
	UnresolvedCount  int `json:"unresolvedCount,omitempty" yaml:"unresolvedCount,omitempty"`

	// RefreshInterval is the configured refresh interval, empty when runs are not repeated
	RefreshInterval string `json:"refreshInterval,omitempty" yaml:"refreshInterval,omitempty"`
}
