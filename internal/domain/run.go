package domain

import "time"

// RunStatus is the lifecycle state of a recorded apply run.
type RunStatus string

// Run statuses.
const (
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusSucceeded RunStatus = "SUCCEEDED"
	RunStatusPartial   RunStatus = "PARTIAL"
	RunStatusFailed    RunStatus = "FAILED"
)

// Run is one recorded apply against an account and region.
type Run struct {
	ID             string     `json:"id"`
	AccountID      string     `json:"account_id"`
	Region         string     `json:"region"`
	Status         RunStatus  `json:"status"`
	Applied        int        `json:"applied"`
	Failed         int        `json:"failed"`
	Skipped        int        `json:"skipped"`
	SnapshotDigest string     `json:"snapshot_digest,omitempty"`
	StartedAt      time.Time  `json:"started_at"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
}

// RunOutcome is the recorded result of one item of a run.
type RunOutcome struct {
	Kind      AssociationKind `json:"kind"`
	Operation string          `json:"operation"`
	ItemID    string          `json:"item_id"`
	Status    string          `json:"status"`
	Error     string          `json:"error,omitempty"`
}
