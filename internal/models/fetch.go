package models

import "time"

type FetchRecord struct {
	ID            string    `json:"id"`
	Region        string    `json:"region"`
	InstanceID    string    `json:"instance_id"`
	PublicAddress string    `json:"public_address"`
	Strategy      string    `json:"strategy"`
	CommandID     string    `json:"command_id,omitempty"`
	Status        string    `json:"status"`
	Attempts      int       `json:"attempts"`
	ArtifactPath  string    `json:"artifact_path,omitempty"`
	Error         string    `json:"error,omitempty"`
	OriginHost    string    `json:"origin_host"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
}

const (
	FetchSucceeded = "succeeded"
	FetchFailed    = "failed"
)
