package models

type CommandRequest struct {
	Region       string `json:"region"`
	InstanceID   string `json:"instance_id"`
	Command      string `json:"command"`
	DocumentName string `json:"document_name"`
}

// CommandHandle is the identifier returned by a successful submission.
type CommandHandle string

type CommandStatus string

const (
	StatusPending    CommandStatus = "Pending"
	StatusInProgress CommandStatus = "InProgress"
	StatusDelayed    CommandStatus = "Delayed"
	StatusSuccess    CommandStatus = "Success"
	StatusFailed     CommandStatus = "Failed"
	StatusCancelled  CommandStatus = "Cancelled"
	StatusCancelling CommandStatus = "Cancelling"
	StatusTimedOut   CommandStatus = "TimedOut"
)

// IsTerminal reports whether no further transition can follow s.
// Cancelling is still in flight and resolves to Cancelled.
func (s CommandStatus) IsTerminal() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusCancelled, StatusTimedOut:
		return true
	}
	return false
}

func (s CommandStatus) IsFailure() bool {
	return s.IsTerminal() && s != StatusSuccess
}

// Invocation is the per-host record reported for a submitted command.
// HasOutput is false when the record carried no plugin output block.
type Invocation struct {
	InstanceID string        `json:"instance_id"`
	Status     CommandStatus `json:"status"`
	Output     string        `json:"output"`
	HasOutput  bool          `json:"-"`
}
