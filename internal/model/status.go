package model

// Status describes where a document is in the extraction lifecycle.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// transitions is the closed set of allowed forward moves. Resubmission
// (terminal -> pending) is the only way back.
var transitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusFailed, StatusCancelled},
	StatusProcessing: {StatusCompleted, StatusFailed, StatusCancelled},
	StatusCompleted:  {StatusPending},
	StatusFailed:     {StatusPending},
	StatusCancelled:  {StatusPending},
}

// CanTransition reports whether moving from s to next is allowed.
func (s Status) CanTransition(next Status) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Terminal reports whether the status ends the current processing attempt.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}
