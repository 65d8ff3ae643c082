package memsync

import "fmt"

// Outcome is the terminal state of a write through the fallback chain.
type Outcome int

const (
	// OutcomeRemoteConfirmed means the remote store accepted the write.
	OutcomeRemoteConfirmed Outcome = iota
	// OutcomeLocalApplied means the local backend accepted the write and no remote is
	// configured, so nothing was queued.
	OutcomeLocalApplied
	// OutcomeQueued means the local backend accepted the write and it waits in the
	// sync queue for the remote.
	OutcomeQueued
	// OutcomeFailed means the local backend rejected the write too. It is queued in
	// memory and the caller gets a *FallbackError.
	OutcomeFailed
)

var outcomeNames = map[Outcome]string{
	OutcomeRemoteConfirmed: "remote_confirmed",
	OutcomeLocalApplied:    "local_applied",
	OutcomeQueued:          "queued",
	OutcomeFailed:          "failed",
}

func (o Outcome) String() string {
	if s, ok := outcomeNames[o]; ok {
		return s
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// MarshalText renders the outcome name in JSON responses.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}
