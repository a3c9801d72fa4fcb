package engine

// Outcome is the terminal state of one clipboard change.
type Outcome int

const (
	// OutcomeIgnored means the change referenced the engine's own files.
	OutcomeIgnored Outcome = iota
	OutcomeOversized
	OutcomeEmpty
	OutcomeDuplicate
	OutcomeAccepted
	// OutcomeFailed means reading the clipboard or persisting failed; nothing
	// was published and the catalog is unchanged.
	OutcomeFailed
)

var outcomeNames = [...]string{
	OutcomeIgnored:   "ignored",
	OutcomeOversized: "oversized",
	OutcomeEmpty:     "empty",
	OutcomeDuplicate: "duplicate",
	OutcomeAccepted:  "accepted",
	OutcomeFailed:    "failed",
}

func (o Outcome) String() string {
	if o < 0 || int(o) >= len(outcomeNames) {
		return "unknown"
	}
	return outcomeNames[o]
}
