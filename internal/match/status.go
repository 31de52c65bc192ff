package match

// Status enumerates the match lifecycle states. The numeric values are part of
// the wire contract: game_status_update pushes the raw value and the games
// table stores it.
type Status int

const (
	StatusWaiting Status = iota
	StatusRunning
	StatusPreGame
	StatusPaused
	StatusFinished
	StatusAborted
)

func (s Status) String() string {
	switch s {
	case StatusWaiting:
		return "waiting"
	case StatusRunning:
		return "running"
	case StatusPreGame:
		return "pregame"
	case StatusPaused:
		return "paused"
	case StatusFinished:
		return "finished"
	case StatusAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions can occur.
func (s Status) Terminal() bool {
	return s == StatusFinished || s == StatusAborted
}
