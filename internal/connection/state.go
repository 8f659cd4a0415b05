package connection

type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateReconnecting
	StateFailed
	StateClosedClean
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	case StateClosedClean:
		return "closed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state machine will make no further
// transitions without a manual Connect.
func (s State) Terminal() bool {
	return s == StateFailed || s == StateClosedClean
}
