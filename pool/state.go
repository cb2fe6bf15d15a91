package pool

// State is the lifecycle phase of a ThreadPool.
type State int32

const (
	// StateRunning accepts submissions.
	StateRunning State = iota
	// StateDraining rejects submissions while workers finish the backlog.
	StateDraining
	// StateStopped means every worker has exited.
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
