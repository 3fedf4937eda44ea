package service

// BuildState is the outcome of a task worker's latest run.
type BuildState int

const (
	BuildStatePending BuildState = iota
	BuildStateSuccess
	BuildStateConfigFailed
	BuildStateBuildFailed
	BuildStateCompileFailed
	BuildStateWatching
)

func (s BuildState) String() string {
	switch s {
	case BuildStatePending:
		return "PENDING"
	case BuildStateSuccess:
		return "SUCCESS"
	case BuildStateConfigFailed:
		return "CONFIG_FAILED"
	case BuildStateBuildFailed:
		return "BUILD_FAILED"
	case BuildStateCompileFailed:
		return "COMPILE_FAILED"
	case BuildStateWatching:
		return "WATCHING"
	}
	return "UNKNOWN"
}

// Failed reports whether the state is one of the failure states.
func (s BuildState) Failed() bool {
	return s == BuildStateConfigFailed || s == BuildStateBuildFailed || s == BuildStateCompileFailed
}

type Status struct {
	State   BuildState
	Message string
}
