package habitat

// Status is the outcome of one environment tick.
type Status int

const (
	Dead Status = iota
	Alive
)

// StatusFromDone converts an environment "episode done" flag into a Status.
func StatusFromDone(done bool) Status {
	if done {
		return Dead
	}
	return Alive
}

func (s Status) String() string {
	switch s {
	case Alive:
		return "alive"
	case Dead:
		return "dead"
	default:
		return "unknown"
	}
}
