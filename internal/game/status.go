package game

// Status is the lifecycle state of a puzzle session.
type Status int

const (
	// StatusIdle means no puzzle is loaded.
	StatusIdle Status = iota
	// StatusPlaying means a puzzle is in progress.
	StatusPlaying
	// StatusWon means the grid was completed with no outstanding mistakes.
	StatusWon
	// StatusLost means the lifetime mistake counter reached the strike limit.
	StatusLost
)

// MaxMistakes is the lifetime mistake count at which a session is lost.
const MaxMistakes = 3

// Terminal reports whether the status is an end state. Once terminal, the
// working grid is immutable until an explicit reset or new game.
func (s Status) Terminal() bool {
	return s == StatusWon || s == StatusLost
}

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusPlaying:
		return "playing"
	case StatusWon:
		return "won"
	case StatusLost:
		return "lost"
	default:
		return "unknown"
	}
}
