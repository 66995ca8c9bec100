package sorter

// State is the stage a cycle is in.
type State int

const (
	Idle State = iota
	Dropping
	Warming
	Capturing
	Splitting
	Displaying
	Classifying
	Encoding
	Sending
)

var stateNames = [...]string{
	Idle:        "idle",
	Dropping:    "dropping",
	Warming:     "warming",
	Capturing:   "capturing",
	Splitting:   "splitting",
	Displaying:  "displaying",
	Classifying: "classifying",
	Encoding:    "encoding",
	Sending:     "sending",
}

// String implements fmt.Stringer.
func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Busy reports whether s is inside a cycle.
func (s State) Busy() bool {
	return s != Idle
}
