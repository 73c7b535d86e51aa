package control

import "fmt"

type State int32

const (
	Idle State = iota
	Fetching
	Rendering
	Presenting
	AwaitingInput
	ShuttingDown
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Fetching:
		return "fetching"
	case Rendering:
		return "rendering"
	case Presenting:
		return "presenting"
	case AwaitingInput:
		return "awaiting input"
	case ShuttingDown:
		return "shutting down"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}
