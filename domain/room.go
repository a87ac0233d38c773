package domain

type RoomState int

const (
	Running RoomState = iota
	ShuttingDown
)

func (s RoomState) String() string {
	if s == ShuttingDown {
		return "shutting_down"
	}
	return "running"
}
