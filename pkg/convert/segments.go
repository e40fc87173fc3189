package convert

import (
	"strconv"
	"strings"
)

// RobotState is the driver-station state derived from the DS: flags.
type RobotState int

const (
	StateDisabled RobotState = iota
	StateTeleop
	StateAutonomous
	StateEStop
)

func (s RobotState) String() string {
	switch s {
	case StateTeleop:
		return "teleop"
	case StateAutonomous:
		return "autonomous"
	case StateEStop:
		return "estop"
	default:
		return "disabled"
	}
}

// Segment is a half-open stretch of the timeline during which the robot
// state did not change.
type Segment struct {
	Start float64
	End   float64
	State RobotState
}

const dsPrefix = "DS:"

// ComputeSegments derives the timeline segmentation from the boolean
// flag samples under DS: keys. Precedence: estop > disabled >
// autonomous > teleop. Samples must already be sorted by timestamp.
// Zero-width segments (two flags flipping at the same instant) are
// collapsed.
func ComputeSegments(samples []Sample) []Segment {
	flags := map[string]bool{
		"enabled":    false,
		"autonomous": false,
		"estop":      false,
	}
	state := func() RobotState {
		switch {
		case flags["estop"]:
			return StateEStop
		case !flags["enabled"]:
			return StateDisabled
		case flags["autonomous"]:
			return StateAutonomous
		default:
			return StateTeleop
		}
	}

	duration := 1.0
	if len(samples) > 0 {
		duration = samples[len(samples)-1].Timestamp
	}

	segments := make([]Segment, 0, 8)
	cur := state()
	start := 0.0
	for i := range samples {
		s := &samples[i]
		if !strings.HasPrefix(s.Key, dsPrefix) {
			continue
		}
		flag := strings.TrimPrefix(s.Key, dsPrefix)
		if _, ok := flags[flag]; !ok {
			continue
		}
		val, err := strconv.ParseBool(s.Value)
		if err != nil {
			val = false
		}
		flags[flag] = val
		next := state()
		if next == cur {
			continue
		}
		if s.Timestamp > start {
			segments = append(segments, Segment{Start: start, End: s.Timestamp, State: cur})
		}
		cur = next
		start = s.Timestamp
	}
	if duration > start || len(segments) == 0 {
		segments = append(segments, Segment{Start: start, End: duration, State: cur})
	}
	return segments
}
