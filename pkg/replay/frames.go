// Package replay buckets sample streams into fixed-width frames and
// replays them against a key-value sink in step with wall-clock time.
package replay

import (
	"time"

	"github.com/robotlog/replay-service-go/pkg/convert"
	"github.com/robotlog/replay-service-go/pkg/datalog"
)

// DefaultPeriod is the frame width used unless configured otherwise.
const DefaultPeriod = 20 * time.Millisecond

// FrameValue is the last known value of one key within a frame.
type FrameValue struct {
	Type     datalog.Type
	Value    string
	Metadata string
}

// Frame holds the values that changed during one period. Frame i covers
// the half-open interval [i*period, (i+1)*period).
type Frame map[string]FrameValue

// Coalesce buckets the sorted sample list into frames. The last sample
// for a key within a slot wins. The result has floor(last/period)+1
// frames, or none at all for an empty input.
func Coalesce(samples []convert.Sample, period time.Duration) []Frame {
	if len(samples) == 0 {
		return []Frame{}
	}
	secs := period.Seconds()
	count := int(samples[len(samples)-1].Timestamp/secs) + 1
	frames := make([]Frame, count)
	for i := range frames {
		frames[i] = make(Frame)
	}
	for i := range samples {
		s := &samples[i]
		slot := int(s.Timestamp / secs)
		if slot < 0 || slot >= count {
			continue
		}
		frames[slot][s.Key] = FrameValue{
			Type:     s.Type,
			Value:    s.Value,
			Metadata: s.Metadata,
		}
	}
	return frames
}
