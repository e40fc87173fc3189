package replay

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robotlog/replay-service-go/log"
)

// Scheduler owns the replay position and drives time-accurate emission
// of frames to the sink. Control operations and the timing loop share
// the small position/flag state under one mutex; the frame array itself
// is immutable once loaded and swapped by atomic reference, observed
// once per tick.
type Scheduler struct {
	period       time.Duration
	maxTimestamp float64
	now          func() time.Time

	frames atomic.Pointer[[]Frame]

	mu         sync.Mutex
	idx        int
	playing    bool
	publishing bool
	origin     time.Time
	sink       Sink

	// prev is the last emitted frame, touched only by the timing loop
	prev Frame
}

type Option func(*Scheduler)

// WithPeriod sets the frame width.
func WithPeriod(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.period = d
		}
	}
}

// WithMaxTimestamp sets the upper bound Seek clamps to.
func WithMaxTimestamp(max float64) Option {
	return func(s *Scheduler) { s.maxTimestamp = max }
}

// WithClock replaces the wall clock, used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithSink sets the initial sink.
func WithSink(sink Sink) Option {
	return func(s *Scheduler) { s.sink = sink }
}

func NewScheduler(opts ...Option) *Scheduler {
	s := &Scheduler{
		period:       DefaultPeriod,
		maxTimestamp: 1000,
		now:          time.Now,
		sink:         NopSink{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.origin = s.now()
	return s
}

// Load replaces the frame array and resets the position to Stopped(0).
// The publishing flag is deliberately left alone.
func (s *Scheduler) Load(frames []Frame) {
	s.frames.Store(&frames)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.idx = 0
	s.playing = false
	s.origin = s.now()
}

// Seek moves the position to t seconds, clamped to [0, maxTimestamp].
// Legal in any state; does not change the play state.
func (s *Scheduler) Seek(t float64) {
	t = min(max(t, 0), s.maxTimestamp)
	offset := time.Duration(t * float64(time.Second))
	s.mu.Lock()
	defer s.mu.Unlock()
	s.idx = int(offset / s.period)
	s.origin = s.now().Add(-offset)
}

// Play resumes from the current position.
func (s *Scheduler) Play() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.playing {
		return
	}
	s.origin = s.now().Add(-time.Duration(s.idx) * s.period)
	s.playing = true
}

// Pause freezes the position.
func (s *Scheduler) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = false
}

// Stop resets the position to the start.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = false
	s.idx = 0
	s.origin = s.now()
}

// SetPublishing toggles whether advancing writes to the sink. Position
// keeps advancing either way.
func (s *Scheduler) SetPublishing(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publishing = on
}

// SetSink replaces the sink, closing the previous one.
func (s *Scheduler) SetSink(sink Sink) {
	s.mu.Lock()
	old := s.sink
	s.sink = sink
	s.mu.Unlock()
	if old != nil {
		if err := old.Close(); err != nil {
			log.Warn("closing previous sink", log.ErrorField(err))
		}
	}
}

// State returns the current position and flags.
func (s *Scheduler) State() (idx int, playing, publishing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.idx, s.playing, s.publishing
}

// Run is the timing loop. It wakes once per period, catches the
// position up to wall-clock time and emits changed keys. If the loop
// fell behind by more than a full period the deadline snaps forward by
// the whole periods missed instead of replaying every tick. Returns
// when ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	timer := time.NewTimer(0)
	defer timer.Stop()
	nextWake := s.now()
	for {
		timer.Reset(max(nextWake.Sub(s.now()), 0))
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}
		now := s.now()
		s.advance(now)
		nextWake = nextDeadline(nextWake, now, s.period)
	}
}

// nextDeadline advances the wake deadline by one period, snapping
// forward past whole missed periods under scheduler contention.
func nextDeadline(prev, now time.Time, period time.Duration) time.Time {
	next := prev.Add(period)
	if behind := now.Sub(next); behind > period {
		next = next.Add(behind / period * period)
	}
	return next
}

// advance is a single tick: bring idx up to the frame wall-clock time
// says we should be at, emitting every frame passed over. Emission
// diffs against the previously emitted frame; a failing sink write is
// logged and dropped, never stalls the loop.
func (s *Scheduler) advance(now time.Time) {
	var frames []Frame
	if p := s.frames.Load(); p != nil {
		frames = *p
	}

	s.mu.Lock()
	playing, publishing := s.playing, s.publishing
	idx, origin, sink := s.idx, s.origin, s.sink
	s.mu.Unlock()

	if !playing || len(frames) == 0 {
		return
	}

	elapsed := now.Sub(origin).Seconds()
	target := min(int(elapsed/s.period.Seconds()), len(frames)-1)
	for idx <= target {
		if publishing {
			s.emit(sink, frames[idx])
		}
		idx++
	}

	s.mu.Lock()
	s.idx = idx
	if idx >= len(frames) {
		// end of log
		s.playing = false
	}
	s.mu.Unlock()
}

func (s *Scheduler) emit(sink Sink, frame Frame) {
	for key, val := range frame {
		if prev, ok := s.prev[key]; ok && prev == val {
			continue
		}
		if err := sink.Put(key, val); err != nil {
			log.Warn("sink put failed",
				log.String("key", key), log.ErrorField(err))
		}
	}
	// keys present before but absent now are not retracted: the sink
	// keeps the last known value
	s.prev = frame
	sink.Flush()
}
