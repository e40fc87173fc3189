package replay

// Sink receives published key/value updates during replay. A Put failure
// affects only that key; the scheduler never blocks on the sink.
type Sink interface {
	Put(key string, v FrameValue) error
	Flush()
	Close() error
}

// NopSink is the sink used until a server target is configured.
type NopSink struct{}

func (NopSink) Put(string, FrameValue) error { return nil }
func (NopSink) Flush()                       {}
func (NopSink) Close() error                 { return nil }
