package config

// this holds the resolved configuration values from CLI
var (
	LogLevel     string  // sets the log level (zap log level values)
	LogFormat    string  // text vs json
	LogFilter    string  // zapfilter rules for named loggers
	Period       string  // frame period as duration string
	MaxTimestamp float64 // samples beyond this many seconds are discarded
	Bucket       string  // name of the KV bucket receiving published values
)
