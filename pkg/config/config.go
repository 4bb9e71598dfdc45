package config

// this holds the resolved configuration values from CLI
//
//nolint:lll // readablity
var (
	DB                string // connection string for the capture database
	WaitForServices   string // duration to wait for other services to be ready
	LogLevel          string // sets the log level (zap log level values)
	SQLLogLevel       string // sets the log level for sql subsystem
	LogFormat         string // text vs json
	LogFilter         string // zapfilter rules applied to the logger names
	EnableTelemetry   bool   // enable telemetry
	TelemetryEndpoint string // endpoint for telemetry, "stdout" prints to stdout
	CacheDir          string // directory of the local capture cache
	NatsURL           string // url of the NATS server, empty disables publishing
)

// Config holds the values of the command flags which select and process a session
type Config struct {
	Source      string // file, db or cache
	Target      string // db or cache (import)
	File        string // capture file
	Output      string // output file, "-" is stdout
	Year        int
	Event       string
	Session     string
	Watch       bool // rebuild when the capture file changes
	PrettyJSON  bool
	ReadThrough bool   // read the db source through the local cache
	KVBucket    string // jetstream key value bucket for info messages, empty disables
}
