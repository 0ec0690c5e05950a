package asupersync

// ReactorKind selects which readiness backend a runtime's scheduler pairs
// with.
type ReactorKind uint8

const (
	ReactorAuto ReactorKind = iota
	ReactorEpoll
	ReactorKqueue
	ReactorIOCP
	ReactorLab
	ReactorBrowser
)

// TimeSourceKind selects which clock.Clock backend a runtime uses.
type TimeSourceKind uint8

const (
	TimeSourceWall TimeSourceKind = iota
	TimeSourceVirtual
	TimeSourceBrowser
)

// TraceMode selects how (or whether) a runtime records its trace.
type TraceMode uint8

const (
	TraceOff TraceMode = iota
	TraceRecord
	TraceRecordAndExport
)

// SchedulerConfig configures the three-lane scheduler.
type SchedulerConfig struct {
	BurstLimit               int
	BrowserReadyHandoffLimit int
}

// AdmissionConfig sets the default admission bounds new regions are created
// with when the caller doesn't supply its own AdmissionBounds.
type AdmissionConfig struct {
	MaxTasks       int
	MaxObligations int
	MaxHeapBytes   int64
}

// RuntimeConfig is a runtime driver's complete configuration, built the way
// the teacher builds Config/Option/defaultConfig/validateConfig: a plain
// struct with a default constructor and a parallel functional-options layer
// that mutates a builder before freezing it into a RuntimeConfig.
type RuntimeConfig struct {
	Workers    int
	Scheduler  SchedulerConfig
	Reactor    ReactorKind
	TimeSource TimeSourceKind
	Admission  AdmissionConfig
	Trace      TraceMode
}

// defaultRuntimeConfig mirrors the teacher's defaultConfig: the values a
// runtime gets when the caller applies no options at all.
func defaultRuntimeConfig() RuntimeConfig {
	return RuntimeConfig{
		Workers: 0, // resolved to GOMAXPROCS-equivalent at runtime construction
		Scheduler: SchedulerConfig{
			BurstLimit:               4,
			BrowserReadyHandoffLimit: 0,
		},
		Reactor:    ReactorAuto,
		TimeSource: TimeSourceWall,
		Admission: AdmissionConfig{
			MaxTasks:       0,
			MaxObligations: 0,
			MaxHeapBytes:   0,
		},
		Trace: TraceOff,
	}
}

// Option mutates a RuntimeConfig being built, the same functional-options
// shape the teacher layers over its Config.
type Option func(*RuntimeConfig)

// WithWorkers sets the worker concurrency bound.
func WithWorkers(n int) Option {
	return func(c *RuntimeConfig) { c.Workers = n }
}

// WithBurstLimit sets the scheduler's High-lane burst limit.
func WithBurstLimit(n int) Option {
	return func(c *RuntimeConfig) { c.Scheduler.BurstLimit = n }
}

// WithBrowserReadyHandoffLimit sets the cooperative Tick default used by
// the browser reactor backend.
func WithBrowserReadyHandoffLimit(n int) Option {
	return func(c *RuntimeConfig) { c.Scheduler.BrowserReadyHandoffLimit = n }
}

// WithReactor selects the reactor backend.
func WithReactor(kind ReactorKind) Option {
	return func(c *RuntimeConfig) { c.Reactor = kind }
}

// WithTimeSource selects the clock backend.
func WithTimeSource(kind TimeSourceKind) Option {
	return func(c *RuntimeConfig) { c.TimeSource = kind }
}

// WithAdmission sets the default admission bounds for new regions.
func WithAdmission(cfg AdmissionConfig) Option {
	return func(c *RuntimeConfig) { c.Admission = cfg }
}

// WithTrace selects the trace recording mode.
func WithTrace(mode TraceMode) Option {
	return func(c *RuntimeConfig) { c.Trace = mode }
}

// NewRuntimeConfig builds a RuntimeConfig from defaultRuntimeConfig with
// opts applied in order.
func NewRuntimeConfig(opts ...Option) RuntimeConfig {
	cfg := defaultRuntimeConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
