package brain

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/decisionlayer/tickbatch/pkg/config"
	layererr "github.com/decisionlayer/tickbatch/pkg/errors"
	"github.com/decisionlayer/tickbatch/pkg/infer"
	"github.com/decisionlayer/tickbatch/pkg/telemetry"
)

// Layer is the batching layer over one exclusively-owned inference
// engine. It is single-threaded and cooperative: one tick runs to
// completion before the next begins, and Tick blocks its caller for the
// full duration.
type Layer struct {
	id  string
	cfg config.BrainConfig
	eng infer.Engine
	sig Signature
	col *collector
	bld *builder
	dmx *demuxer

	// mode is read by the monitor goroutine while the tick thread may
	// switch it, hence the atomic.
	mode atomic.Int32

	log     *slog.Logger
	metrics *telemetry.TickMetrics

	stats layerStats
}

// layerStats are cheap counters read concurrently by the monitor.
type layerStats struct {
	totalTicks    atomic.Int64
	totalRequests atomic.Int64
	emptyTicks    atomic.Int64
	externalTicks atomic.Int64
	failedTicks   atomic.Int64
	lastBatchSize atomic.Int32
	avgTickMicros atomic.Int64 // exponential moving average
}

// StatsSnapshot is a point-in-time copy of the layer counters.
type StatsSnapshot struct {
	SessionID     string `json:"session_id"`
	Mode          string `json:"mode"`
	TotalTicks    int64  `json:"total_ticks"`
	TotalRequests int64  `json:"total_requests"`
	EmptyTicks    int64  `json:"empty_ticks"`
	ExternalTicks int64  `json:"external_ticks"`
	FailedTicks   int64  `json:"failed_ticks"`
	LastBatchSize int32  `json:"last_batch_size"`
	AvgTickMicros int64  `json:"avg_tick_micros"`
}

// Option customizes layer construction.
type Option func(*Layer)

// WithLogger sets the structured logger.
func WithLogger(log *slog.Logger) Option {
	return func(l *Layer) { l.log = log }
}

// WithMetrics attaches telemetry instruments.
func WithMetrics(m *telemetry.TickMetrics) Option {
	return func(l *Layer) { l.metrics = m }
}

// WithSeed seeds the auxiliary-input sampler, for reproducible runs.
func WithSeed(seed int64) Option {
	return func(l *Layer) { l.bld.rng.Seed(seed) }
}

// New probes the engine once and constructs the layer. A model without
// the mandatory action output fails here with ModelIncompatible and the
// layer must not be used.
func New(ctx context.Context, eng infer.Engine, cfg config.BrainConfig, opts ...Option) (*Layer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	sig, err := Probe(ctx, eng, cfg)
	if err != nil {
		return nil, err
	}

	l := &Layer{
		id:  uuid.NewString(),
		cfg: cfg,
		eng: eng,
		sig: sig,
		col: newCollector(),
		bld: newBuilder(sig, cfg, eng, time.Now().UnixNano()),
		dmx: &demuxer{sig: sig, names: cfg.Nodes, action: cfg.Action},
		log: slog.Default(),
	}
	if cfg.ExternallyControlled {
		l.mode.Store(int32(ModeExternal))
	}
	for _, opt := range opts {
		opt(l)
	}

	l.log.Info("batching layer attached",
		"session", l.id,
		"mode", l.Mode().String(),
		"batch_size_input", sig.HasBatchSize,
		"vector_observation", sig.HasVectorObservation,
		"recurrent", sig.HasRecurrent,
		"memory_size", sig.MemorySize,
		"previous_action", sig.HasPreviousAction,
		"action_mask", sig.HasActionMask,
		"value_estimate", sig.HasValueEstimate,
		"visual_inputs", len(sig.VisualInputs),
	)
	return l, nil
}

// Signature returns the capability signature computed at load.
func (l *Layer) Signature() Signature { return l.sig }

// SessionID returns the unique id of this layer instance.
func (l *Layer) SessionID() string { return l.id }

// Mode returns the current control mode.
func (l *Layer) Mode() Mode { return Mode(l.mode.Load()) }

// SetMode switches between autonomous and external control. The switch
// takes effect at the next tick start.
func (l *Layer) SetMode(m Mode) { l.mode.Store(int32(m)) }

// Submit registers one agent's observation for the upcoming tick.
func (l *Layer) Submit(id AgentID, req *ObservationRequest) {
	l.col.submit(id, req)
}

// Pending returns the number of agents with a request queued.
func (l *Layer) Pending() int { return l.col.count() }

// Tick runs one COLLECT→BUILD→INFER→DEMUX→CLEAR cycle and returns one
// decision per agent that had a pending request, in submission order.
// Per-tick errors abort only this tick; CLEAR always runs, so a failed
// tick never corrupts the next one.
func (l *Layer) Tick(ctx context.Context) ([]Decision, error) {
	defer l.col.clear()

	manifest, requests := l.col.beginTick()

	if l.Mode() == ModeExternal {
		// Control belongs to an outside process: drop this tick's
		// observations and decide nothing.
		l.stats.externalTicks.Add(1)
		return nil, nil
	}
	if len(manifest) == 0 {
		l.stats.emptyTicks.Add(1)
		return nil, nil
	}

	start := time.Now()

	decisions, err := l.runBatch(ctx, manifest, requests)
	elapsed := time.Since(start)
	if err != nil {
		l.stats.failedTicks.Add(1)
		if l.metrics != nil {
			l.metrics.RecordError(ctx, string(layererr.CodeOf(err)))
		}
		l.log.Warn("tick failed", "session", l.id, "agents", len(manifest), "err", err)
		return nil, err
	}

	l.recordTick(ctx, len(manifest), elapsed)
	l.log.Debug("tick complete",
		"session", l.id, "agents", len(manifest), "elapsed", elapsed)
	return decisions, nil
}

func (l *Layer) runBatch(ctx context.Context, manifest Manifest, requests []*ObservationRequest) ([]Decision, error) {
	inputs, err := l.bld.build(manifest, requests)
	if err != nil {
		return nil, err
	}

	outputs, err := l.eng.Run(ctx, inputs.Map(), l.dmx.fetchNames())
	if err != nil {
		return nil, infer.WrapRunError(err)
	}

	return l.dmx.demux(manifest, outputs)
}

func (l *Layer) recordTick(ctx context.Context, batch int, elapsed time.Duration) {
	l.stats.totalTicks.Add(1)
	l.stats.totalRequests.Add(int64(batch))
	l.stats.lastBatchSize.Store(int32(batch))

	micros := elapsed.Microseconds()
	old := l.stats.avgTickMicros.Load()
	if old == 0 {
		l.stats.avgTickMicros.Store(micros)
	} else {
		l.stats.avgTickMicros.Store(int64(float64(old)*0.7 + float64(micros)*0.3))
	}

	if l.metrics != nil {
		l.metrics.RecordTick(ctx, batch, elapsed)
	}
}

// Stats returns a snapshot of the layer counters.
func (l *Layer) Stats() StatsSnapshot {
	return StatsSnapshot{
		SessionID:     l.id,
		Mode:          l.Mode().String(),
		TotalTicks:    l.stats.totalTicks.Load(),
		TotalRequests: l.stats.totalRequests.Load(),
		EmptyTicks:    l.stats.emptyTicks.Load(),
		ExternalTicks: l.stats.externalTicks.Load(),
		FailedTicks:   l.stats.failedTicks.Load(),
		LastBatchSize: l.stats.lastBatchSize.Load(),
		AvgTickMicros: l.stats.avgTickMicros.Load(),
	}
}

// Close releases the engine session.
func (l *Layer) Close() error {
	return l.eng.Close()
}
