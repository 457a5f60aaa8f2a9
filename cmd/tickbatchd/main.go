// Command tickbatchd runs the batching layer against the reference
// backend with a set of synthetic agents, exposing the monitor
// endpoints. It exists for demos, smoke tests, and load probing; real
// deployments embed pkg/brain directly in their simulation loop.
package main

import (
	"context"
	"flag"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/decisionlayer/tickbatch/pkg/brain"
	"github.com/decisionlayer/tickbatch/pkg/config"
	"github.com/decisionlayer/tickbatch/pkg/infer/refgraph"
	"github.com/decisionlayer/tickbatch/pkg/monitor"
	"github.com/decisionlayer/tickbatch/pkg/telemetry"
)

const (
	demoObsWidth   = 8
	demoMemorySize = 16
)

func main() {
	configPath := flag.String("config", "", "path to yaml config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	log := telemetry.ConfigureSlog(os.Stdout, cfg.Log.Level, cfg.Log.Format)

	shutdownTelemetry, err := telemetry.Init("tickbatchd", "dev", cfg.Telemetry.Exporter)
	if err != nil {
		log.Error("init telemetry", "err", err)
		os.Exit(1)
	}
	defer shutdownTelemetry(context.Background())

	def, err := loadGraph(cfg)
	if err != nil {
		log.Error("load model", "err", err)
		os.Exit(1)
	}
	eng, err := refgraph.New(def)
	if err != nil {
		log.Error("create engine", "err", err)
		os.Exit(1)
	}

	metrics, err := telemetry.NewTickMetrics()
	if err != nil {
		log.Error("create metrics", "err", err)
		os.Exit(1)
	}

	layer, err := brain.New(context.Background(), eng, cfg.Brain,
		brain.WithLogger(log), brain.WithMetrics(metrics))
	if err != nil {
		log.Error("attach model", "err", err)
		os.Exit(1)
	}
	defer layer.Close()

	if cfg.Monitor.Enabled {
		mon := monitor.New(layer,
			time.Duration(cfg.Monitor.PushIntervalMs)*time.Millisecond, log)
		mux := http.NewServeMux()
		mon.Register(mux)
		mon.Start()
		defer mon.Stop()

		go func() {
			log.Info("monitor listening", "addr", cfg.Monitor.Addr)
			if err := http.ListenAndServe(cfg.Monitor.Addr, mux); err != nil {
				log.Error("monitor server failed", "err", err)
				os.Exit(1)
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log.Info("tickbatchd starting",
		"agents", cfg.Runtime.Agents,
		"tick_interval_ms", cfg.Runtime.TickIntervalMs,
		"model_path", cfg.Runtime.ModelPath,
	)
	drive(layer, cfg, log, quit)
	log.Info("tickbatchd stopped")
}

// loadGraph reads the configured model blob, or falls back to a built-in
// demo graph matching the default brain config.
func loadGraph(cfg *config.Config) (*refgraph.GraphDef, error) {
	if cfg.Runtime.ModelPath != "" {
		return refgraph.LoadFile(cfg.Runtime.ModelPath)
	}
	return &refgraph.GraphDef{
		Inputs: map[string]int{
			cfg.Brain.Nodes.BatchSize:         0,
			cfg.Brain.Nodes.VectorObservation: demoObsWidth,
			cfg.Brain.Nodes.RecurrentIn:       demoMemorySize,
		},
		Outputs: map[string]int{
			cfg.Brain.Nodes.Action:        cfg.Brain.Action.Width(),
			cfg.Brain.Nodes.RecurrentOut:  demoMemorySize,
			cfg.Brain.Nodes.ValueEstimate: 1,
		},
		Consts: map[string]float32{cfg.Brain.Nodes.MemorySize: demoMemorySize},
		Seed:   cfg.Runtime.Seed,
	}, nil
}

type syntheticAgent struct {
	id     brain.AgentID
	memory []float32
}

// drive runs the synchronous tick loop until a signal arrives. Each
// agent submits a fresh observation per tick and carries its recurrent
// memory forward from the previous decision.
func drive(layer *brain.Layer, cfg *config.Config, log *slog.Logger, quit <-chan os.Signal) {
	rng := rand.New(rand.NewSource(cfg.Runtime.Seed + 1))
	agents := make([]*syntheticAgent, cfg.Runtime.Agents)
	for i := range agents {
		agents[i] = &syntheticAgent{id: brain.NewAgentID()}
	}

	ticker := time.NewTicker(time.Duration(cfg.Runtime.TickIntervalMs) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-quit:
			return
		case <-ticker.C:
		}

		for _, a := range agents {
			obs := make([]float32, demoObsWidth)
			for i := range obs {
				obs[i] = rng.Float32()*2 - 1
			}
			layer.Submit(a.id, &brain.ObservationRequest{
				VectorObservation: obs,
				Memory:            a.memory,
			})
		}

		decisions, err := layer.Tick(context.Background())
		if err != nil {
			// Per-tick errors never poison the next tick; log and go on.
			log.Warn("tick error", "err", err)
			continue
		}
		for i, dec := range decisions {
			agents[i].memory = dec.Memory
		}
	}
}
