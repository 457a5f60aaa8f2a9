// In-process throughput probe for the batching layer: drives N synthetic
// agents through the reference backend for a fixed duration and reports
// tick latency percentiles.
//
//	go run scripts/loadtest.go -agents 64 -duration 10s
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"sort"
	"time"

	"github.com/decisionlayer/tickbatch/pkg/brain"
	"github.com/decisionlayer/tickbatch/pkg/config"
	"github.com/decisionlayer/tickbatch/pkg/infer/refgraph"
)

const obsWidth = 8

func main() {
	agents := flag.Int("agents", 64, "Number of synthetic agents")
	duration := flag.Duration("duration", 10*time.Second, "Test duration")
	seed := flag.Int64("seed", 1, "Graph and observation seed")
	flag.Parse()

	log.Printf("load test starting: agents=%d, duration=%v", *agents, *duration)

	def := &refgraph.GraphDef{
		Inputs: map[string]int{
			"batch_size":         0,
			"vector_observation": obsWidth,
		},
		Outputs: map[string]int{
			"action":         2,
			"value_estimate": 1,
		},
		Seed: *seed,
	}
	eng, err := refgraph.New(def)
	if err != nil {
		log.Fatalf("create engine: %v", err)
	}

	brainCfg := config.BrainConfig{
		Nodes: config.NodeNames{
			BatchSize:         "batch_size",
			VectorObservation: "vector_observation",
			Action:            "action",
			ValueEstimate:     "value_estimate",
		},
		Action: config.ActionSpace{Kind: config.ActionContinuous, Size: 2},
	}
	layer, err := brain.New(context.Background(), eng, brainCfg)
	if err != nil {
		log.Fatalf("attach model: %v", err)
	}
	defer layer.Close()

	ids := make([]brain.AgentID, *agents)
	for i := range ids {
		ids[i] = brain.NewAgentID()
	}
	rng := rand.New(rand.NewSource(*seed))

	var latencies []time.Duration
	var ticks, requests, failures int64

	deadline := time.Now().Add(*duration)
	for time.Now().Before(deadline) {
		for _, id := range ids {
			obs := make([]float32, obsWidth)
			for i := range obs {
				obs[i] = rng.Float32()
			}
			layer.Submit(id, &brain.ObservationRequest{VectorObservation: obs})
		}

		start := time.Now()
		decisions, err := layer.Tick(context.Background())
		elapsed := time.Since(start)
		if err != nil {
			failures++
			continue
		}
		ticks++
		requests += int64(len(decisions))
		latencies = append(latencies, elapsed)
	}

	if len(latencies) == 0 {
		log.Fatal("no successful ticks")
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	pct := func(p float64) time.Duration {
		idx := int(p * float64(len(latencies)-1))
		return latencies[idx]
	}

	fmt.Println("=== results ===")
	fmt.Printf("ticks:        %d\n", ticks)
	fmt.Printf("requests:     %d\n", requests)
	fmt.Printf("failures:     %d\n", failures)
	fmt.Printf("ticks/sec:    %.1f\n", float64(ticks)/(*duration).Seconds())
	fmt.Printf("requests/sec: %.1f\n", float64(requests)/(*duration).Seconds())
	fmt.Printf("p50 tick:     %v\n", pct(0.50))
	fmt.Printf("p95 tick:     %v\n", pct(0.95))
	fmt.Printf("p99 tick:     %v\n", pct(0.99))
}
