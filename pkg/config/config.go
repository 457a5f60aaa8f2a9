// Package config holds the configuration surface of the batching layer:
// graph placeholder names, fixed auxiliary inputs, the action space, and
// runtime/observability settings. Values load from a yaml file with
// TICKBATCH_* environment overrides.
package config

import (
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	layererr "github.com/decisionlayer/tickbatch/pkg/errors"
)

// Aux input kinds.
const (
	KindInteger  = "integer"
	KindFloating = "floating"
)

// Action space kinds.
const (
	ActionContinuous = "continuous"
	ActionDiscrete   = "discrete"
)

type Config struct {
	Log       LogConfig       `koanf:"log"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Monitor   MonitorConfig   `koanf:"monitor"`
	Runtime   RuntimeConfig   `koanf:"runtime"`
	Brain     BrainConfig     `koanf:"brain"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // text, json
}

type TelemetryConfig struct {
	Exporter string `koanf:"exporter"` // none, stdout
}

type MonitorConfig struct {
	Enabled        bool   `koanf:"enabled"`
	Addr           string `koanf:"addr"`
	PushIntervalMs int    `koanf:"push_interval_ms"`
}

// RuntimeConfig configures the demo daemon, not the layer itself.
type RuntimeConfig struct {
	ModelPath      string `koanf:"model_path"` // empty = built-in demo graph
	TickIntervalMs int    `koanf:"tick_interval_ms"`
	Agents         int    `koanf:"agents"`
	Seed           int64  `koanf:"seed"`
}

// NodeNames are the graph placeholder names the layer looks up. A model
// that lacks an optional name simply loses that capability.
type NodeNames struct {
	BatchSize         string `koanf:"batch_size"`
	VectorObservation string `koanf:"vector_observation"`
	RecurrentIn       string `koanf:"recurrent_in"`
	RecurrentOut      string `koanf:"recurrent_out"`
	MemorySize        string `koanf:"memory_size"`
	Action            string `koanf:"action"`
	PreviousAction    string `koanf:"previous_action"`
	ActionMask        string `koanf:"action_mask"`
	ValueEstimate     string `koanf:"value_estimate"`
}

// VisualSensor configures one camera input.
type VisualSensor struct {
	Name      string `koanf:"name"`
	Grayscale bool   `koanf:"grayscale"`
}

// AuxInput is a fixed auxiliary graph input: one value sampled uniformly
// in [Min,Max] per tick and broadcast across the batch.
type AuxInput struct {
	Name string  `koanf:"name"`
	Kind string  `koanf:"kind"` // integer, floating
	Min  float64 `koanf:"min"`
	Max  float64 `koanf:"max"`
}

// ActionSpace is a static property of the configured model; exactly one
// of continuous/discrete applies.
type ActionSpace struct {
	Kind     string `koanf:"kind"`     // continuous, discrete
	Size     int    `koanf:"size"`     // continuous action width
	Branches []int  `koanf:"branches"` // discrete branch sizes
}

// Continuous reports whether the action space is continuous.
func (a ActionSpace) Continuous() bool { return a.Kind == ActionContinuous }

// Width returns the per-agent action vector width: Size for continuous,
// one value per branch for discrete.
func (a ActionSpace) Width() int {
	if a.Continuous() {
		return a.Size
	}
	return len(a.Branches)
}

// TotalDiscrete returns the summed branch sizes, the action-mask width.
func (a ActionSpace) TotalDiscrete() int {
	n := 0
	for _, b := range a.Branches {
		n += b
	}
	return n
}

type BrainConfig struct {
	Nodes                NodeNames      `koanf:"nodes"`
	Visual               []VisualSensor `koanf:"visual"`
	Aux                  []AuxInput     `koanf:"aux_inputs"`
	Action               ActionSpace    `koanf:"action"`
	ExternallyControlled bool           `koanf:"externally_controlled"`
}

// Load reads configuration from an optional yaml file, then applies
// TICKBATCH_* environment overrides (TICKBATCH_LOG_LEVEL -> log.level).
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	setDefaults(k)

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, layererr.Wrap(layererr.CodeInvalidConfig, "load config file", err)
		}
	}

	if err := k.Load(env.Provider("TICKBATCH_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "TICKBATCH_")), "_", ".", -1)
	}), nil); err != nil {
		return nil, layererr.Wrap(layererr.CodeInvalidConfig, "load env overrides", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, layererr.Wrap(layererr.CodeInvalidConfig, "unmarshal config", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(k *koanf.Koanf) {
	k.Set("log.level", "info")
	k.Set("log.format", "text")
	k.Set("telemetry.exporter", "none")
	k.Set("monitor.enabled", false)
	k.Set("monitor.addr", ":8080")
	k.Set("monitor.push_interval_ms", 500)
	k.Set("runtime.tick_interval_ms", 20)
	k.Set("runtime.agents", 3)

	k.Set("brain.nodes.batch_size", "batch_size")
	k.Set("brain.nodes.vector_observation", "vector_observation")
	k.Set("brain.nodes.recurrent_in", "recurrent_in")
	k.Set("brain.nodes.recurrent_out", "recurrent_out")
	k.Set("brain.nodes.memory_size", "memory_size")
	k.Set("brain.nodes.action", "action")
	k.Set("brain.nodes.previous_action", "prev_action")
	k.Set("brain.nodes.action_mask", "action_masks")
	k.Set("brain.nodes.value_estimate", "value_estimate")
	k.Set("brain.action.kind", ActionContinuous)
	k.Set("brain.action.size", 2)
}

// Validate rejects configurations the layer cannot run with.
func (c *Config) Validate() error {
	if err := c.Brain.Validate(); err != nil {
		return err
	}
	switch c.Telemetry.Exporter {
	case "", "none", "stdout":
	default:
		return layererr.Newf(layererr.CodeInvalidConfig,
			"unknown telemetry exporter %q", c.Telemetry.Exporter)
	}
	return nil
}

// Validate checks the brain block.
func (b *BrainConfig) Validate() error {
	if b.Nodes.Action == "" {
		return layererr.New(layererr.CodeInvalidConfig, "action node name must be set")
	}
	switch b.Action.Kind {
	case ActionContinuous:
		if b.Action.Size <= 0 {
			return layererr.New(layererr.CodeInvalidConfig,
				"continuous action space needs size > 0")
		}
	case ActionDiscrete:
		if len(b.Action.Branches) == 0 {
			return layererr.New(layererr.CodeInvalidConfig,
				"discrete action space needs at least one branch")
		}
		for i, br := range b.Action.Branches {
			if br <= 0 {
				return layererr.Newf(layererr.CodeInvalidConfig,
					"discrete branch %d has size %d", i, br)
			}
		}
	default:
		return layererr.Newf(layererr.CodeInvalidConfig,
			"unknown action space kind %q", b.Action.Kind)
	}
	for _, aux := range b.Aux {
		if aux.Name == "" {
			return layererr.New(layererr.CodeInvalidConfig, "aux input without a name")
		}
		if aux.Kind != KindInteger && aux.Kind != KindFloating {
			return layererr.Newf(layererr.CodeInvalidConfig,
				"aux input %q has unknown kind %q", aux.Name, aux.Kind)
		}
		if aux.Min > aux.Max {
			return layererr.Newf(layererr.CodeInvalidConfig,
				"aux input %q has min %g > max %g", aux.Name, aux.Min, aux.Max)
		}
	}
	for i, vs := range b.Visual {
		if vs.Name == "" {
			return layererr.Newf(layererr.CodeInvalidConfig, "visual sensor %d without a name", i)
		}
	}
	return nil
}
