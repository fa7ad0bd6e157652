// Package config loads the host/link/actor-mix description a simulation
// run is configured from. The kernel itself stays opaque to this content
// (spec.md's Non-goal: hosts and links carry no kernel-understood
// semantics beyond what a resource model interprets) — this package exists
// purely so the CLI can turn a YAML file plus environment overrides into a
// concrete set of hosts and an actor mix to spawn.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// HostConfig describes one simulated host.
type HostConfig struct {
	Name string `mapstructure:"name"`
	Up   bool   `mapstructure:"up"`
}

// LinkConfig describes the bandwidth/latency figures a resource model
// applies between two named hosts. The flat resourcemodel.Model currently
// ignores the Src/Dst pairing (every comm uses its default rates — see
// DESIGN.md), but the shape is carried through so a future non-flat model
// has somewhere to read per-link rates from.
type LinkConfig struct {
	Src            string  `mapstructure:"src"`
	Dst            string  `mapstructure:"dst"`
	BandwidthBps   float64 `mapstructure:"bandwidth_bps"`
	LatencySeconds float64 `mapstructure:"latency_seconds"`
}

// ActorConfig describes one named actor to spawn on a host. Body is a
// lookup key into a registry of known demo scenario bodies
// (internal/demo), not an embedded script — the kernel has no scripting
// Non-goal to violate (spec.md Non-goals: "no embedded scripting
// language").
type ActorConfig struct {
	Name string `mapstructure:"name"`
	Host string `mapstructure:"host"`
	Body string `mapstructure:"body"`
}

// ScenarioConfig is the top-level shape a scenario YAML file unmarshals
// into.
type ScenarioConfig struct {
	Name   string        `mapstructure:"name"`
	Hosts  []HostConfig  `mapstructure:"hosts"`
	Links  []LinkConfig  `mapstructure:"links"`
	Actors []ActorConfig `mapstructure:"actors"`
}

// Load reads a scenario file at path (if non-empty) with environment
// variable overrides of the form SIMKERNEL_<FIELD>, following the same
// viper wiring shape the rest of the pack uses for service configuration.
func Load(path string) (*ScenarioConfig, error) {
	v := viper.New()
	v.SetEnvPrefix("simkernel")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %q: %w", path, err)
		}
	}

	var cfg ScenarioConfig

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &cfg, nil
}
