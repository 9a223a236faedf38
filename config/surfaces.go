package config

import (
	"fmt"
	"os"

	"github.com/GrainArc/vtscore/models"
	"gopkg.in/yaml.v3"
)

// SurfaceOverrides is an operator-maintained yaml file that tweaks a loaded
// map configuration's surface stack without touching the map-config wire
// JSON itself: disabling a surface entirely, or forcing a bound layer's
// alpha/transparent flags for a local deployment.
//
// Grounded on hellsoul86-voxelcraft.ai/internal/sim/tuning's yaml.v3
// load-a-struct-from-a-file pattern.
type SurfaceOverrides struct {
	Disabled     []string                  `yaml:"disabled"`
	BoundLayers  map[string]BoundLayerTune `yaml:"bound_layers"`
}

type BoundLayerTune struct {
	Alpha       *float64 `yaml:"alpha"`
	Transparent *bool    `yaml:"transparent"`
}

func LoadSurfaceOverrides(path string) (SurfaceOverrides, error) {
	var o SurfaceOverrides
	if path == "" {
		return o, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return o, fmt.Errorf("config: read surface overrides: %w", err)
	}
	if err := yaml.Unmarshal(raw, &o); err != nil {
		return o, fmt.Errorf("config: decode surface overrides: %w", err)
	}
	return o, nil
}

// Apply returns a copy of stack with o's disables and bound-layer tweaks
// folded in. The input stack is left untouched.
func (o SurfaceOverrides) Apply(stack models.SurfaceStack) models.SurfaceStack {
	if len(o.Disabled) == 0 && len(o.BoundLayers) == 0 {
		return stack
	}
	disabled := make(map[string]struct{}, len(o.Disabled))
	for _, id := range o.Disabled {
		disabled[id] = struct{}{}
	}

	out := models.SurfaceStack{TilesetMapping: stack.TilesetMapping}
	for _, s := range stack.Surfaces {
		if _, skip := disabled[s.Id]; skip {
			continue
		}
		s.BoundLayers = append([]models.BoundLayer(nil), s.BoundLayers...)
		for i := range s.BoundLayers {
			tune, ok := o.BoundLayers[s.BoundLayers[i].Id]
			if !ok {
				continue
			}
			if tune.Alpha != nil {
				s.BoundLayers[i].Alpha = tune.Alpha
			}
			if tune.Transparent != nil {
				s.BoundLayers[i].Transparent = *tune.Transparent
			}
		}
		out.Surfaces = append(out.Surfaces, s)
	}
	return out
}
