package params

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Presets are named parameter sets kept outside any archive, typically a
// checked-in YAML file of per-method defaults:
//
//	correlation:
//	  corr_thresh: 0.4
//	  shift_len: 1.0
//	  replace_nan_distances_with: mean
//	geometry:
//	  d_thresh_km: 5.0

// LoadPresets reads a YAML preset file mapping method names to parameter
// sets. Integer values load as int, everything else follows YAML typing.
func LoadPresets(path string) (Records, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw map[string]map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("params: parse presets %s: %w", path, err)
	}
	out := make(Records, len(raw))
	for method, kv := range raw {
		p := make(Params, len(kv))
		for k, v := range kv {
			p[k] = v
		}
		out[method] = p
	}
	return out, nil
}

// SavePresets writes records as a YAML preset file.
func SavePresets(path string, r Records) error {
	raw := make(map[string]map[string]any, len(r))
	for method, p := range r {
		raw[method] = map[string]any(p)
	}
	data, err := yaml.Marshal(raw)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
