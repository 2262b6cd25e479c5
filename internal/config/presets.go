package config

import "sort"

var Presets = map[string]*Config{
	"quick": {
		Iters: Int(30),
		Rate:  Float(0.02),
	},
	"fine": {
		Iters:       Int(500),
		WarmupIters: Int(100),
		Rate:        Float(0.005),
		FinalRate:   Float(0.00005),
	},
	"plane": {
		Retain:             Int(2),
		SqueezeRampupIters: Int(150),
		SqueezeFinalIters:  Int(150),
	},
	"line": {
		Retain:            Int(1),
		SqueezeFinalForce: Float(400),
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return (&Config{}).Merge(cfg)
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
