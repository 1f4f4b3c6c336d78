package config

import (
	"fmt"
	"math"
	"sort"
)

var Presets = map[string]map[string]*Config{
	"pendulum": {
		"small":    pendulum(0.2, 0),
		"large":    pendulum(2.5, 0),
		"spinning": pendulum(0.1, 8),
	},
	"double_pendulum": {
		"gentle": doublePendulum(0.3, 0.3),
		"chaos":  doublePendulum(3.0, 3.0),
	},
	"chain": {
		"five":   chain(5, 0.4),
		"twenty": chain(20, 0.1),
	},
	"branching": {
		"binary": binary(3),
	},
	"free_body": {
		"tumbling": {
			Name: "free_body",
			Bodies: []BodyConfig{{
				Name: "box", Joint: "free", Mass: 1,
				Inertia: Vec{1, 2, 3},
				U:       []float64{0.01, 5, 0.01, 0, 0, 0},
			}},
		},
	},
	"gyro": {
		"spinning": {
			Name:    "gyro",
			Gravity: Vec{0, 0, DefaultGravity},
			Bodies: []BodyConfig{{
				Name: "top", Joint: "ball", Mass: 1,
				COM:     Vec{0, 0, 0.5},
				Inertia: Vec{0.05, 0.05, 0.1},
				Q:       []float64{math.Cos(0.1), math.Sin(0.1), 0, 0},
				U:       []float64{0, 0, 40},
			}},
		},
	},
}

func pendulum(theta, omega float64) *Config {
	cfg := DefaultConfig()
	cfg.Bodies[0].Q = []float64{theta}
	cfg.Bodies[0].U = []float64{omega}
	return cfg
}

func doublePendulum(theta1, theta2 float64) *Config {
	return &Config{
		Name:    "double_pendulum",
		Gravity: Vec{0, DefaultGravity, 0},
		Bodies: []BodyConfig{
			{Name: "upper", Joint: "pin", Mass: 1, COM: Vec{0, -1, 0}, Q: []float64{theta1}},
			{
				Name: "lower", Parent: "upper", Joint: "pin", Mass: 1, COM: Vec{0, -1, 0},
				Inboard: Frame{Position: Vec{0, -1, 0}},
				Q:       []float64{theta2},
			},
		},
	}
}

// chain is n uniform pin-jointed rods hanging from ground.
func chain(n int, theta float64) *Config {
	cfg := &Config{Name: "chain", Gravity: Vec{0, DefaultGravity, 0}, Damping: 0.01}
	l := 1.0 / float64(n)
	for i := 0; i < n; i++ {
		b := BodyConfig{
			Name:    fmt.Sprintf("link%d", i),
			Joint:   "pin",
			Mass:    1.0 / float64(n),
			COM:     Vec{0, -l / 2, 0},
			Inertia: Vec{0, 0, l * l / (12 * float64(n))},
			Q:       []float64{theta},
		}
		if i > 0 {
			b.Parent = fmt.Sprintf("link%d", i-1)
			b.Inboard = Frame{Position: Vec{0, -l, 0}}
			b.Q = []float64{0}
		}
		cfg.Bodies = append(cfg.Bodies, b)
	}
	return cfg
}

// binary is a full binary tree of the given depth. Ball joints at even
// depths, pins at odd ones.
func binary(depth int) *Config {
	cfg := &Config{Name: "branching", Gravity: Vec{0, DefaultGravity, 0}}
	var add func(parent string, d int, side float64)
	add = func(parent string, d int, side float64) {
		if d == depth {
			return
		}
		name := "b"
		if side < 0 {
			name = parent + "l"
		} else if side > 0 {
			name = parent + "r"
		}
		b := BodyConfig{
			Name: name, Parent: parent, Joint: "pin", Mass: 1,
			COM:     Vec{0, -0.5, 0},
			Inertia: Vec{0.02, 0.01, 0.02},
		}
		if d%2 == 0 {
			b.Joint = "ball"
		}
		if parent != "" {
			b.Inboard = Frame{Position: Vec{side * 0.3, -0.5, 0}, Rotation: Vec{0, 0, side * 0.4}}
		}
		cfg.Bodies = append(cfg.Bodies, b)
		add(name, d+1, -1)
		add(name, d+1, 1)
	}
	add("", 0, 0)
	return cfg
}

// GetPreset returns nil when the model or preset is unknown.
func GetPreset(model, preset string) *Config {
	if presets, ok := Presets[model]; ok {
		if cfg, ok := presets[preset]; ok {
			return cfg
		}
	}
	return nil
}

func ListPresets(model string) []string {
	presets, ok := Presets[model]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func ListModels() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
