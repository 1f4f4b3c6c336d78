package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/san-kum/mbtree/internal/joint"
	"github.com/san-kum/mbtree/internal/spatial"
	"gopkg.in/yaml.v3"
)

const (
	DefaultGravity = -9.81
	DefaultLength  = 1.0
	DefaultMass    = 1.0
	DefaultTheta   = 0.5
)

var ErrInvalidModel = errors.New("config: invalid model")

// Vec is a 3-vector written as a YAML sequence.
type Vec [3]float64

func (v Vec) Vec3() spatial.Vec3 { return spatial.Vec3{X: v[0], Y: v[1], Z: v[2]} }

// Frame places one frame in another: a translation and body-fixed XYZ
// rotation angles in radians.
type Frame struct {
	Position Vec `yaml:"position"`
	Rotation Vec `yaml:"rotation"`
}

func (f Frame) Transform() spatial.Transform {
	return spatial.NewTransform(spatial.FromBodyXYZ(f.Rotation[0], f.Rotation[1], f.Rotation[2]), f.Position.Vec3())
}

type BodyConfig struct {
	Name     string    `yaml:"name"`
	Parent   string    `yaml:"parent,omitempty"` // empty for ground
	Joint    string    `yaml:"joint"`
	Mass     float64   `yaml:"mass"`
	COM      Vec       `yaml:"com"`
	Inertia  Vec       `yaml:"inertia"`  // principal moments about the mass center
	Inboard  Frame     `yaml:"inboard"`  // X_PJb
	Outboard Frame     `yaml:"outboard"` // X_BJ
	Q        []float64 `yaml:"q,omitempty"`
	U        []float64 `yaml:"u,omitempty"`
}

type SpringConfig struct {
	Body  string  `yaml:"body"`
	Index int     `yaml:"index"`
	K     float64 `yaml:"k"`
	Q0    float64 `yaml:"q0"`
}

type BodyForceConfig struct {
	Body    string `yaml:"body"`
	Station Vec    `yaml:"station"`
	Force   Vec    `yaml:"force"`
	Torque  Vec    `yaml:"torque"`
}

type Config struct {
	Name           string            `yaml:"name"`
	Gravity        Vec               `yaml:"gravity"`
	UseEulerAngles bool              `yaml:"euler_angles"`
	Damping        float64           `yaml:"damping"`
	Bodies         []BodyConfig      `yaml:"bodies"`
	Springs        []SpringConfig    `yaml:"springs,omitempty"`
	BodyForces     []BodyForceConfig `yaml:"body_forces,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Name:    "pendulum",
		Gravity: Vec{0, DefaultGravity, 0},
		Bodies: []BodyConfig{{
			Name:  "bob",
			Joint: "pin",
			Mass:  DefaultMass,
			COM:   Vec{0, -DefaultLength, 0},
			Q:     []float64{DefaultTheta},
		}},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks names, parent order, joint kinds and coordinate counts.
// Parents must be listed before their children.
func (c *Config) Validate() error {
	if len(c.Bodies) == 0 {
		return fmt.Errorf("%w: no bodies", ErrInvalidModel)
	}
	rep := joint.Quaternion
	if c.UseEulerAngles {
		rep = joint.EulerAngles
	}
	seen := map[string]bool{"ground": true}
	for i, b := range c.Bodies {
		if b.Name == "" {
			return fmt.Errorf("%w: body %d has no name", ErrInvalidModel, i)
		}
		if seen[b.Name] {
			return fmt.Errorf("%w: duplicate body %q", ErrInvalidModel, b.Name)
		}
		if b.Parent != "" && !seen[b.Parent] {
			return fmt.Errorf("%w: body %q: parent %q not defined before it", ErrInvalidModel, b.Name, b.Parent)
		}
		kind, err := joint.ParseKind(b.Joint)
		if err != nil {
			return fmt.Errorf("%w: body %q: %v", ErrInvalidModel, b.Name, err)
		}
		if b.Mass < 0 {
			return fmt.Errorf("%w: body %q: negative mass", ErrInvalidModel, b.Name)
		}
		m, _ := joint.New(kind)
		if len(b.Q) != 0 && len(b.Q) != m.NQ(rep) {
			return fmt.Errorf("%w: body %q: %s joint takes %d q, got %d", ErrInvalidModel, b.Name, kind, m.NQ(rep), len(b.Q))
		}
		if len(b.U) != 0 && len(b.U) != m.DOF() {
			return fmt.Errorf("%w: body %q: %s joint takes %d u, got %d", ErrInvalidModel, b.Name, kind, m.DOF(), len(b.U))
		}
		seen[b.Name] = true
	}
	for _, s := range c.Springs {
		if !seen[s.Body] || s.Body == "ground" {
			return fmt.Errorf("%w: spring on unknown body %q", ErrInvalidModel, s.Body)
		}
	}
	for _, f := range c.BodyForces {
		if !seen[f.Body] || f.Body == "ground" {
			return fmt.Errorf("%w: force on unknown body %q", ErrInvalidModel, f.Body)
		}
	}
	if c.Damping < 0 {
		return fmt.Errorf("%w: negative damping", ErrInvalidModel)
	}
	return nil
}
