package main

import (
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config holds every setting of a bonesnap run. It is read from a YAML file
// and then overridden by flags.
type Config struct {
	Dir     string `yaml:"dir"`     // skeleton descriptors
	Regions string `yaml:"regions"` // optional PNG/WebP images named after regions
	Output  string `yaml:"output"`

	Format   string `yaml:"format"`   // webp or png
	Animated bool   `yaml:"animated"` // one animated WebP per clip instead of frame files
	Poses    bool   `yaml:"poses"`    // also dump each clip's poses as YAML

	FPS         int     `yaml:"fps"`
	Frames      int     `yaml:"frames"` // 0 renders one loop of the animation
	Size        int     `yaml:"size"`
	Supersample int     `yaml:"supersample"`
	Padding     float64 `yaml:"padding"`
	Workers     int     `yaml:"workers"`

	Layers LayerConfig `yaml:"layers"`
	Jobs   []Job       `yaml:"jobs"` // empty renders every animation of every armature
}

// LayerConfig toggles snapshot layers. Unset layers are drawn.
type LayerConfig struct {
	Bones         *bool `yaml:"bones"`
	BoundingBoxes *bool `yaml:"bounding_boxes"`
	Meshes        *bool `yaml:"meshes"`
	Images        *bool `yaml:"images"`
}

// Flags holds flag values that override the config file.
type Flags struct {
	Dir       string
	Regions   string
	Output    string
	Format    string
	FPS       int
	Frames    int
	Size      int
	Workers   int
	Animated  bool
	Poses     bool
	Skeleton  string
	Armature  string
	Animation string
}

// LoadConfig reads a YAML config file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Resolve applies flag overrides and fills defaults.
func (c *Config) Resolve(f Flags) {
	if f.Dir != "" {
		c.Dir = f.Dir
	}
	if f.Regions != "" {
		c.Regions = f.Regions
	}
	if f.Output != "" {
		c.Output = f.Output
	}
	if f.Format != "" {
		c.Format = f.Format
	}
	if f.FPS > 0 {
		c.FPS = f.FPS
	}
	if f.Frames > 0 {
		c.Frames = f.Frames
	}
	if f.Size > 0 {
		c.Size = f.Size
	}
	if f.Workers > 0 {
		c.Workers = f.Workers
	}
	if f.Animated {
		c.Animated = true
	}
	if f.Poses {
		c.Poses = true
	}
	if f.Skeleton != "" || f.Armature != "" || f.Animation != "" {
		c.Jobs = []Job{{Skeleton: f.Skeleton, Armature: f.Armature, Animation: f.Animation}}
	}

	if c.Dir == "" {
		c.Dir = "."
	}
	if c.Output == "" {
		c.Output = "snapshots"
	}
	if c.FPS <= 0 {
		c.FPS = 24
	}
	if c.Size <= 0 {
		c.Size = 256
	}
	if c.Supersample <= 0 {
		c.Supersample = 2
	}
	if c.Padding <= 0 {
		c.Padding = 8
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
}

func on(b *bool) bool { return b == nil || *b }
