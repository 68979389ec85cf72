package config

import (
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/san-kum/vfparticles/internal/field"
	"gopkg.in/yaml.v3"
)

const (
	DefaultParticleCount    = 65536
	DefaultParticleLifetime = 5.0
	DefaultRepelRadius      = 2.0
	DefaultRepelPower       = 2.0
	DefaultStateDwell       = 30.0
	DefaultThreadsPerGroup  = 256
	DefaultDevice           = "auto"
)

var DefaultSpawnExtents = [3]float32{8, 4.5, 1}

type Config struct {
	ParticleCount    int        `yaml:"particle_count"`
	ParticleLifetime float32    `yaml:"particle_lifetime"`
	RepelRadius      float32    `yaml:"repel_radius"`
	RepelPower       float32    `yaml:"repel_power"`
	SpawnExtents     [3]float32 `yaml:"spawn_extents"`
	StateDwell       float64    `yaml:"state_dwell"`
	ThreadsPerGroup  int        `yaml:"threads_per_group"`
	Seed             int64      `yaml:"seed"`
	Device           string     `yaml:"device"`
	MaxBufferBytes   int64      `yaml:"max_buffer_bytes"`
}

func DefaultConfig() *Config {
	return &Config{
		ParticleCount:    DefaultParticleCount,
		ParticleLifetime: DefaultParticleLifetime,
		RepelRadius:      DefaultRepelRadius,
		RepelPower:       DefaultRepelPower,
		SpawnExtents:     DefaultSpawnExtents,
		StateDwell:       DefaultStateDwell,
		ThreadsPerGroup:  DefaultThreadsPerGroup,
		Device:           DefaultDevice,
	}
}

func Load(path string) (*Config, error) {
	return LoadOver(path, DefaultConfig())
}

// LoadOver reads path on top of base: keys present in the file replace the
// values of base, everything else is kept. base is modified and returned.
func LoadOver(path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, base); err != nil {
		return nil, err
	}
	return base, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate rejects values no device work can start from.
func (c *Config) Validate() error {
	switch {
	case c.ParticleCount <= 0:
		return &field.ConfigError{Field: "particle_count", Reason: "must be positive"}
	case c.ParticleLifetime <= 0:
		return &field.ConfigError{Field: "particle_lifetime", Reason: "must be positive"}
	case c.RepelRadius < 0:
		return &field.ConfigError{Field: "repel_radius", Reason: "must not be negative"}
	case c.RepelPower < 0:
		return &field.ConfigError{Field: "repel_power", Reason: "must not be negative"}
	case c.StateDwell <= 0:
		return &field.ConfigError{Field: "state_dwell", Reason: "must be positive"}
	case c.ThreadsPerGroup <= 0:
		return &field.ConfigError{Field: "threads_per_group", Reason: "must be positive"}
	case c.MaxBufferBytes < 0:
		return &field.ConfigError{Field: "max_buffer_bytes", Reason: "must not be negative"}
	}
	for _, e := range c.SpawnExtents {
		if e < 0 {
			return &field.ConfigError{Field: "spawn_extents", Reason: "must not be negative"}
		}
	}
	return nil
}

func (c *Config) Extents() mgl32.Vec3 {
	return mgl32.Vec3(c.SpawnExtents)
}
