package config

var Presets = map[string]*Config{
	"default": DefaultConfig(),
	"dense": {
		ParticleCount: 1 << 20, ParticleLifetime: 8, RepelRadius: 3, RepelPower: 4,
		SpawnExtents: [3]float32{8, 4.5, 1}, StateDwell: 30, ThreadsPerGroup: 256, Device: "auto",
	},
	"sparse": {
		ParticleCount: 4096, ParticleLifetime: 3, RepelRadius: 1.5, RepelPower: 1,
		SpawnExtents: [3]float32{6, 3, 0.5}, StateDwell: 30, ThreadsPerGroup: 64, Device: "cpu",
	},
	"quick": {
		ParticleCount: 16384, ParticleLifetime: 4, RepelRadius: 2, RepelPower: 2,
		SpawnExtents: [3]float32{8, 4.5, 1}, StateDwell: 5, ThreadsPerGroup: 256, Device: "cpu",
	},
	"terminal": {
		ParticleCount: 6000, ParticleLifetime: 6, RepelRadius: 2.5, RepelPower: 3,
		SpawnExtents: [3]float32{6, 4, 0.5}, StateDwell: 10, ThreadsPerGroup: 128, Device: "cpu",
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	c := *cfg
	return &c
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	return names
}
