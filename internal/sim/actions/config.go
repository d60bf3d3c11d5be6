package actions

type GatherConfig struct {
	Amount       int     `yaml:"amount"`
	Duration     float64 `yaml:"duration"`
	StopDistance float64 `yaml:"stop_distance"`
}

type BuildConfig struct {
	WoodCost     int     `yaml:"wood_cost"`
	Duration     float64 `yaml:"duration"`
	StopDistance float64 `yaml:"stop_distance"`
	// Margin keeps a build valid only while no existing station is within
	// buildTime*(1+Margin) seconds.
	Margin float64 `yaml:"station_vs_build_margin"`
}

type UseConfig struct {
	Restore      float64 `yaml:"restore"`
	Duration     float64 `yaml:"duration"`
	StopDistance float64 `yaml:"stop_distance"`
}

type IdleConfig struct {
	WanderRadius float64 `yaml:"wander_radius"`
	Pause        float64 `yaml:"pause"`
	Wait         float64 `yaml:"wait"`
}

type Config struct {
	Gather GatherConfig `yaml:"gather"`
	Build  BuildConfig  `yaml:"build"`
	Use    UseConfig    `yaml:"use"`
	Idle   IdleConfig   `yaml:"idle"`
}

func DefaultConfig() Config {
	return Config{
		Gather: GatherConfig{Amount: 1, Duration: 2, StopDistance: 0.75},
		Build:  BuildConfig{WoodCost: 2, Duration: 3, StopDistance: 0.9, Margin: 0.10},
		Use:    UseConfig{Restore: 35, Duration: 2, StopDistance: 0.25},
		Idle:   IdleConfig{WanderRadius: 6, Pause: 2, Wait: 1},
	}
}
