package needs

import (
	"fmt"
	"math"

	"hearthsim.ai/internal/sim/model"
)

type Config struct {
	Max      float64                  `yaml:"max"`
	Urgent   float64                  `yaml:"urgent"`
	Critical float64                  `yaml:"critical"`
	Drain    [model.NeedCount]float64 `yaml:"-"`
}

func DefaultConfig() Config {
	return Config{
		Max:      100,
		Urgent:   60,
		Critical: 20,
		Drain:    [model.NeedCount]float64{1, 1, 1},
	}
}

func (c Config) Validate() error {
	if !(c.Max > 0) {
		return fmt.Errorf("needs: max must be > 0")
	}
	if c.Urgent < 0 || c.Critical < 0 || c.Urgent > c.Max || c.Critical > c.Max {
		return fmt.Errorf("needs: thresholds must lie in [0,%v]", c.Max)
	}
	for i, d := range c.Drain {
		if d < 0 || math.IsNaN(d) {
			return fmt.Errorf("needs: drain for %v must be >= 0", model.NeedType(i))
		}
	}
	return nil
}

// Meters holds one 0..Max meter per need. A full meter is a satisfied need.
type Meters struct {
	cfg    Config
	values [model.NeedCount]float64
}

func NewMeters(cfg Config) *Meters {
	m := &Meters{cfg: cfg}
	for i := range m.values {
		m.values[i] = cfg.Max
	}
	return m
}

func (m *Meters) Config() Config { return m.cfg }

func (m *Meters) Value(n model.NeedType) float64 {
	if int(n) >= model.NeedCount {
		return 0
	}
	return m.values[n]
}

func (m *Meters) Values() [model.NeedCount]float64 { return m.values }

func (m *Meters) Set(n model.NeedType, v float64) {
	if int(n) >= model.NeedCount {
		return
	}
	m.values[n] = m.clamp(v)
}

// Add changes a meter by amount, clamped to [0, Max].
func (m *Meters) Add(n model.NeedType, amount float64) {
	if int(n) >= model.NeedCount || math.IsNaN(amount) {
		return
	}
	m.values[n] = m.clamp(m.values[n] + amount)
}

func (m *Meters) Tick(dt float64) {
	if !(dt > 0) {
		return
	}
	for i := range m.values {
		m.values[i] = m.clamp(m.values[i] - m.cfg.Drain[i]*dt)
	}
}

func (m *Meters) clamp(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > m.cfg.Max {
		return m.cfg.Max
	}
	return v
}

// Urgency is 0 at or above the urgent threshold, 1 at or below the critical
// threshold and linear in between.
func (m *Meters) Urgency(n model.NeedType) float64 {
	return Urgency(m.Value(n), m.cfg.Urgent, m.cfg.Critical)
}

func Urgency(value, urgent, critical float64) float64 {
	if urgent <= critical {
		if value <= critical {
			return 1
		}
		return 0
	}
	if value >= urgent {
		return 0
	}
	if value <= critical {
		return 1
	}
	return (urgent - value) / (urgent - critical)
}

// MostUrgent returns the need with the highest urgency; ties go to need order.
func (m *Meters) MostUrgent() (model.NeedType, float64) {
	best := model.NeedSleep
	bestU := -1.0
	for _, n := range model.AllNeeds() {
		if u := m.Urgency(n); u > bestU {
			best, bestU = n, u
		}
	}
	return best, bestU
}
