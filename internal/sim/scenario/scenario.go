package scenario

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"hearthsim.ai/internal/sim/agent"
	"hearthsim.ai/internal/sim/model"
	"hearthsim.ai/internal/sim/nav"
	"hearthsim.ai/internal/sim/tuning"
	"hearthsim.ai/internal/sim/world"
)

//go:embed scenario.schema.json
var schemaJSON string

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiled() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = jsonschema.CompileString("scenario.schema.json", schemaJSON)
	})
	return schema, schemaErr
}

type Scenario struct {
	Name       string   `json:"name"`
	Seed       int64    `json:"seed"`
	Grid       Grid     `json:"grid"`
	Stations   []Placed `json:"stations"`
	BuildSpots []Placed `json:"build_spots"`
	Agents     []Agent  `json:"agents"`
}

type Grid struct {
	Origin        [2]float64 `json:"origin"`
	CellSize      float64    `json:"cell_size"`
	AllowDiagonal bool       `json:"allow_diagonal"`
	// Rows are listed top to bottom: '.' is walkable, '#' is blocked.
	Rows []string `json:"rows"`
}

type Placed struct {
	Kind string     `json:"kind"`
	Pos  [2]float64 `json:"pos"`
}

type Agent struct {
	Name    string             `json:"name"`
	Pos     [2]float64         `json:"pos"`
	Primary string             `json:"primary"`
	Carried int                `json:"carried"`
	Meters  map[string]float64 `json:"meters"`
}

func Load(path string) (Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, err
	}
	sc, err := Parse(raw)
	if err != nil {
		return sc, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

// Parse validates raw against the scenario schema before decoding it.
func Parse(raw []byte) (Scenario, error) {
	var sc Scenario
	s, err := compiled()
	if err != nil {
		return sc, fmt.Errorf("scenario schema: %w", err)
	}
	var doc any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return sc, fmt.Errorf("decode: %w", err)
	}
	if err := s.Validate(doc); err != nil {
		return sc, fmt.Errorf("validate: %w", err)
	}
	if err := json.Unmarshal(raw, &sc); err != nil {
		return sc, fmt.Errorf("decode: %w", err)
	}
	if sc.Grid.CellSize == 0 {
		sc.Grid.CellSize = 1
	}
	return sc, nil
}

// Build creates the world the scenario describes. Agent ids are A1..An in
// listing order.
func Build(sc Scenario, tu tuning.Tuning, runID string, verbose bool, logger *log.Logger) (*world.World, error) {
	grid, err := nav.FromRows(nav.Config{
		Origin:        model.FromArray(sc.Grid.Origin),
		CellSize:      sc.Grid.CellSize,
		AllowDiagonal: sc.Grid.AllowDiagonal,
		Limits:        tu.Nav,
	}, sc.Grid.Rows)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", sc.Name, err)
	}
	w, err := world.New(WorldConfig(tu, sc.Name, sc.Seed, runID, verbose), grid, logger)
	if err != nil {
		return nil, err
	}
	for i, p := range sc.Stations {
		kind, err := model.ParseStation(p.Kind)
		if err != nil {
			return nil, fmt.Errorf("stations[%d]: %w", i, err)
		}
		if _, err := w.AddStation(kind, model.FromArray(p.Pos)); err != nil {
			return nil, fmt.Errorf("stations[%d]: %w", i, err)
		}
	}
	for i, p := range sc.BuildSpots {
		kind, err := model.ParseStation(p.Kind)
		if err != nil {
			return nil, fmt.Errorf("build_spots[%d]: %w", i, err)
		}
		if _, err := w.AddSpot(kind, model.FromArray(p.Pos)); err != nil {
			return nil, fmt.Errorf("build_spots[%d]: %w", i, err)
		}
	}
	nc := tu.NeedsConfig()
	for i, a := range sc.Agents {
		p := agent.Params{
			ID:      fmt.Sprintf("A%d", i+1),
			Name:    a.Name,
			Pos:     model.FromArray(a.Pos),
			Carried: a.Carried,
			// Per-agent wander streams derive from the scenario seed.
			Seed: sc.Seed*1_000_003 + int64(i+1),
		}
		if a.Primary != "" {
			if p.Primary, err = model.ParseNeed(a.Primary); err != nil {
				return nil, fmt.Errorf("agents[%d]: %w", i, err)
			}
		}
		if len(a.Meters) > 0 {
			var m [model.NeedCount]float64
			for n := range m {
				m[n] = nc.Max
			}
			for name, v := range a.Meters {
				n, err := model.ParseNeed(strings.TrimSpace(name))
				if err != nil {
					return nil, fmt.Errorf("agents[%d].meters: %w", i, err)
				}
				m[n] = v
			}
			p.Meters = &m
		}
		if _, err := w.AddAgent(p); err != nil {
			return nil, fmt.Errorf("agents[%d]: %w", i, err)
		}
	}
	return w, nil
}

// WorldConfig maps tuning onto a world configuration. Resumes from a
// snapshot use it too, so both paths agree.
func WorldConfig(tu tuning.Tuning, name string, seed int64, runID string, verbose bool) world.WorldConfig {
	return world.WorldConfig{
		ID:                 runID,
		Scenario:           name,
		Seed:               seed,
		TickRateHz:         tu.TickRateHz,
		SnapshotEveryTicks: tu.SnapshotEveryTicks,
		ObserverEveryTicks: tu.ObserverEveryTicks,
		Needs:              tu.NeedsConfig(),
		Agent:              tu.Agent,
		Planner:            tu.Planner,
		Verbose:            verbose,
	}
}
