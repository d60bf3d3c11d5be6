package world

import (
	"fmt"
	"log"

	"hearthsim.ai/internal/persistence/snapshot"
	"hearthsim.ai/internal/sim/agent"
	"hearthsim.ai/internal/sim/encoding"
	"hearthsim.ai/internal/sim/model"
	"hearthsim.ai/internal/sim/nav"
	"hearthsim.ai/internal/sim/registry"
)

// ExportSnapshot captures the world after nowTick has executed.
func (w *World) ExportSnapshot(nowTick uint64) snapshot.SnapshotV1 {
	g := w.grid
	snap := snapshot.SnapshotV1{
		Header:     snapshot.Header{Version: snapshot.Version, RunID: w.cfg.ID, Tick: nowTick},
		Scenario:   w.cfg.Scenario,
		Seed:       w.cfg.Seed,
		TickRateHz: w.cfg.TickRateHz,
		Grid: snapshot.GridV1{
			Origin:        g.Origin().Array(),
			CellSize:      g.CellSize(),
			Cols:          g.Cols(),
			Rows:          g.Rows(),
			AllowDiagonal: g.AllowDiagonal(),
		},
		StationCounter: w.stations.Counter(),
		SpotCounter:    w.spots.Counter(),
	}
	mask := make([]bool, g.Cols()*g.Rows())
	for row := 0; row < g.Rows(); row++ {
		for col := 0; col < g.Cols(); col++ {
			mask[row*g.Cols()+col] = !g.Walkable(col, row)
		}
	}
	snap.Grid.Cells = encoding.EncodeMask(mask)
	for _, st := range w.stations.All() {
		snap.Stations = append(snap.Stations, snapshot.StationV1{
			ID: st.ID, Kind: st.Kind.String(), Pos: st.Pos.Array(), BuiltBy: st.BuiltBy, SpotID: st.SpotID,
		})
	}
	for _, sp := range w.spots.All() {
		snap.Spots = append(snap.Spots, snapshot.SpotV1{
			ID: sp.ID, Kind: sp.Kind.String(), Pos: sp.Pos.Array(), StationID: sp.StationID,
		})
	}
	for _, a := range w.agents {
		m := a.Meters().Values()
		snap.Agents = append(snap.Agents, snapshot.AgentV1{
			ID:      a.ID(),
			Name:    a.Name(),
			Primary: a.Primary().String(),
			Pos:     a.Position().Array(),
			Carried: a.Carried(),
			Meters:  m[:],
			Seed:    a.Seed(),
		})
	}
	return snap
}

// NewFromSnapshot rebuilds a world from snap. The run continues at the tick
// after the snapshot; agents start idle and re-plan.
func NewFromSnapshot(cfg WorldConfig, snap snapshot.SnapshotV1, navLimits nav.Limits, logger *log.Logger) (*World, error) {
	sg := snap.Grid
	grid, err := nav.NewGrid(nav.Config{
		Origin:        model.FromArray(sg.Origin),
		CellSize:      sg.CellSize,
		Cols:          sg.Cols,
		Rows:          sg.Rows,
		AllowDiagonal: sg.AllowDiagonal,
		Limits:        navLimits,
	})
	if err != nil {
		return nil, fmt.Errorf("snapshot grid: %w", err)
	}
	mask, err := encoding.DecodeMask(sg.Cells, sg.Cols*sg.Rows)
	if err != nil {
		return nil, fmt.Errorf("snapshot grid: %w", err)
	}
	for i, b := range mask {
		if b {
			grid.SetBlocked(i%sg.Cols, i/sg.Cols, true)
		}
	}

	if cfg.Scenario == "" {
		cfg.Scenario = snap.Scenario
	}
	cfg.Seed = snap.Seed
	if snap.TickRateHz > 0 {
		cfg.TickRateHz = snap.TickRateHz
	}
	w, err := New(cfg, grid, logger)
	if err != nil {
		return nil, err
	}

	stations := make([]registry.Station, 0, len(snap.Stations))
	for _, s := range snap.Stations {
		kind, err := model.ParseStation(s.Kind)
		if err != nil {
			return nil, fmt.Errorf("snapshot station %s: %w", s.ID, err)
		}
		stations = append(stations, registry.Station{ID: s.ID, Kind: kind, Pos: model.FromArray(s.Pos), BuiltBy: s.BuiltBy, SpotID: s.SpotID})
	}
	w.stations.Restore(stations, snap.StationCounter)

	spots := make([]registry.Spot, 0, len(snap.Spots))
	for _, s := range snap.Spots {
		kind, err := model.ParseStation(s.Kind)
		if err != nil {
			return nil, fmt.Errorf("snapshot spot %s: %w", s.ID, err)
		}
		spots = append(spots, registry.Spot{ID: s.ID, Kind: kind, Pos: model.FromArray(s.Pos), StationID: s.StationID})
	}
	w.spots.Restore(spots, snap.SpotCounter)

	for _, sa := range snap.Agents {
		primary, err := model.ParseNeed(sa.Primary)
		if err != nil {
			return nil, fmt.Errorf("snapshot agent %s: %w", sa.ID, err)
		}
		var meters [model.NeedCount]float64
		copy(meters[:], sa.Meters)
		if _, err := w.AddAgent(agent.Params{
			ID:      sa.ID,
			Name:    sa.Name,
			Pos:     model.FromArray(sa.Pos),
			Primary: primary,
			Carried: sa.Carried,
			Meters:  &meters,
			Seed:    sa.Seed,
		}); err != nil {
			return nil, err
		}
	}
	w.tick.Store(snap.Header.Tick + 1)
	return w, nil
}
