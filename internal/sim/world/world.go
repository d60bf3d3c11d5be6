package world

import (
	"fmt"
	"log"
	"sort"
	"sync/atomic"

	"hearthsim.ai/internal/persistence/snapshot"
	"hearthsim.ai/internal/sim/agent"
	"hearthsim.ai/internal/sim/goap"
	"hearthsim.ai/internal/sim/model"
	"hearthsim.ai/internal/sim/nav"
	"hearthsim.ai/internal/sim/needs"
	"hearthsim.ai/internal/sim/registry"
)

type WorldConfig struct {
	// ID is the run id. Every run of a scenario (or resume from a snapshot)
	// gets a new one.
	ID       string
	Scenario string
	Seed     int64

	TickRateHz         int
	SnapshotEveryTicks int
	ObserverEveryTicks int

	Needs   needs.Config
	Agent   agent.Config
	Planner goap.Limits

	// Verbose routes agent decision traces to the world logger.
	Verbose bool
}

func (c *WorldConfig) applyDefaults() {
	if c.TickRateHz <= 0 {
		c.TickRateHz = 10
	}
	if c.ObserverEveryTicks <= 0 {
		c.ObserverEveryTicks = 1
	}
	if c.SnapshotEveryTicks < 0 {
		c.SnapshotEveryTicks = 0
	}
}

// World is a single-threaded authoritative simulation.
// All state must be accessed only from the world loop goroutine.
type World struct {
	cfg    WorldConfig
	logger *log.Logger

	tick atomic.Uint64

	grid     *nav.Grid
	stations *registry.Stations
	spots    *registry.Spots
	planner  *goap.Planner

	agents []*agent.Agent
	byID   map[string]*agent.Agent

	// Optional sinks (may be nil). Implemented in internal/persistence/*.
	tickLogger TickLogger
	cmdLogger  CommandLogger
	index      Index

	// Optional snapshot sink (may be nil). Snapshot writing should be off-thread.
	snapshotSink chan<- snapshot.SnapshotV1

	stop          chan struct{}
	cmds          chan CommandRequest
	observerJoin  chan ObserverJoinRequest
	observerLeave chan string
	observers     map[string]*observerClient
}

type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

type CommandLogger interface {
	WriteCommand(entry CommandEntry) error
}

// Index is the queryable read model fed once per tick.
// Index is the queryable secondary store. The JSONL logs stay the source of
// truth.
type Index interface {
	WriteTick(entry TickLogEntry) error
	WriteCommand(entry CommandEntry) error
}

type TickLogEntry struct {
	Tick     uint64        `json:"tick"`
	RunID    string        `json:"run"`
	Commands []Command     `json:"commands,omitempty"`
	Events   []agent.Event `json:"events,omitempty"`
	Digest   string        `json:"digest"`
}

type CommandEntry struct {
	Tick   uint64  `json:"tick"`
	RunID  string  `json:"run"`
	Cmd    Command `json:"cmd"`
	OK     bool    `json:"ok"`
	Code   string  `json:"code,omitempty"`
	Reason string  `json:"reason,omitempty"`
}

func New(cfg WorldConfig, grid *nav.Grid, logger *log.Logger) (*World, error) {
	if grid == nil {
		return nil, fmt.Errorf("world: nil grid")
	}
	cfg.applyDefaults()
	if err := cfg.Needs.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Agent.Validate(); err != nil {
		return nil, fmt.Errorf("agent: %w", err)
	}
	return &World{
		cfg:           cfg,
		logger:        logger,
		grid:          grid,
		stations:      registry.NewStations(),
		spots:         registry.NewSpots(),
		planner:       goap.NewPlanner(cfg.Planner),
		byID:          map[string]*agent.Agent{},
		stop:          make(chan struct{}),
		cmds:          make(chan CommandRequest, 64),
		observerJoin:  make(chan ObserverJoinRequest, 16),
		observerLeave: make(chan string, 16),
		observers:     map[string]*observerClient{},
	}, nil
}

func (w *World) ID() string {
	if w == nil {
		return ""
	}
	return w.cfg.ID
}

func (w *World) Config() WorldConfig          { return w.cfg }
func (w *World) TickRateHz() int              { return w.cfg.TickRateHz }
func (w *World) CurrentTick() uint64          { return w.tick.Load() }
func (w *World) Grid() *nav.Grid              { return w.grid }
func (w *World) Stations() *registry.Stations { return w.stations }
func (w *World) Spots() *registry.Spots       { return w.spots }

func (w *World) SetTickLogger(l TickLogger)                    { w.tickLogger = l }
func (w *World) SetCommandLogger(l CommandLogger)              { w.cmdLogger = l }
func (w *World) SetIndex(ix Index)                             { w.index = ix }
func (w *World) SetSnapshotSink(ch chan<- snapshot.SnapshotV1) { w.snapshotSink = ch }

func (w *World) services() agent.Services {
	return agent.Services{Grid: w.grid, Stations: w.stations, Spots: w.spots, Planner: w.planner}
}

func (w *World) AddStation(kind model.StationType, pos model.Vec2) (registry.Station, error) {
	if !w.grid.InBounds(pos) {
		return registry.Station{}, fmt.Errorf("station %v at %v is outside the grid", kind, pos)
	}
	return w.stations.Add(kind, pos, "", ""), nil
}

func (w *World) AddSpot(kind model.StationType, pos model.Vec2) (registry.Spot, error) {
	if kind == model.StationWood {
		return registry.Spot{}, fmt.Errorf("build spot at %v: wood cannot be built", pos)
	}
	if !w.grid.WalkableAt(pos) {
		return registry.Spot{}, fmt.Errorf("build spot %v at %v is not walkable", kind, pos)
	}
	return w.spots.AddSpot(kind, pos), nil
}

// AddAgent registers an agent. An empty p.ID gets the next A<n> id.
func (w *World) AddAgent(p agent.Params) (*agent.Agent, error) {
	if p.ID == "" {
		p.ID = fmt.Sprintf("A%d", len(w.agents)+1)
	}
	if _, dup := w.byID[p.ID]; dup {
		return nil, fmt.Errorf("duplicate agent id %q", p.ID)
	}
	if !w.grid.WalkableAt(p.Pos) {
		return nil, fmt.Errorf("agent %s at %v is not on a walkable cell", p.ID, p.Pos)
	}
	var l *log.Logger
	if w.cfg.Verbose && w.logger != nil {
		l = log.New(w.logger.Writer(), "[agent] ", w.logger.Flags())
	}
	a := agent.New(p, w.cfg.Agent, w.cfg.Needs, w.services(), l)
	w.byID[p.ID] = a
	w.agents = append(w.agents, a)
	sort.SliceStable(w.agents, func(i, j int) bool { return agentLess(w.agents[i].ID(), w.agents[j].ID()) })
	return a, nil
}

// agentLess orders A2 before A10.
func agentLess(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}

func (w *World) Agent(id string) (*agent.Agent, bool) {
	a, ok := w.byID[id]
	return a, ok
}

func (w *World) Agents() []*agent.Agent { return append([]*agent.Agent(nil), w.agents...) }

func (w *World) logf(format string, args ...any) {
	if w.logger != nil {
		w.logger.Printf(format, args...)
	}
}
