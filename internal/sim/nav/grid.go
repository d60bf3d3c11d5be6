package nav

import (
	"fmt"
	"math"
	"sync"

	"hearthsim.ai/internal/sim/model"
)

// Limits caps search work and grid size.
type Limits struct {
	MaxExpanded  int `yaml:"max_expanded"`
	MaxOpen      int `yaml:"max_open"`
	SearchRadius int `yaml:"search_radius"`
	MaxCells     int `yaml:"max_cells"`
}

func DefaultLimits() Limits {
	return Limits{
		MaxExpanded:  4000,
		MaxOpen:      8000,
		SearchRadius: 6,
		MaxCells:     120000,
	}
}

// Config describes a grid before any cells are blocked.
type Config struct {
	Origin        model.Vec2
	CellSize      float64
	Cols          int
	Rows          int
	AllowDiagonal bool
	Limits        Limits
}

// Grid is a uniform occupancy grid. Cell (0,0) has its lower corner at Origin.
type Grid struct {
	origin        model.Vec2
	cellSize      float64
	cols, rows    int
	allowDiagonal bool
	limits        Limits
	blocked       []bool

	mu   sync.Mutex
	memo map[cellPair]memoEntry
}

type cell struct {
	col int
	row int
}

type cellPair struct {
	from cell
	to   cell
}

type memoEntry struct {
	cells []cell
	cost  int
	ok    bool
}

const memoCap = 4096

// NewGrid returns an all-walkable grid. Zero limits take their defaults.
func NewGrid(cfg Config) (*Grid, error) {
	if cfg.CellSize <= 0 || math.IsNaN(cfg.CellSize) || math.IsInf(cfg.CellSize, 0) {
		return nil, fmt.Errorf("nav: bad cell size %v", cfg.CellSize)
	}
	if cfg.Cols <= 0 || cfg.Rows <= 0 {
		return nil, fmt.Errorf("nav: bad dimensions %dx%d", cfg.Cols, cfg.Rows)
	}
	lim := cfg.Limits
	def := DefaultLimits()
	if lim.MaxExpanded <= 0 {
		lim.MaxExpanded = def.MaxExpanded
	}
	if lim.MaxOpen <= 0 {
		lim.MaxOpen = def.MaxOpen
	}
	if lim.SearchRadius < 0 {
		lim.SearchRadius = 0
	}
	if lim.MaxCells <= 0 {
		lim.MaxCells = def.MaxCells
	}
	if cfg.Cols*cfg.Rows > lim.MaxCells {
		return nil, fmt.Errorf("nav: grid %dx%d exceeds %d cells", cfg.Cols, cfg.Rows, lim.MaxCells)
	}
	return &Grid{
		origin:        cfg.Origin,
		cellSize:      cfg.CellSize,
		cols:          cfg.Cols,
		rows:          cfg.Rows,
		allowDiagonal: cfg.AllowDiagonal,
		limits:        lim,
		blocked:       make([]bool, cfg.Cols*cfg.Rows),
		memo:          map[cellPair]memoEntry{},
	}, nil
}

// FromRows builds a grid from text rows where '#' marks a blocked cell.
// Row 0 of the input is the top of the map (highest Y).
func FromRows(cfg Config, rows []string) (*Grid, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("nav: no rows")
	}
	cfg.Rows = len(rows)
	cfg.Cols = len(rows[0])
	g, err := NewGrid(cfg)
	if err != nil {
		return nil, err
	}
	for i, line := range rows {
		if len(line) != cfg.Cols {
			return nil, fmt.Errorf("nav: row %d has %d cells, want %d", i, len(line), cfg.Cols)
		}
		row := cfg.Rows - 1 - i
		for col := 0; col < len(line); col++ {
			switch line[col] {
			case '#':
				g.blocked[g.index(col, row)] = true
			case '.':
			default:
				return nil, fmt.Errorf("nav: row %d col %d: unexpected %q", i, col, line[col])
			}
		}
	}
	return g, nil
}

func (g *Grid) Cols() int           { return g.cols }
func (g *Grid) Rows() int           { return g.rows }
func (g *Grid) CellSize() float64   { return g.cellSize }
func (g *Grid) Origin() model.Vec2  { return g.origin }
func (g *Grid) AllowDiagonal() bool { return g.allowDiagonal }
func (g *Grid) Limits() Limits      { return g.limits }
func (g *Grid) inBounds(col, row int) bool {
	return col >= 0 && row >= 0 && col < g.cols && row < g.rows
}
func (g *Grid) index(col, row int) int { return row*g.cols + col }

func (g *Grid) Walkable(col, row int) bool {
	return g.inBounds(col, row) && !g.blocked[g.index(col, row)]
}

func (g *Grid) SetBlocked(col, row int, blocked bool) {
	if !g.inBounds(col, row) {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.blocked[g.index(col, row)] == blocked {
		return
	}
	g.blocked[g.index(col, row)] = blocked
	g.memo = map[cellPair]memoEntry{}
}

// BlockRect blocks every cell whose center lies inside [min,max].
func (g *Grid) BlockRect(min, max model.Vec2) {
	for row := 0; row < g.rows; row++ {
		for col := 0; col < g.cols; col++ {
			c := g.CellCenter(col, row)
			if c.X >= min.X && c.X <= max.X && c.Y >= min.Y && c.Y <= max.Y {
				g.SetBlocked(col, row, true)
			}
		}
	}
}

// CellOf returns the cell containing p; ok is false outside the grid.
func (g *Grid) CellOf(p model.Vec2) (col, row int, ok bool) {
	if !p.IsFinite() {
		return 0, 0, false
	}
	fx := math.Floor((p.X - g.origin.X) / g.cellSize)
	fy := math.Floor((p.Y - g.origin.Y) / g.cellSize)
	if fx < 0 || fy < 0 || fx >= float64(g.cols) || fy >= float64(g.rows) {
		return 0, 0, false
	}
	return int(fx), int(fy), true
}

func (g *Grid) CellCenter(col, row int) model.Vec2 {
	return model.Vec2{
		X: g.origin.X + (float64(col)+0.5)*g.cellSize,
		Y: g.origin.Y + (float64(row)+0.5)*g.cellSize,
	}
}

// InBounds reports whether p falls inside the grid.
func (g *Grid) InBounds(p model.Vec2) bool {
	_, _, ok := g.CellOf(p)
	return ok
}

// WalkableAt reports whether p is inside the grid on a walkable cell.
func (g *Grid) WalkableAt(p model.Vec2) bool {
	col, row, ok := g.CellOf(p)
	return ok && g.Walkable(col, row)
}

// nearestWalkable scans square rings of growing radius around c and returns the
// walkable cell closest to c. Ring scan order breaks ties.
func (g *Grid) nearestWalkable(c cell) (cell, bool) {
	if g.Walkable(c.col, c.row) {
		return c, true
	}
	for r := 1; r <= g.limits.SearchRadius; r++ {
		best := cell{}
		bestD := math.MaxInt
		for dy := -r; dy <= r; dy++ {
			for dx := -r; dx <= r; dx++ {
				if abs(dx) != r && abs(dy) != r {
					continue
				}
				col, row := c.col+dx, c.row+dy
				if !g.Walkable(col, row) {
					continue
				}
				if d := dx*dx + dy*dy; d < bestD {
					bestD = d
					best = cell{col: col, row: row}
				}
			}
		}
		if bestD != math.MaxInt {
			return best, true
		}
	}
	return cell{}, false
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
