package nav

import (
	"container/heap"
)

// Step costs in tenths of a cell.
const (
	stepCost     = 10
	diagonalCost = 14
)

type neighbor struct {
	col      int
	row      int
	cost     int
	diagonal bool
}

var neighborOffsets = [...]neighbor{
	{col: 0, row: -1, cost: stepCost},
	{col: 1, row: 0, cost: stepCost},
	{col: 0, row: 1, cost: stepCost},
	{col: -1, row: 0, cost: stepCost},
	{col: 1, row: -1, cost: diagonalCost, diagonal: true},
	{col: 1, row: 1, cost: diagonalCost, diagonal: true},
	{col: -1, row: 1, cost: diagonalCost, diagonal: true},
	{col: -1, row: -1, cost: diagonalCost, diagonal: true},
}

// heuristic is Manhattan distance on 4-connected grids and octile distance on
// 8-connected grids, in the same units as the step costs. On an open grid it
// is also the exact route cost.
func (g *Grid) heuristic(a, b cell) int {
	dx := abs(a.col - b.col)
	dy := abs(a.row - b.row)
	if !g.allowDiagonal {
		return stepCost * (dx + dy)
	}
	lo, hi := min(dx, dy), max(dx, dy)
	return diagonalCost*lo + stepCost*(hi-lo)
}

// canTraverseDiagonal forbids cutting corners past blocked cells.
func (g *Grid) canTraverseDiagonal(from cell, d neighbor) bool {
	if !d.diagonal {
		return true
	}
	return g.Walkable(from.col+d.col, from.row) && g.Walkable(from.col, from.row+d.row)
}

type pathNode struct {
	at     cell
	g      int
	f      int
	seq    int
	index  int
	parent *pathNode
}

type pathQueue []*pathNode

func (pq pathQueue) Len() int { return len(pq) }

func (pq pathQueue) Less(i, j int) bool {
	if pq[i].f != pq[j].f {
		return pq[i].f < pq[j].f
	}
	if pq[i].g != pq[j].g {
		return pq[i].g > pq[j].g
	}
	return pq[i].seq < pq[j].seq
}

func (pq pathQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *pathQueue) Push(x any) {
	item := x.(*pathNode)
	item.index = len(*pq)
	*pq = append(*pq, item)
}

func (pq *pathQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*pq = old[:n-1]
	return item
}

// astar returns the cell sequence from start to goal inclusive and its cost.
// It fails when the goal is disconnected or when either search cap is
// exceeded.
func (g *Grid) astar(start, goal cell) ([]cell, int, bool) {
	if start == goal {
		return []cell{start}, 0, true
	}
	open := &pathQueue{}
	seq := 0
	heap.Push(open, &pathNode{at: start, f: g.heuristic(start, goal)})
	gScore := map[int]int{g.index(start.col, start.row): 0}
	closed := make(map[int]struct{})
	expanded := 0

	steps := neighborOffsets[:4]
	if g.allowDiagonal {
		steps = neighborOffsets[:]
	}

	for open.Len() > 0 {
		current := heap.Pop(open).(*pathNode)
		currIdx := g.index(current.at.col, current.at.row)
		if _, seen := closed[currIdx]; seen {
			continue
		}
		closed[currIdx] = struct{}{}
		if current.at == goal {
			return reconstruct(current), current.g, true
		}
		expanded++
		if expanded > g.limits.MaxExpanded {
			return nil, 0, false
		}

		for _, d := range steps {
			if !g.canTraverseDiagonal(current.at, d) {
				continue
			}
			next := cell{col: current.at.col + d.col, row: current.at.row + d.row}
			if !g.Walkable(next.col, next.row) {
				continue
			}
			idx := g.index(next.col, next.row)
			if _, seen := closed[idx]; seen {
				continue
			}
			tentative := current.g + d.cost
			if prev, ok := gScore[idx]; ok && tentative >= prev {
				continue
			}
			gScore[idx] = tentative
			seq++
			heap.Push(open, &pathNode{
				at:     next,
				g:      tentative,
				f:      tentative + g.heuristic(next, goal),
				seq:    seq,
				parent: current,
			})
			if open.Len() > g.limits.MaxOpen {
				return nil, 0, false
			}
		}
	}
	return nil, 0, false
}

func reconstruct(end *pathNode) []cell {
	n := 0
	for node := end; node != nil; node = node.parent {
		n++
	}
	path := make([]cell, n)
	for node := end; node != nil; node = node.parent {
		n--
		path[n] = node.at
	}
	return path
}

// cells runs the memoized search between two already resolved cells.
func (g *Grid) cells(from, to cell) ([]cell, int, bool) {
	key := cellPair{from: from, to: to}
	g.mu.Lock()
	if e, ok := g.memo[key]; ok {
		g.mu.Unlock()
		return e.cells, e.cost, e.ok
	}
	g.mu.Unlock()

	path, cost, ok := g.astar(from, to)

	g.mu.Lock()
	if len(g.memo) >= memoCap {
		g.memo = map[cellPair]memoEntry{}
	}
	g.memo[key] = memoEntry{cells: path, cost: cost, ok: ok}
	g.mu.Unlock()
	return path, cost, ok
}
