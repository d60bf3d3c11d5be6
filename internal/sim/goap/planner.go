package goap

import (
	"container/heap"
	"errors"
	"fmt"
	"math"

	"hearthsim.ai/internal/sim/nav"
)

var (
	// ErrNoPlan means the goal cannot be reached from the start state.
	ErrNoPlan = errors.New("goap: no plan")
	// ErrBudgetExceeded wraps ErrNoPlan; callers checking ErrNoPlan treat both alike.
	ErrBudgetExceeded = fmt.Errorf("%w: search budget exceeded", ErrNoPlan)
)

// Limits bounds a single search. ResourceCap clamps carried wood in simulated states.
type Limits struct {
	MaxExpanded int `yaml:"max_expanded"`
	MaxFrontier int `yaml:"max_frontier"`
	ResourceCap int `yaml:"resource_cap"`
}

func DefaultLimits() Limits {
	return Limits{
		MaxExpanded: 2000,
		MaxFrontier: 4000,
		ResourceCap: 12,
	}
}

// Planner is a uniform-cost search over WorldState. It is stateless between calls.
type Planner struct {
	limits Limits
}

// NewPlanner fills unset search limits from DefaultLimits.
func NewPlanner(l Limits) *Planner {
	def := DefaultLimits()
	if l.MaxExpanded <= 0 {
		l.MaxExpanded = def.MaxExpanded
	}
	if l.MaxFrontier <= 0 {
		l.MaxFrontier = def.MaxFrontier
	}
	if l.ResourceCap < 0 {
		l.ResourceCap = 0
	}
	return &Planner{limits: l}
}

func (p *Planner) Limits() Limits { return p.limits }

type searchNode struct {
	state  WorldState
	cost   float64
	seq    int
	index  int
	parent *searchNode
	via    Step
}

type frontier []*searchNode

func (f frontier) Len() int { return len(f) }

func (f frontier) Less(i, j int) bool {
	if f[i].cost != f[j].cost {
		return f[i].cost < f[j].cost
	}
	return f[i].seq < f[j].seq
}

func (f frontier) Swap(i, j int) {
	f[i], f[j] = f[j], f[i]
	f[i].index = i
	f[j].index = j
}

func (f *frontier) Push(x any) {
	n := x.(*searchNode)
	n.index = len(*f)
	*f = append(*f, n)
}

func (f *frontier) Pop() any {
	old := *f
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*f = old[:n-1]
	return item
}

// edgeCost clamps NaN and negative estimates to zero and rejects routes that
// cannot be travelled.
func edgeCost(c float64) (float64, bool) {
	if math.IsNaN(c) || c < 0 {
		return 0, true
	}
	if nav.IsUnreachable(c) {
		return 0, false
	}
	return c, true
}

// Plan runs a uniform-cost search from start and returns the cheapest action
// sequence whose final state satisfies goal.
func (p *Planner) Plan(ctx PlanContext, start WorldState, actions []Action, goal Goal) (Plan, error) {
	start.Carried = clampCarried(start.Carried, p.limits.ResourceCap)

	open := &frontier{}
	best := map[WorldState]float64{start: 0}
	seq := 0
	heap.Push(open, &searchNode{state: start})
	expanded := 0

	for open.Len() > 0 {
		cur := heap.Pop(open).(*searchNode)
		if cur.cost > best[cur.state] {
			continue
		}
		if goal.IsSatisfied(cur.state) {
			plan := reconstruct(cur)
			plan.Need = goal.Need
			plan.Expanded = expanded
			return plan, nil
		}
		expanded++
		if expanded > p.limits.MaxExpanded {
			return Plan{Need: goal.Need, Expanded: expanded}, fmt.Errorf("%w (expanded %d)", ErrBudgetExceeded, expanded)
		}

		for _, a := range actions {
			if !a.CanPlan(cur.state) {
				continue
			}
			tr := a.ApplyEffects(ctx, cur.state)
			next := tr.Next
			next.Carried = clampCarried(next.Carried, p.limits.ResourceCap)
			if next == cur.state {
				continue
			}
			c, ok := edgeCost(a.EstimateCost(ctx, cur.state))
			if !ok {
				continue
			}
			total := cur.cost + c
			if prev, seen := best[next]; seen && total >= prev {
				continue
			}
			best[next] = total
			seq++
			heap.Push(open, &searchNode{
				state:  next,
				cost:   total,
				seq:    seq,
				parent: cur,
				via:    Step{Action: a, Cost: c, Target: tr.Target, HasTarget: tr.HasTarget},
			})
			if open.Len() > p.limits.MaxFrontier {
				return Plan{Need: goal.Need, Expanded: expanded}, fmt.Errorf("%w (frontier %d)", ErrBudgetExceeded, open.Len())
			}
		}
	}
	return Plan{Need: goal.Need, Expanded: expanded}, ErrNoPlan
}

func reconstruct(end *searchNode) Plan {
	n := 0
	for node := end; node.parent != nil; node = node.parent {
		n++
	}
	steps := make([]Step, n)
	for node := end; node.parent != nil; node = node.parent {
		n--
		steps[n] = node.via
	}
	return Plan{Steps: steps, Cost: end.cost}
}
