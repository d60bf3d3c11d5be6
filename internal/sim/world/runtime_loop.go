package world

import (
	"context"
	"time"

	"hearthsim.ai/internal/sim/agent"
)

func (w *World) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(w.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pending []CommandRequest
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.observerJoin:
			w.handleObserverJoin(req)
		case id := <-w.observerLeave:
			w.handleObserverLeave(id)
		case req := <-w.cmds:
			pending = append(pending, req)
		case <-ticker.C:
			w.step(pending)
			pending = pending[:0]
		}
	}
}

func (w *World) Stop() { close(w.stop) }

// StepOnce advances the world by a single tick using the same ordering
// semantics as the server. It is intended for deterministic replays and tests.
func (w *World) StepOnce(cmds []Command) (tick uint64, digest string) {
	tick = w.tick.Load()
	reqs := make([]CommandRequest, 0, len(cmds))
	for _, c := range cmds {
		reqs = append(reqs, CommandRequest{Cmd: c})
	}
	return tick, w.step(reqs)
}

// step runs one tick: commands, then agents in id order, then the digest and
// every sink.
func (w *World) step(reqs []CommandRequest) string {
	nowTick := w.tick.Load()
	applied := w.applyCommands(nowTick, reqs)

	dt := 1 / float64(w.cfg.TickRateHz)
	var events []agent.Event
	for _, a := range w.agents {
		a.Tick(dt)
		events = append(events, a.DrainEvents()...)
	}

	digest := w.stateDigest(nowTick)
	entry := TickLogEntry{Tick: nowTick, RunID: w.cfg.ID, Commands: applied, Events: events, Digest: digest}
	if w.tickLogger != nil {
		_ = w.tickLogger.WriteTick(entry)
	}
	if w.index != nil {
		_ = w.index.WriteTick(entry)
	}
	w.broadcastTick(nowTick, digest, events)

	if w.snapshotSink != nil && w.cfg.SnapshotEveryTicks > 0 && nowTick != 0 && nowTick%uint64(w.cfg.SnapshotEveryTicks) == 0 {
		snap := w.ExportSnapshot(nowTick)
		select {
		case w.snapshotSink <- snap:
		default:
			w.logf("snapshot sink full; dropping tick %d", nowTick)
		}
	}

	w.tick.Store(nowTick + 1)
	return digest
}

func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}
