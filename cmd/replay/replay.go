package main

import (
	"errors"
	"fmt"
	"path/filepath"

	persistlog "hearthsim.ai/internal/persistence/log"
	"hearthsim.ai/internal/sim/world"
)

type options struct {
	// RunID selects the run to verify. Empty picks the first run whose
	// first logged tick is the world's current tick.
	RunID      string
	ExcludeRun string
	VerifyFrom uint64
	ToTick     uint64
}

type result struct {
	RunID    string
	Checked  uint64
	LastTick uint64
}

var errStop = errors.New("stop")

// replay re-steps w with the commands recorded for one run and compares
// every digest from VerifyFrom on.
func replay(w *world.World, files []string, opts options) (result, error) {
	res := result{RunID: opts.RunID}
	startTick := w.CurrentTick()
	verifyFrom := opts.VerifyFrom
	if verifyFrom < startTick {
		verifyFrom = startTick
	}

	for _, path := range files {
		err := persistlog.ScanTicks(path, func(entry world.TickLogEntry) (bool, error) {
			if res.RunID == "" {
				if entry.Tick != startTick || entry.RunID == opts.ExcludeRun {
					return true, nil
				}
				res.RunID = entry.RunID
			}
			if entry.RunID != res.RunID || entry.Tick < startTick {
				return true, nil
			}
			if opts.ToTick != 0 && entry.Tick > opts.ToTick {
				return false, errStop
			}
			if entry.Tick != w.CurrentTick() {
				return false, fmt.Errorf("tick mismatch: want=%d got=%d (file=%s)", w.CurrentTick(), entry.Tick, filepath.Base(path))
			}

			tick, gotDigest := w.StepOnce(entry.Commands)
			if tick != entry.Tick {
				return false, fmt.Errorf("internal tick mismatch: stepped=%d entry=%d (file=%s)", tick, entry.Tick, filepath.Base(path))
			}
			res.LastTick = tick
			if tick >= verifyFrom {
				res.Checked++
				if gotDigest != entry.Digest {
					return false, fmt.Errorf("digest mismatch at tick %d: got=%s want=%s", tick, gotDigest, entry.Digest)
				}
			}
			return true, nil
		})
		if errors.Is(err, errStop) {
			break
		}
		if err != nil {
			return res, err
		}
	}
	if res.RunID == "" {
		return res, fmt.Errorf("no run starts at tick %d", startTick)
	}
	if res.Checked == 0 {
		return res, fmt.Errorf("run %s: no ticks verified", res.RunID)
	}
	return res, nil
}
