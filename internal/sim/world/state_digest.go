package world

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"math"
)

// stateDigest hashes every fact that must match across a replay.
func (w *World) stateDigest(nowTick uint64) string {
	h := sha256.New()
	var tmp [8]byte

	digestWriteU64(h, &tmp, nowTick)

	for _, st := range w.stations.All() {
		digestWriteString(h, &tmp, st.ID)
		h.Write([]byte{byte(st.Kind)})
		digestWriteF64(h, &tmp, st.Pos.X)
		digestWriteF64(h, &tmp, st.Pos.Y)
		digestWriteString(h, &tmp, st.User)
	}
	for _, sp := range w.spots.All() {
		digestWriteString(h, &tmp, sp.ID)
		digestWriteString(h, &tmp, sp.Owner)
		digestWriteString(h, &tmp, sp.StationID)
	}
	for _, a := range w.agents {
		digestWriteString(h, &tmp, a.ID())
		p := a.Position()
		digestWriteF64(h, &tmp, p.X)
		digestWriteF64(h, &tmp, p.Y)
		digestWriteI64(h, &tmp, int64(a.Carried()))
		for _, v := range a.Meters().Values() {
			digestWriteF64(h, &tmp, v)
		}
		h.Write([]byte{byte(a.State()), byte(a.HeadPhase())})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func digestWriteU64(h hash.Hash, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	h.Write(tmp[:])
}

func digestWriteI64(h hash.Hash, tmp *[8]byte, v int64) { digestWriteU64(h, tmp, uint64(v)) }

func digestWriteF64(h hash.Hash, tmp *[8]byte, v float64) {
	digestWriteU64(h, tmp, math.Float64bits(v))
}

func digestWriteString(h hash.Hash, tmp *[8]byte, s string) {
	digestWriteU64(h, tmp, uint64(len(s)))
	h.Write([]byte(s))
}
