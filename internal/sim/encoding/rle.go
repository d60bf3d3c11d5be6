// Package encoding packs grid occupancy masks as run lengths.
package encoding

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
)

// EncodeMask encodes a row-major occupancy mask into base64(varint pairs).
// The pairs are (cell value, run length) repeated; blocked cells are 1.
func EncodeMask(mask []bool) string {
	var buf bytes.Buffer
	var tmp [binary.MaxVarintLen64]byte

	i := 0
	for i < len(mask) {
		v := mask[i]
		run := 1
		for j := i + 1; j < len(mask) && mask[j] == v; j++ {
			run++
		}

		var code uint64
		if v {
			code = 1
		}
		n := binary.PutUvarint(tmp[:], code)
		buf.Write(tmp[:n])
		n = binary.PutUvarint(tmp[:], uint64(run))
		buf.Write(tmp[:n])

		i += run
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

// DecodeMask reverses EncodeMask. cells is the expected mask length; runs
// that overflow it are rejected.
func DecodeMask(b64 string, cells int) ([]bool, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	out := make([]bool, 0, cells)
	for i := 0; i < len(raw); {
		code, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		run, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		if code > 1 {
			return nil, fmt.Errorf("cell value out of range: %d", code)
		}
		if run == 0 || run > uint64(cells-len(out)) {
			return nil, fmt.Errorf("run of %d overflows %d cells", run, cells)
		}
		for k := uint64(0); k < run; k++ {
			out = append(out, code == 1)
		}
	}
	if len(out) != cells {
		return nil, fmt.Errorf("mask has %d cells, want %d", len(out), cells)
	}
	return out, nil
}
