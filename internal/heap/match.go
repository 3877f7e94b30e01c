package heap

import (
	"bytes"
	"encoding/binary"
	"math"

	"relstore/internal/common"
)

// filter holds a scan's optional comparison predicate on one fixed field.
type filter struct {
	enabled bool
	offset  int
	length  int
	typ     common.Type
	value   []byte
	op      common.Operator
}

// matches reports whether rec satisfies f, per the byte-wise comparison
// rules: out-of-range fields never match, and each type reads exactly
// length bytes into a correctly typed local rather than dereferencing the
// record's bytes directly.
func (f filter) matches(rec []byte) bool {
	if !f.enabled {
		return true
	}
	if f.offset+f.length-1 >= len(rec) {
		return false
	}

	var diff int
	switch f.typ {
	case common.INTEGER:
		attr := int32(binary.LittleEndian.Uint32(rec[f.offset : f.offset+4]))
		probe := int32(binary.LittleEndian.Uint32(f.value[0:4]))
		diff = int(attr) - int(probe)
	case common.FLOAT:
		attr := math.Float32frombits(binary.LittleEndian.Uint32(rec[f.offset : f.offset+4]))
		probe := math.Float32frombits(binary.LittleEndian.Uint32(f.value[0:4]))
		diff = floatSign(attr - probe)
	case common.STRING:
		probe := f.value
		if len(probe) > f.length {
			probe = probe[:f.length]
		}
		diff = bytes.Compare(rec[f.offset:f.offset+f.length], padRight(probe, f.length))
	default:
		return false
	}
	return f.op.Satisfies(diff)
}

func floatSign(d float32) int {
	switch {
	case d < 0:
		return -1
	case d > 0:
		return 1
	default:
		return 0
	}
}

func padRight(b []byte, n int) []byte {
	if len(b) >= n {
		return b[:n]
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}
