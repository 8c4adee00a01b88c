package events

import "github.com/84hero/burrow-client/pkg/wire"

func Absolute(height uint64) *wire.Bound {
	return &wire.Bound{Type: wire.BoundAbsolute, Index: height}
}

// Relative is offset blocks behind the latest block.
func Relative(offset uint64) *wire.Bound {
	return &wire.Bound{Type: wire.BoundRelative, Index: offset}
}

func First() *wire.Bound  { return &wire.Bound{Type: wire.BoundFirst} }
func Latest() *wire.Bound { return &wire.Bound{Type: wire.BoundLatest} }

// Unbounded never ends; only an explicit cancel stops the stream.
func Unbounded() *wire.Bound { return &wire.Bound{Type: wire.BoundStream} }

// Range pairs two bounds. A nil start means Latest and a nil end means Unbounded.
func Range(start, end *wire.Bound) *wire.BlockRange {
	if start == nil {
		start = Latest()
	}
	if end == nil {
		end = Unbounded()
	}
	return &wire.BlockRange{Start: start, End: end}
}

// LiveRange tails the chain from the latest committed block.
func LiveRange() *wire.BlockRange {
	return Range(Latest(), Unbounded())
}

// HistoryRange replays [from, to] and then ends.
func HistoryRange(from, to uint64) *wire.BlockRange {
	return Range(Absolute(from), Absolute(to))
}

// ReplayRange covers everything committed so far.
func ReplayRange() *wire.BlockRange {
	return Range(First(), Latest())
}

// IsUnbounded reports whether rng only ends on cancel.
func IsUnbounded(rng *wire.BlockRange) bool {
	return rng == nil || rng.End == nil || rng.End.Type == wire.BoundStream
}
