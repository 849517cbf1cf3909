// Package column defines Column, its conflict-resolution priority, and
// the per-parent-group deletion bookkeeping (Metadata) used to
// implement tombstone semantics, per spec.md §3-§4.1.
package column

import "bytes"

// Flags distinguishes live columns from tombstones and expiring
// columns. Bit 0 marks a tombstone (deletion marker); bit 1 marks a
// column carrying a TTL (expiring). Both bits are independent: an
// expiring column that has passed its TTL is treated like a tombstone
// by higher layers, but that conversion happens outside this package
// (it is the replica-reconciliation collaborator's job, per spec.md §1).
type Flags uint8

const (
	FlagTombstone Flags = 1 << iota
	FlagExpiring
)

func (f Flags) IsTombstone() bool { return f&FlagTombstone != 0 }
func (f Flags) IsExpiring() bool  { return f&FlagExpiring != 0 }

// Column is the smallest addressable value in the store.
//
// LocalDeletionTime is only meaningful when Flags.IsTombstone() is set;
// live columns leave it zero. It is not part of spec.md §3's public
// {name, value, timestamp, flags} shape but must travel with a
// tombstone so major compaction can decide when it is safe to drop.
type Column struct {
	Name              []byte
	Value             []byte
	Timestamp         int64
	Flags             Flags
	LocalDeletionTime int32
}

// ComparePriority returns negative, zero or positive depending on
// whether c has lower, equal or higher priority than other, per
// spec.md §3's ordering: greater timestamp wins; on a timestamp tie, a
// tombstone beats a live column; on a further tie, the lexicographically
// greater value wins. Symmetric and transitive by construction (each
// tie-break is itself a total order).
func (c Column) ComparePriority(other Column) int {
	if c.Timestamp != other.Timestamp {
		if c.Timestamp < other.Timestamp {
			return -1
		}
		return 1
	}
	if c.Flags.IsTombstone() != other.Flags.IsTombstone() {
		if other.Flags.IsTombstone() {
			return -1
		}
		return 1
	}
	return bytes.Compare(c.Value, other.Value)
}

// IsDeleted reports whether c is no longer visible: its timestamp falls
// at or before the ancestor's markedForDeleteAt (a parent-group
// tombstone always wins, live or not), or — only once major is true,
// i.e. the compaction has visibility over every SST that could
// resurrect the column — c is itself a tombstone whose localDeletionTime
// predates gcBefore and may finally be garbage collected.
func (c Column) IsDeleted(parentMeta Metadata, major bool, gcBefore int32) bool {
	if parentMeta.DeletesAt(c.Timestamp) {
		return true
	}
	if !c.Flags.IsTombstone() {
		return false
	}
	return major && c.LocalDeletionTime < gcBefore
}

// NewTombstone builds a tombstone Column: no value, FlagTombstone set,
// and localDeletionTime recorded for later GC eligibility checks.
func NewTombstone(name []byte, timestamp int64, localDeletionTime int32) Column {
	return Column{
		Name:              name,
		Timestamp:         timestamp,
		Flags:             FlagTombstone,
		LocalDeletionTime: localDeletionTime,
	}
}
