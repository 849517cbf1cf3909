package key

// DecoratedKey is a partitioner-produced comparison key for a row: an
// opaque token (produced by decorateKey(raw), see spec.md §6) plus the
// raw row key bytes it was derived from. Compared first by token, then
// by raw bytes — this lets a random partitioner scatter rows by token
// while still keeping a definite tie-break on the literal key.
type DecoratedKey struct {
	Token  []byte
	RawKey []byte
}

// Compare orders two DecoratedKeys: by Token under cmp, then by RawKey
// lexicographically as a tie-break.
func (dk DecoratedKey) Compare(other DecoratedKey, cmp TokenComparer) int {
	if c := cmp.CompareToken(dk.Token, other.Token); c != 0 {
		return c
	}
	return ByteOrderComparer{}.Compare(dk.RawKey, other.RawKey)
}

// NameKind distinguishes a real stored name component from the two
// sentinel values that bound a subrange but are never persisted for
// real data.
type NameKind byte

const (
	// NameReal is an ordinary, stored name component.
	NameReal NameKind = iota
	// NameBegin sorts before every real name at its level.
	NameBegin
	// NameEnd sorts after every real name at its level.
	NameEnd
)

// Name is one component of a ColumnKey: either a real byte string or one
// of the two sentinels (NAME_BEGIN / NAME_END in spec.md's vocabulary).
type Name struct {
	Kind  NameKind
	Bytes []byte
}

// RealName wraps a stored name component.
func RealName(b []byte) Name { return Name{Kind: NameReal, Bytes: b} }

// Begin is the NAME_BEGIN sentinel: sorts before every real name.
func Begin() Name { return Name{Kind: NameBegin} }

// End is the NAME_END sentinel: sorts after every real name.
func End() Name { return Name{Kind: NameEnd} }

func (n Name) IsSentinel() bool { return n.Kind != NameReal }

// compareName orders two Names at one level: NAME_BEGIN < any real name
// < NAME_END, and two real names compare under cmp.
func compareName(a, b Name, cmp NameComparer) int {
	if a.Kind != b.Kind {
		switch {
		case a.Kind == NameBegin, b.Kind == NameEnd:
			return -1
		case a.Kind == NameEnd, b.Kind == NameBegin:
			return 1
		}
	}
	if a.Kind != NameReal {
		return 0
	}
	return cmp.Compare(a.Bytes, b.Bytes)
}

// ColumnKey is the hierarchical key described in spec.md §3: a decorated
// row key plus D ordered name components (D=1 for standard column
// families, D=2 for super ones).
type ColumnKey struct {
	DK    DecoratedKey
	Names []Name
}

// Depth returns the number of name components, i.e. D for this key.
func (k ColumnKey) Depth() int { return len(k.Names) }

// WithName returns a copy of k with the name component at the deepest
// level (index Depth()-1) replaced, mirroring ColumnKey.withName in the
// original Java source (used to round slice boundaries to NAME_BEGIN /
// NAME_END and to qualify a bare column name with its slice's parents).
func (k ColumnKey) WithName(n Name) ColumnKey {
	names := make([]Name, len(k.Names))
	copy(names, k.Names)
	if len(names) == 0 {
		names = []Name{n}
	} else {
		names[len(names)-1] = n
	}
	return ColumnKey{DK: k.DK, Names: names}
}

// WithLeafName returns a copy of k whose final name component (the
// column name itself, at index D-1) is set to name. Used to qualify a
// slice's shared parent prefix with one column's own name.
func (k ColumnKey) WithLeafName(name []byte) ColumnKey {
	return k.WithName(RealName(name))
}

// Comparer is the depth-parameterized total order over ColumnKey
// described in spec.md §4.1: compare(a, b, d) considers DK and the first
// d name components. It is configured once per column family with a
// TokenComparer for DK.Token and one NameComparer per name level
// (levels beyond the configured slice reuse the last one, so a
// standard CF need only supply one).
type Comparer struct {
	Token TokenComparer
	Names []NameComparer
}

// NewComparer builds a Comparer for a column family of the given depth,
// using cmp for every name level (the common case: one comparator per
// CF regardless of depth).
func NewComparer(depth int, cmp NameComparer) Comparer {
	names := make([]NameComparer, depth)
	for i := range names {
		names[i] = cmp
	}
	return Comparer{Token: ByteOrderTokenComparer{}, Names: names}
}

func (c Comparer) nameComparerAt(level int) NameComparer {
	if level < len(c.Names) {
		return c.Names[level]
	}
	return c.Names[len(c.Names)-1]
}

// CompareAt compares a single name component under the comparator
// configured for column-family level i.
func (c Comparer) CompareAt(a, b Name, i int) int {
	return compareName(a, b, c.nameComparerAt(i))
}

// Compare is the total order on ColumnKey at depth d: DK first, then the
// first d name components in order. d may be less than len(a.Names); a
// ColumnKey is allowed to carry more components than are being compared
// (e.g. comparing at D-1 while storing a full D-component key).
func (c Comparer) Compare(a, b ColumnKey, d int) int {
	if cmp := a.DK.Compare(b.DK, c.Token); cmp != 0 {
		return cmp
	}
	for i := 0; i < d; i++ {
		an, bn := nameAt(a, i), nameAt(b, i)
		if cmp := c.CompareAt(an, bn, i); cmp != 0 {
			return cmp
		}
	}
	return 0
}

// nameAt returns the name component at level i, or NAME_BEGIN if the
// key doesn't carry that many components (treated as "smallest" so a
// shorter key sorts before a longer one sharing its prefix).
func nameAt(k ColumnKey, i int) Name {
	if i < len(k.Names) {
		return k.Names[i]
	}
	return Begin()
}
