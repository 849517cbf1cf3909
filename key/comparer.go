// Package key defines the hierarchical ColumnKey used throughout the
// engine: a decorated row key plus an ordered sequence of name
// components, compared at a caller-supplied depth.
package key

import "bytes"

// NameComparer is a total order over a single name component's bytes,
// supplied per column family (e.g. by schema configuration). Mirrors
// base.IComparer's Compare-only surface: separators/successors are not
// needed at the name-component level.
type NameComparer interface {
	Compare(a, b []byte) int
}

// ByteOrderComparer is the default NameComparer: plain lexicographic
// byte comparison, the same ordering common.NewComparer().Compare uses.
type ByteOrderComparer struct{}

func (ByteOrderComparer) Compare(a, b []byte) int {
	return bytes.Compare(a, b)
}

var _ NameComparer = ByteOrderComparer{}

// TokenComparer orders DecoratedKey tokens. A real partitioner
// implementation lives outside this engine (see spec.md §6); this
// engine only needs a total order on the opaque token bytes it is
// handed.
type TokenComparer interface {
	CompareToken(a, b []byte) int
}

// ByteOrderTokenComparer compares tokens byte-wise. Suitable for
// partitioners (e.g. an order-preserving one) whose token already sorts
// the way rows should be iterated; a random partitioner would supply
// its own TokenComparer instead.
type ByteOrderTokenComparer struct{}

func (ByteOrderTokenComparer) CompareToken(a, b []byte) int {
	return bytes.Compare(a, b)
}

var _ TokenComparer = ByteOrderTokenComparer{}
