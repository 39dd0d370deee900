package tree

import "github.com/benz9527/xds/lib/infra"

// RBColor numeric values are stable, black is 1.
type RBColor uint8

const (
	Red RBColor = iota
	Black
)

func (c RBColor) String() string {
	switch c {
	case Red:
		return "Red"
	case Black:
		return "Black"
	default:
	}
	return "Unknown"
}

type RBDirection int8

const (
	Left RBDirection = -1 + iota
	Root
	Right
)

func (d RBDirection) String() string {
	switch d {
	case Left:
		return "Left"
	case Root:
		return "Root"
	case Right:
		return "Right"
	default:
	}
	return "Unknown"
}

// RBNode is a read-only view of a tree node. The links return
// nil when absent.
type RBNode[K infra.OrderedKey] interface {
	Key() K
	Color() RBColor
	Left() RBNode[K]
	Right() RBNode[K]
	Parent() RBNode[K]
	// IsNilLeaf reports whether the node stands for an empty
	// child position (see GetLeafNodes).
	IsNilLeaf() bool
}

type RBTree[K infra.OrderedKey] interface {
	Len() int64
	GetRoot() RBNode[K]
	// InsertNode returns false and the existing node if the key
	// is already present.
	InsertNode(key K) (bool, RBNode[K])
	DeleteNode(key K) bool
	FindNode(key K) RBNode[K]
	// GetLeafNodes appends one black nil leaf per empty child
	// position, in BFS order, and returns the extended slice.
	GetLeafNodes(out []RBNode[K]) []RBNode[K]
	Min() RBNode[K]
	Max() RBNode[K]
	RemoveMin() (K, bool)
	Foreach(action func(idx int64, color RBColor, key K) bool)
	Release()
}
