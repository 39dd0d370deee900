package tree

import (
	"go.uber.org/multierr"

	"github.com/benz9527/xds/lib/infra"
)

type RBTreeErr string

const (
	ErrLeafColorViolation RBTreeErr = "rbtree leaf color violation"
	ErrRedViolation       RBTreeErr = "rbtree red violation"
	ErrBlackViolation     RBTreeErr = "rbtree black violation"
	ErrRootColorViolation RBTreeErr = "rbtree root color violation"
)

func (err RBTreeErr) Error() string {
	return string(err)
}

func isNilLeaf[K infra.OrderedKey](node RBNode[K]) bool {
	return node == nil || node.IsNilLeaf()
}

func isBlack[K infra.OrderedKey](node RBNode[K]) bool {
	return isNilLeaf[K](node) || node.Color() == Black
}

func isRed[K infra.OrderedKey](node RBNode[K]) bool {
	return !isNilLeaf[K](node) && node.Color() == Red
}

// blackDepth counts the black nodes from target up to the root,
// both included.
func blackDepth[K infra.OrderedKey](target RBNode[K]) int {
	depth := 0
	for aux := target; aux != nil; aux = aux.Parent() {
		if isBlack[K](aux) {
			depth++
		}
	}
	return depth
}

// rbtree rule validation utilities.

// References:
// https://github1s.com/minghu6/rust-minghu6/blob/master/coll_st/src/bst/rb.rs

// LeafColorValidate checks that every nil leaf is black.
func LeafColorValidate[K infra.OrderedKey](tree RBTree[K]) error {
	for _, leaf := range tree.GetLeafNodes(nil) {
		if leaf.Color() != Black {
			return ErrLeafColorViolation
		}
	}
	return nil
}

// Inorder traversal to validate that no red node has a red child.
func RedViolationValidate[K infra.OrderedKey](tree RBTree[K]) error {
	size := tree.Len()
	var aux = tree.GetRoot()
	if size <= 0 || aux == nil {
		return nil
	}

	stack := make([]RBNode[K], 0, size>>1+1)
	defer func() {
		clear(stack)
	}()

	for ; !isNilLeaf[K](aux); aux = aux.Left() {
		stack = append(stack, aux)
	}

	for size = int64(len(stack)); size > 0; size = int64(len(stack)) {
		if aux = stack[size-1]; isRed[K](aux) {
			if isRed[K](aux.Parent()) || isRed[K](aux.Left()) || isRed[K](aux.Right()) {
				return ErrRedViolation
			}
		}

		stack = stack[:size-1]
		for aux = aux.Right(); !isNilLeaf[K](aux); aux = aux.Left() {
			stack = append(stack, aux)
		}
	}
	return nil
}

/*
<X> is a RED node.
[X] is a BLACK node (or NIL).

	        [13]
			/  \
		 <8>    [15]
		 / \    /  \
	  [6] [11] [14] [17]
	  /              /
	<1>            [16]

2-3-4 tree like:

	       <8> --- [13] --- <15>
		  /  \             /    \
		 /    \           /      \
	  <1>-[6][11]      [14] <16>-[17]

Each leaf node to root node black depth are equal.
*/
func BlackViolationValidate[K infra.OrderedKey](tree RBTree[K]) error {
	leaves := tree.GetLeafNodes(nil)
	if len(leaves) == 0 {
		return nil
	}

	depth := blackDepth[K](leaves[0])
	for i := 1; i < len(leaves); i++ {
		if blackDepth[K](leaves[i]) != depth {
			return ErrBlackViolation
		}
	}
	return nil
}

func RootColorValidate[K infra.OrderedKey](tree RBTree[K]) error {
	if root := tree.GetRoot(); root != nil && root.Color() != Black {
		return ErrRootColorViolation
	}
	return nil
}

// Validate runs every rule check and reports all violations.
func Validate[K infra.OrderedKey](tree RBTree[K]) error {
	return multierr.Combine(
		LeafColorValidate[K](tree),
		RedViolationValidate[K](tree),
		BlackViolationValidate[K](tree),
		RootColorValidate[K](tree),
	)
}
