package tree

import (
	"go.uber.org/zap"

	"github.com/benz9527/xds/lib/infra"
	"github.com/benz9527/xds/lib/xlog"
)

var (
	_ RBTree[int] = (*rbTree[int])(nil)
	_ RBNode[int] = (*rbNode[int])(nil)
	_ RBNode[int] = nilLeaf[int]{}
)

type rbNode[K infra.OrderedKey] struct {
	parent *rbNode[K]
	left   *rbNode[K]
	right  *rbNode[K]
	key    K
	color  RBColor
}

func (node *rbNode[K]) Color() RBColor {
	if node == nil {
		return Black
	}
	return node.color
}

func (node *rbNode[K]) Key() K {
	if node == nil {
		var k K
		return k
	}
	return node.key
}

func (node *rbNode[K]) IsNilLeaf() bool {
	return node == nil
}

func (node *rbNode[K]) Left() RBNode[K] {
	if node == nil || node.left == nil {
		return nil
	}
	return node.left
}

func (node *rbNode[K]) Parent() RBNode[K] {
	if node == nil || node.parent == nil {
		return nil
	}
	return node.parent
}

func (node *rbNode[K]) Right() RBNode[K] {
	if node == nil || node.right == nil {
		return nil
	}
	return node.right
}

func (node *rbNode[K]) isRed() bool {
	return node != nil && node.color == Red
}

func (node *rbNode[K]) isBlack() bool {
	return node == nil || node.color == Black
}

func (node *rbNode[K]) isRoot() bool {
	return node != nil && node.parent == nil
}

func (node *rbNode[K]) Direction() RBDirection {
	if node == nil {
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] nil leaf node without direction")
	}

	if node.isRoot() {
		return Root
	}
	if node == node.parent.left {
		return Left
	}
	return Right
}

func (node *rbNode[K]) sibling() *rbNode[K] {
	switch node.Direction() {
	case Left:
		return node.parent.right
	case Right:
		return node.parent.left
	default:
	}
	return nil
}

func (node *rbNode[K]) uncle() *rbNode[K] {
	return node.parent.sibling()
}

func (node *rbNode[K]) grandpa() *rbNode[K] {
	return node.parent.parent
}

func (node *rbNode[K]) fixLink() {
	if node.left != nil {
		node.left.parent = node
	}
	if node.right != nil {
		node.right.parent = node
	}
}

func (node *rbNode[K]) minimum() *rbNode[K] {
	aux := node
	for ; aux != nil && aux.left != nil; aux = aux.left {
	}
	return aux
}

func (node *rbNode[K]) maximum() *rbNode[K] {
	aux := node
	for ; aux != nil && aux.right != nil; aux = aux.right {
	}
	return aux
}

// The pred node of the current node is its previous node in sorted order.
// Only called on a node with two children.
func (node *rbNode[K]) pred() *rbNode[K] {
	return node.left.maximum()
}

// The succ node of the current node is its next node in sorted order.
// Only called on a node with two children.
func (node *rbNode[K]) succ() *rbNode[K] {
	return node.right.minimum()
}

// nilLeaf is the view of an empty child position. It is never
// stored in the tree.
type nilLeaf[K infra.OrderedKey] struct {
	parent *rbNode[K]
}

func (leaf nilLeaf[K]) Key() K {
	var k K
	return k
}

func (leaf nilLeaf[K]) Color() RBColor    { return Black }
func (leaf nilLeaf[K]) Left() RBNode[K]   { return nil }
func (leaf nilLeaf[K]) Right() RBNode[K]  { return nil }
func (leaf nilLeaf[K]) IsNilLeaf() bool   { return true }
func (leaf nilLeaf[K]) Parent() RBNode[K] { return leaf.parent.asNode() }

// asNode converts the node into an interface value without
// wrapping a typed nil pointer.
func (node *rbNode[K]) asNode() RBNode[K] {
	if node == nil {
		return nil
	}
	return node
}

type rbTree[K infra.OrderedKey] struct {
	root           *rbNode[K]
	count          int64
	compare        infra.OrderedKeyComparator[K]
	isDesc         bool
	isRmBorrowSucc bool
	statsName      string
	stats          *rbTreeStats
	logger         xlog.XLogger
}

func (tree *rbTree[K]) Len() int64 {
	return tree.count
}

func (tree *rbTree[K]) GetRoot() RBNode[K] {
	return tree.root.asNode()
}

func (tree *rbTree[K]) Min() RBNode[K] {
	return tree.root.minimum().asNode()
}

func (tree *rbTree[K]) Max() RBNode[K] {
	return tree.root.maximum().asNode()
}

// References:
// https://elixir.bootlin.com/linux/latest/source/lib/rbtree.c
// rbtree properties:
// https://en.wikipedia.org/wiki/Red%E2%80%93black_tree#Properties
// p1. Every node is either red or black.
// p2. All NIL nodes are considered black.
// p3. A red node does not have a red child. (red-violation)
// p4. Every path from a given node to any of its descendant
//   NIL nodes goes through the same number of black nodes. (black-violation)
// p5. The root is black.
// (Conclusion) If a node X has exactly one child, it must be a red child,
//   because if it were black, its NIL descendants would sit at a different
//   black depth than X's NIL child, violating p4.

/*
		 |                         |
		 X                         S
		/ \     leftRotate(X)     / \
	   L   S    ============>    X   Sd
		  / \                   / \
		Sc   Sd                L   Sc
*/
func (tree *rbTree[K]) leftRotate(x *rbNode[K]) {
	if x == nil || x.right == nil {
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] left rotate node x is nil or x.right is nil")
	}

	p, y := x.parent, x.right
	dir := x.Direction()
	x.right, y.left = y.left, x

	x.fixLink()
	y.fixLink()

	switch dir {
	case Root:
		tree.root = y
	case Left:
		p.left = y
	case Right:
		p.right = y
	default:
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] unknown node direction to left-rotate")
	}
	y.parent = p
	tree.stats.IncreaseRotationCount(Left)
}

/*
			 |                         |
			 X                         S
			/ \     rightRotate(S)    / \
	       L   S    <============    X   R
			  / \                   / \
			Sc   Sd               Sc   Sd
*/
func (tree *rbTree[K]) rightRotate(x *rbNode[K]) {
	if x == nil || x.left == nil {
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] right rotate node x is nil or x.left is nil")
	}

	p, y := x.parent, x.left
	dir := x.Direction()
	x.left, y.right = y.right, x

	x.fixLink()
	y.fixLink()

	switch dir {
	case Root:
		tree.root = y
	case Left:
		p.left = y
	case Right:
		p.right = y
	default:
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] unknown node direction to right-rotate")
	}
	y.parent = p
	tree.stats.IncreaseRotationCount(Right)
}

func (tree *rbTree[K]) search(key K) *rbNode[K] {
	for aux := tree.root; aux != nil; {
		res := tree.compare(key, aux.key)
		if res == 0 {
			return aux
		} else if res > 0 {
			aux = aux.right
		} else {
			aux = aux.left
		}
	}
	return nil
}

func (tree *rbTree[K]) FindNode(key K) RBNode[K] {
	return tree.search(key).asNode()
}

// i1: Empty rbtree, insert directly, but root node is painted to black.
func (tree *rbTree[K]) InsertNode(key K) (bool, RBNode[K]) {
	if /* i1 */ tree.root == nil {
		tree.root = &rbNode[K]{
			key:   key,
			color: Black,
		}
		tree.count++
		tree.stats.RecordNodeCount(1)
		return true, tree.root
	}

	var x, y *rbNode[K] = tree.root, nil
	for x != nil {
		y = x
		res := tree.compare(key, x.key)
		if /* equal */ res == 0 {
			tree.logger.Debug("rbtree insert rejected, duplicate key", zap.Any("key", key))
			return false, x
		} else /* less */ if res < 0 {
			x = x.left
		} else /* greater */ {
			x = x.right
		}
	}

	z := &rbNode[K]{
		key:    key,
		color:  Red,
		parent: y,
	}
	if /* less */ tree.compare(key, y.key) < 0 {
		y.left = z
	} else /* greater */ {
		y.right = z
	}

	tree.count++
	tree.stats.RecordNodeCount(1)
	tree.insertRebalance(z)
	return true, z
}

/*
New node X is red by default.

<X> is a RED node.
[X] is a BLACK node (or NIL).
{X} is either a RED node or a BLACK node.

im1: Current node X's parent P is black, so hold p3 and p4.

im2: Current node X is root, repaint it into black.

im3: If both the parent P and the uncle U are red, grandpa G is black.
(red-violation)
After repainted G into red may be still red-violation.
Recursive to fix grandpa.

	    [G]             <G>
	    / \             / \
	  <P> <U>  ====>  [P] [U]
	  /               /
	<X>             <X>

im4: The parent P is red but the uncle U is black. (red-violation)
X is opposite direction to P. Rotate P to opposite direction.
After rotation may be still red-violation. Here must enter im5 to fix.

	  [G]                 [G]
	  / \    rotate(P)    / \
	<P> [U]  ========>  <X> [U]
	  \                 /
	  <X>             <P>

im5: Handle im4 scenario, current node is the same direction as parent.

	    [G]                 <P>               [P]
	    / \    rotate(G)    / \    repaint    / \
	  <P> [U]  ========>  <X> [G]  ======>  <X> <G>
	  /                         \                 \
	<X>                         [U]               [U]
*/
func (tree *rbTree[K]) insertRebalance(x *rbNode[K]) {
	tree.stats.IncreaseFixupCount(fixupInsert)
	for x != nil {
		if /* im2 */ x.isRoot() {
			x.color = Black
			return
		}

		if /* im1 */ x.parent.isBlack() {
			return
		}

		// The parent is red, so it can't be the root and grandpa exists.
		if /* im3 */ x.uncle().isRed() {
			x.parent.color = Black
			x.uncle().color = Black
			gp := x.grandpa()
			gp.color = Red
			x = gp
			continue
		}

		dir := x.Direction()
		if /* im4 */ dir != x.parent.Direction() {
			p := x.parent
			switch dir {
			case Left:
				tree.rightRotate(p)
			case Right:
				tree.leftRotate(p)
			default:
				// impossible run to here
				panic( /* debug assertion */ "[rbtree] insert violate (im4)")
			}
			x = p // enter im5 to fix
		}

		switch /* im5 */ dir = x.parent.Direction(); dir {
		case Left:
			tree.rightRotate(x.grandpa())
		case Right:
			tree.leftRotate(x.grandpa())
		default:
			// impossible run to here
			panic( /* debug assertion */ "[rbtree] insert violate (im5)")
		}

		x.parent.color = Black
		x.sibling().color = Red
		return
	}
}

// exchange swaps the tree positions and the colors of z and y.
// The keys stay with their nodes, so the node handed out for
// any other key keeps its identity.
// y is in z's subtree.
func (tree *rbTree[K]) exchange(z, y *rbNode[K]) {
	z.color, y.color = y.color, z.color
	zp, zl, zr, zDir := z.parent, z.left, z.right, z.Direction()
	yp, yl, yr, yDir := y.parent, y.left, y.right, y.Direction()

	if /* adjacent */ yp == z {
		if yDir == Left {
			y.left, y.right = z, zr
		} else {
			y.left, y.right = zl, z
		}
	} else {
		y.left, y.right = zl, zr
		z.parent = yp
		if yDir == Left {
			yp.left = z
		} else {
			yp.right = z
		}
	}
	z.left, z.right = yl, yr
	y.parent = zp

	switch zDir {
	case Root:
		tree.root = y
	case Left:
		zp.left = y
	case Right:
		zp.right = y
	default:
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] unknown node direction to exchange")
	}
	y.fixLink()
	z.fixLink()
}

/*
r1: Only a root node, remove directly.

r2: Current node X has left and right node.
Find node X's pred or succ Y and exchange their positions (and colors).
After that X has one child at most.

Find pred:

	  |                    |
	  X                    L
	 / \                  / \
	L  ..   swap(X, L)   X  ..
		|   =========>       |
		P                    P
	   / \                  / \
	  S  ..                S  ..

r3: (1) Current node X is a red leaf node, remove directly.

r3: (2) Current node X is a black leaf node, we have to rebalance before
unlinking it. (black-violation)

r4: Current node X is not a leaf node but contains a not nil child node.
The child node must be a red node. (See conclusion. Otherwise, black-violation)
Replace X by the child and repaint the child into black.
*/
func (tree *rbTree[K]) removeNode(z *rbNode[K]) {
	defer func() {
		z.parent, z.left, z.right = nil, nil, nil
		tree.count--
		tree.stats.RecordNodeCount(-1)
	}()

	if /* r1 */ tree.count == 1 && z.isRoot() {
		tree.root = nil
		return
	}

	if /* r2 */ z.left != nil && z.right != nil {
		var y *rbNode[K]
		if tree.isRmBorrowSucc {
			y = z.succ()
		} else {
			y = z.pred()
		}
		tree.exchange(z, y) // enter r3-r4
	}

	var replace *rbNode[K]
	if z.left != nil {
		replace = z.left
	} else {
		replace = z.right
	}

	if /* r4 */ replace != nil {
		switch dir := z.Direction(); dir {
		case Root:
			tree.root = replace
		case Left:
			z.parent.left = replace
		case Right:
			z.parent.right = replace
		default:
			// impossible run to here
			panic( /* debug assertion */ "[rbtree] remove violate (r4)")
		}
		replace.parent = z.parent
		replace.color = Black
		return
	}

	if /* r3 (2) */ z.isBlack() {
		tree.removeRebalance(z)
	}
	switch dir := z.Direction(); dir {
	case Left:
		z.parent.left = nil
	case Right:
		z.parent.right = nil
	default:
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] z should be a leaf node, violate (r3)")
	}
}

/*
<X> is a RED node.
[X] is a BLACK node (or NIL).
{X} is either a RED node or a BLACK node.

Sc is the same direction to X and it X's sibling's child node.
Sd is the opposite direction to X and it X's sibling's child node.

rm1: Current node X's sibling S is red, so the parent P, nephew node Sc and Sd
must be black. (Otherwise, red-violation)
(1) X is left node of P, left rotate P
(2) X is right node of P, right rotate P.
(3) repaint S into black, P into red.

	  [P]                   <S>               [S]
	  / \    l-rotate(P)    / \    repaint    / \
	[X] <S>  ==========>  [P] [D]  ======>  <P> [Sd]
	    / \               / \               / \
	 [Sc] [Sd]          [X] [Sc]          [X] [Sc]

rm2: Current node X's parent P is red, the sibling S, nephew node Sc and Sd
is black.
Repaint S into red and P into black.

	  <P>             [P]
	  / \             / \
	[X] [S]  ====>  [X] <S>
	    / \             / \
	 [Sc] [Sd]       [Sc] [Sd]

rm3: All of current node X's parent P, the sibling S, nephew node Sc and Sd
are black.
Unable to satisfy p3 and p4. We have to paint the S into red to satisfy
p4 locally. Then recursive to handle P.

	  [P]             [P]
	  / \             / \
	[X] [S]  ====>  [X] <S>
	    / \             / \
	 [Sc] [Sd]       [Sc] [Sd]

rm4: Current node X's sibling S is black, nephew node Sc is red and Sd
is black. Ignore X's parent P's color (red or black is okay)
(1) If X is left node of P, right rotate S.
(2) If X is right node of P, left rotate S.
(3) Repaint S into red, Sc into black
Enter into rm5 to fix.

	                        {P}                {P}
	  {P}                   / \                / \
	  / \    r-rotate(S)  [X] <Sc>   repaint  [X] [Sc]
	[X] [S]  ==========>        \    ======>       \
	    / \                     [S]                <S>
	  <Sc> [Sd]                   \                  \
	                              [Sd]               [Sd]

rm5: Current node X's sibling S is black, nephew node Sd is red.
Ignore X's parent P's color (red or black is okay)
(1) If X is left node of P, left rotate P.
(2) If X is right node of P, right rotate P.
(3) Swap P and S's color.
(4) Repaint Sd into black.

	  {P}                   [S]                {S}
	  / \    l-rotate(P)    / \     repaint    / \
	[X] [S]  ==========>  {P} <Sd>  ======>  [P] [Sd]
	    / \               / \                / \
	 [Sc] <Sd>          [X] [Sc]           [X] [Sc]
*/
func (tree *rbTree[K]) removeRebalance(x *rbNode[K]) {
	tree.stats.IncreaseFixupCount(fixupRemove)
	for !x.isRoot() {
		sibling := x.sibling()
		dir := x.Direction()
		if /* rm1 */ sibling.isRed() {
			switch dir {
			case Left:
				tree.leftRotate(x.parent)
			case Right:
				tree.rightRotate(x.parent)
			default:
				// impossible run to here
				panic( /* debug assertion */ "[rbtree] remove violate (rm1)")
			}
			sibling.color = Black
			x.parent.color = Red // ready to enter rm2
			sibling = x.sibling()
		}

		var sc, sd *rbNode[K]
		switch dir {
		case Left:
			sc, sd = sibling.left, sibling.right
		case Right:
			sc, sd = sibling.right, sibling.left
		default:
			// impossible run to here
			panic( /* debug assertion */ "[rbtree] remove violate (rm2)")
		}

		if sc.isBlack() && sd.isBlack() {
			if /* rm2 */ x.parent.isRed() {
				sibling.color = Red
				x.parent.color = Black
				return
			}
			/* rm3 */
			sibling.color = Red
			x = x.parent
			continue
		}

		if /* rm4 */ sd.isBlack() {
			switch dir {
			case Left:
				tree.rightRotate(sibling)
			case Right:
				tree.leftRotate(sibling)
			default:
				// impossible run to here
				panic( /* debug assertion */ "[rbtree] remove violate (rm4)")
			}
			sc.color = Black
			sibling.color = Red
			sd, sibling = sibling, sc
		}

		switch /* rm5 */ dir {
		case Left:
			tree.leftRotate(x.parent)
		case Right:
			tree.rightRotate(x.parent)
		default:
			// impossible run to here
			panic( /* debug assertion */ "[rbtree] remove violate (rm5)")
		}
		sibling.color = x.parent.color
		x.parent.color = Black
		sd.color = Black
		return
	}
}

func (tree *rbTree[K]) DeleteNode(key K) bool {
	if tree.count <= 0 {
		return false
	}
	z := tree.search(key)
	if z == nil {
		tree.logger.Debug("rbtree delete rejected, key not found", zap.Any("key", key))
		return false
	}
	tree.removeNode(z)
	return true
}

func (tree *rbTree[K]) RemoveMin() (key K, ok bool) {
	if tree.count <= 0 {
		return key, false
	}
	_min := tree.root.minimum()
	key = _min.key
	tree.removeNode(_min)
	return key, true
}

// BFS traversal to load all nil leaves.
func (tree *rbTree[K]) GetLeafNodes(out []RBNode[K]) []RBNode[K] {
	if tree.root == nil {
		return out
	}

	queue := make([]*rbNode[K], 0, tree.count>>1+1)
	defer func() {
		clear(queue)
	}()
	queue = append(queue, tree.root)

	for len(queue) > 0 {
		aux := queue[0]
		queue = queue[1:]
		if aux.left == nil {
			out = append(out, nilLeaf[K]{parent: aux})
		} else {
			queue = append(queue, aux.left)
		}
		if aux.right == nil {
			out = append(out, nilLeaf[K]{parent: aux})
		} else {
			queue = append(queue, aux.right)
		}
	}
	return out
}

// Inorder traversal to implement the DFS.
func (tree *rbTree[K]) Foreach(action func(idx int64, color RBColor, key K) bool) {
	size := tree.count
	aux := tree.root
	if size <= 0 || aux == nil {
		return
	}

	stack := make([]*rbNode[K], 0, size>>1+1)
	defer func() {
		clear(stack)
	}()

	for ; aux != nil; aux = aux.left {
		stack = append(stack, aux)
	}

	idx := int64(0)
	for size = int64(len(stack)); size > 0; size = int64(len(stack)) {
		if aux = stack[size-1]; !action(idx, aux.color, aux.key) {
			return
		}
		idx++
		stack = stack[:size-1]
		if aux.right != nil {
			for aux = aux.right; aux != nil; aux = aux.left {
				stack = append(stack, aux)
			}
		}
	}
}

func (tree *rbTree[K]) Release() {
	size := tree.count
	aux := tree.root
	tree.root = nil
	if size <= 0 || aux == nil {
		return
	}

	stack := make([]*rbNode[K], 0, size>>1+1)
	defer func() {
		clear(stack)
	}()

	for ; aux != nil; aux = aux.left {
		stack = append(stack, aux)
	}

	for size = int64(len(stack)); size > 0; size = int64(len(stack)) {
		aux = stack[size-1]
		r := aux.right
		aux.left, aux.right, aux.parent = nil, nil, nil
		stack = stack[:size-1]
		for aux = r; aux != nil; aux = aux.left {
			stack = append(stack, aux)
		}
	}
	tree.stats.RecordNodeCount(-tree.count)
	tree.logger.Debug("rbtree released", zap.Int64("nodes", tree.count))
	tree.count = 0
}

type RBTreeOpt[K infra.OrderedKey] func(*rbTree[K])

func WithRBTreeDesc[K infra.OrderedKey]() RBTreeOpt[K] {
	return func(tree *rbTree[K]) {
		tree.isDesc = true
	}
}

func WithRBTreeRemoveBorrowSucc[K infra.OrderedKey]() RBTreeOpt[K] {
	return func(tree *rbTree[K]) {
		tree.isRmBorrowSucc = true
	}
}

func WithRBTreeLogger[K infra.OrderedKey](logger xlog.XLogger) RBTreeOpt[K] {
	return func(tree *rbTree[K]) {
		if logger != nil {
			tree.logger = logger.Named("rbtree")
		}
	}
}

// WithRBTreeStats enables the otel metrics under the meter
// "xds/rbtree/<name>".
func WithRBTreeStats[K infra.OrderedKey](name string) RBTreeOpt[K] {
	return func(tree *rbTree[K]) {
		tree.statsName = name
		if len(name) == 0 {
			tree.statsName = "default"
		}
	}
}

func NewRBTree[K infra.OrderedKey](opts ...RBTreeOpt[K]) RBTree[K] {
	tree := &rbTree[K]{
		count:          0,
		isDesc:         false,
		isRmBorrowSucc: false,
	}

	for _, o := range opts {
		o(tree)
	}

	tree.compare = infra.AscCompare[K]
	if tree.isDesc {
		tree.compare = infra.DescCompare[K]
	}
	if tree.logger == nil {
		tree.logger = xlog.NewNopXLogger()
	}
	if len(tree.statsName) > 0 {
		tree.stats = newRBTreeStats(tree.statsName)
	}
	return tree
}
