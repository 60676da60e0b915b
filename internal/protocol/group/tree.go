package group

// The member list is arranged as a left-balanced binary tree: leaves are
// members in list order and each internal node splits its span at the
// largest power of two below the span size. The tree carries no key
// material of its own; it decides which members receive which sealed path
// secret, so members nearer the committer learn deeper path secrets and a
// commit updates every node from the committer's leaf to the root.

type treeNode struct {
	leaf  int // leaf index, or -1 for internal nodes
	left  *treeNode
	right *treeNode
}

// buildTree returns the shape for n leaves over the span [lo, lo+n).
func buildTree(lo, n int) *treeNode {
	if n == 1 {
		return &treeNode{leaf: lo}
	}
	split := 1
	for split*2 < n {
		split *= 2
	}
	return &treeNode{
		leaf:  -1,
		left:  buildTree(lo, split),
		right: buildTree(lo+split, n-split),
	}
}

func (t *treeNode) leaves(out []int) []int {
	if t.leaf >= 0 {
		return append(out, t.leaf)
	}
	return t.right.leaves(t.left.leaves(out))
}

func (t *treeNode) contains(leaf int) bool {
	if t.leaf >= 0 {
		return t.leaf == leaf
	}
	return t.left.contains(leaf) || t.right.contains(leaf)
}

// copathLeaves lists, bottom-up for each level of the path from leaf to the
// root, the leaf indices of the sibling subtree at that level. Their union
// is every leaf except the given one.
func copathLeaves(n, leaf int) [][]int {
	if n <= 1 {
		return nil
	}
	var path [][]int
	node := buildTree(0, n)
	for node.leaf < 0 {
		if node.left.contains(leaf) {
			path = append(path, node.right.leaves(nil))
			node = node.left
		} else {
			path = append(path, node.left.leaves(nil))
			node = node.right
		}
	}
	// Collected root-down; the path secrets chain leaf-up.
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
