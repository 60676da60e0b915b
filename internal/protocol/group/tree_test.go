package group

import (
	"sort"
	"testing"
)

func TestBuildTree_LeavesInOrder(t *testing.T) {
	for n := 1; n <= 9; n++ {
		got := buildTree(0, n).leaves(nil)
		if len(got) != n {
			t.Fatalf("n=%d: %d leaves", n, len(got))
		}
		for i, leaf := range got {
			if leaf != i {
				t.Fatalf("n=%d: leaves out of order: %v", n, got)
			}
		}
	}
}

func TestCopathLeaves_UnionIsEveryoneElse(t *testing.T) {
	for n := 2; n <= 9; n++ {
		for leaf := 0; leaf < n; leaf++ {
			var union []int
			for _, level := range copathLeaves(n, leaf) {
				union = append(union, level...)
			}
			sort.Ints(union)
			if len(union) != n-1 {
				t.Fatalf("n=%d leaf=%d: union size %d", n, leaf, len(union))
			}
			want := 0
			for _, l := range union {
				if want == leaf {
					want++
				}
				if l != want {
					t.Fatalf("n=%d leaf=%d: union %v", n, leaf, union)
				}
				want++
			}
		}
	}
}

func TestCopathLeaves_SingleLeaf(t *testing.T) {
	if got := copathLeaves(1, 0); got != nil {
		t.Fatalf("single leaf copath: %v", got)
	}
}

func TestCopathLeaves_DepthIsLogarithmic(t *testing.T) {
	// A balanced 8-leaf tree has exactly 3 levels above every leaf.
	for leaf := 0; leaf < 8; leaf++ {
		if got := len(copathLeaves(8, leaf)); got != 3 {
			t.Fatalf("leaf %d: %d levels, want 3", leaf, got)
		}
	}
	// Level sizes from the leaf up: sibling first, larger subtrees later.
	levels := copathLeaves(8, 0)
	for i, want := range []int{1, 2, 4} {
		if len(levels[i]) != want {
			t.Fatalf("level %d has %d leaves, want %d", i, len(levels[i]), want)
		}
	}
}
