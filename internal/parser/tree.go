package parser

import (
	"errors"
	"fmt"
	"time"
)

// TreeNode is one node of a branching conversation, in source order
type TreeNode struct {
	ID      string
	Parent  string     // empty, or an id not present in the tree, marks a root
	Created *time.Time // nil when the export has no time for this node
}

var errCycle = errors.New("parent links form a cycle")

// Flatten picks one linear path through a conversation tree and returns the
// indices of its nodes from root to leaf.
//
// The leaf with the latest Created time wins. Leaves without a time lose to
// any timed leaf, and ties go to the leaf appearing last in source order.
func Flatten(nodes []TreeNode) ([]int, error) {
	if len(nodes) == 0 {
		return nil, nil
	}

	byID := make(map[string]int, len(nodes))
	for i, n := range nodes {
		if n.ID == "" {
			return nil, fmt.Errorf("node %d has no id", i)
		}
		if _, dup := byID[n.ID]; dup {
			return nil, fmt.Errorf("duplicate node id %q", n.ID)
		}
		byID[n.ID] = i
	}

	hasChild := make([]bool, len(nodes))
	for _, n := range nodes {
		if p, ok := byID[n.Parent]; ok && n.Parent != "" {
			hasChild[p] = true
		}
	}

	leaf := -1
	for i, n := range nodes {
		if hasChild[i] {
			continue
		}
		if leaf == -1 || !newer(nodes[leaf].Created, n.Created) {
			leaf = i
		}
	}
	if leaf == -1 {
		return nil, errCycle
	}

	var path []int
	for cur, steps := leaf, 0; ; steps++ {
		if steps >= len(nodes) {
			return nil, errCycle
		}
		path = append(path, cur)
		parent, ok := byID[nodes[cur].Parent]
		if !ok || nodes[cur].Parent == "" {
			break
		}
		cur = parent
	}

	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, nil
}

// newer reports whether a is strictly more recent than b
func newer(a, b *time.Time) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	default:
		return a.After(*b)
	}
}
