package kv

import "fmt"

// NodeKind distinguishes containers from leaves in a vault tree.
type NodeKind int

const (
	KindGroup NodeKind = iota
	KindEntry
)

func (k NodeKind) String() string {
	switch k {
	case KindGroup:
		return "group"
	case KindEntry:
		return "entry"
	default:
		return fmt.Sprintf("NodeKind(%d)", int(k))
	}
}

// RawNode is the decrypted structure handed over by a VaultLoader.
// It is a plain recursive value with no invariants enforced; BuildTree
// validates it.
type RawNode struct {
	ID       string
	Title    string
	Kind     NodeKind
	Children []*RawNode

	Username string
	Secret   string
	Notes    string
	URL      string
}

// Node is one element of a Tree. Children and Parent are indices into the
// tree's arena, so nodes hold no pointers to each other.
type Node struct {
	ID       string
	Title    string
	Kind     NodeKind
	Children []int
	Parent   int // -1 for the root

	Username string
	Secret   string
	Notes    string
	URL      string
}

// IsGroup reports whether the node is a container.
func (n *Node) IsGroup() bool { return n.Kind == KindGroup }

// Tree is an immutable vault tree stored as an arena of nodes addressed by
// id. Index 0 is the root. A Tree is safe for concurrent readers.
type Tree struct {
	nodes []Node
	byID  map[string]int
}

// BuildTree converts the loader's output into an immutable Tree.
// It fails with *MalformedVaultError when the structure violates the
// group/entry invariants.
func BuildTree(root *RawNode) (*Tree, error) {
	if root == nil {
		return nil, &MalformedVaultError{Reason: "vault has no root group"}
	}
	if root.Kind != KindGroup {
		return nil, &MalformedVaultError{Reason: fmt.Sprintf("root %q is not a group", root.ID)}
	}

	t := &Tree{byID: make(map[string]int)}
	if _, err := t.add(root, -1); err != nil {
		return nil, err
	}
	return t, nil
}

// add appends raw and its subtree in pre-order and returns raw's index.
func (t *Tree) add(raw *RawNode, parent int) (int, error) {
	if raw == nil {
		return 0, &MalformedVaultError{Reason: "nil node in group"}
	}
	if raw.ID == "" {
		return 0, &MalformedVaultError{Reason: fmt.Sprintf("node %q has no id", raw.Title)}
	}
	if _, dup := t.byID[raw.ID]; dup {
		return 0, &MalformedVaultError{Reason: fmt.Sprintf("duplicate node id %s", raw.ID)}
	}
	switch raw.Kind {
	case KindGroup:
	case KindEntry:
		if len(raw.Children) > 0 {
			return 0, &MalformedVaultError{Reason: fmt.Sprintf("entry %s has children", raw.ID)}
		}
	default:
		return 0, &MalformedVaultError{Reason: fmt.Sprintf("node %s has unknown kind %d", raw.ID, raw.Kind)}
	}

	idx := len(t.nodes)
	t.nodes = append(t.nodes, Node{
		ID:       raw.ID,
		Title:    raw.Title,
		Kind:     raw.Kind,
		Parent:   parent,
		Username: raw.Username,
		Secret:   raw.Secret,
		Notes:    raw.Notes,
		URL:      raw.URL,
	})
	t.byID[raw.ID] = idx

	if raw.Kind == KindEntry {
		return idx, nil
	}

	children := make([]int, 0, len(raw.Children))
	for _, child := range raw.Children {
		ci, err := t.add(child, idx)
		if err != nil {
			return 0, err
		}
		children = append(children, ci)
	}
	// t.nodes may have been reallocated while adding children.
	t.nodes[idx].Children = children
	return idx, nil
}

// Root returns the root group.
func (t *Tree) Root() *Node { return &t.nodes[0] }

// Len returns the total number of nodes.
func (t *Tree) Len() int { return len(t.nodes) }

// Find returns the node with the given id.
func (t *Tree) Find(id string) (*Node, bool) {
	idx, ok := t.byID[id]
	if !ok {
		return nil, false
	}
	return &t.nodes[idx], true
}

// Children returns the children of n in source order.
func (t *Tree) Children(n *Node) []*Node {
	out := make([]*Node, len(n.Children))
	for i, ci := range n.Children {
		out[i] = &t.nodes[ci]
	}
	return out
}

// Path returns the titles from the root down to the node with the given id.
func (t *Tree) Path(id string) []string {
	idx, ok := t.byID[id]
	if !ok {
		return nil
	}
	var rev []string
	for idx >= 0 {
		rev = append(rev, t.nodes[idx].Title)
		idx = t.nodes[idx].Parent
	}
	path := make([]string, len(rev))
	for i := range rev {
		path[i] = rev[len(rev)-1-i]
	}
	return path
}

// CountEntries returns the number of entry nodes, visiting every node once
// depth-first. Groups are not counted.
func (t *Tree) CountEntries() int {
	count := 0
	stack := []int{0}
	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := &t.nodes[idx]
		if n.Kind == KindEntry {
			count++
			continue
		}
		stack = append(stack, n.Children...)
	}
	return count
}

// VisibleRow is one line of the flattened, expansion-aware tree.
type VisibleRow struct {
	Node     *Node
	Depth    int
	Expanded bool
}

// Visible flattens the tree in display order. Children of a group are
// included only when the group is expanded in state.
func (t *Tree) Visible(state ViewState) []VisibleRow {
	var rows []VisibleRow
	var walk func(idx, depth int)
	walk = func(idx, depth int) {
		n := &t.nodes[idx]
		expanded := n.Kind == KindGroup && state.IsExpanded(n.ID)
		rows = append(rows, VisibleRow{Node: n, Depth: depth, Expanded: expanded})
		if !expanded {
			return
		}
		for _, ci := range n.Children {
			walk(ci, depth+1)
		}
	}
	walk(0, 0)
	return rows
}
