package kv

import iradix "github.com/hashicorp/go-immutable-radix/v2"

// ViewState is the immutable set of expanded group ids. Toggle returns a new
// state sharing structure with the old one, so both stay valid and the cost
// depends only on the id length, not on the size of the tree or the set.
// The zero value is an empty set.
type ViewState struct {
	set *iradix.Tree[struct{}]
}

// NewViewState returns a state with the given ids expanded.
func NewViewState(ids ...string) ViewState {
	txn := iradix.New[struct{}]().Txn()
	for _, id := range ids {
		txn.Insert([]byte(id), struct{}{})
	}
	return ViewState{set: txn.Commit()}
}

// DefaultViewState is the state of a freshly loaded tree: only the root is
// expanded.
func DefaultViewState(t *Tree) ViewState {
	return NewViewState(t.Root().ID)
}

// IsExpanded reports whether id is in the set.
func (s ViewState) IsExpanded(id string) bool {
	if s.set == nil {
		return false
	}
	_, ok := s.set.Get([]byte(id))
	return ok
}

// Toggle removes id if present and adds it otherwise. No other membership
// changes.
func (s ViewState) Toggle(id string) ViewState {
	set := s.set
	if set == nil {
		set = iradix.New[struct{}]()
	}
	key := []byte(id)
	if _, ok := set.Get(key); ok {
		next, _, _ := set.Delete(key)
		return ViewState{set: next}
	}
	next, _, _ := set.Insert(key, struct{}{})
	return ViewState{set: next}
}

// Len returns the number of expanded ids.
func (s ViewState) Len() int {
	if s.set == nil {
		return 0
	}
	return s.set.Len()
}

// IDs returns the expanded ids in lexical order.
func (s ViewState) IDs() []string {
	if s.set == nil {
		return nil
	}
	ids := make([]string, 0, s.set.Len())
	s.set.Root().Walk(func(k []byte, _ struct{}) bool {
		ids = append(ids, string(k))
		return false
	})
	return ids
}

// Equal reports whether both states contain exactly the same ids.
func (s ViewState) Equal(other ViewState) bool {
	if s.Len() != other.Len() {
		return false
	}
	for _, id := range s.IDs() {
		if !other.IsExpanded(id) {
			return false
		}
	}
	return true
}
