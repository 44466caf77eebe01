package kv_test

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"kv-go/internal/kv"
	"kv-go/internal/testutil"
)

func rowIDs(rows []kv.VisibleRow) []string {
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.Node.ID
	}
	return ids
}

func TestBuildTree(t *testing.T) {
	tree, err := kv.BuildTree(testutil.SampleVault())
	if err != nil {
		t.Fatalf("BuildTree() error = %v", err)
	}

	if tree.Len() != 4 {
		t.Errorf("Len() = %d, want 4", tree.Len())
	}
	if got := tree.CountEntries(); got != 2 {
		t.Errorf("CountEntries() = %d, want 2", got)
	}
	if tree.Root().ID != "root" {
		t.Errorf("Root().ID = %q, want %q", tree.Root().ID, "root")
	}

	gmail, ok := tree.Find("gmail")
	if !ok {
		t.Fatal("Find(gmail) not found")
	}
	if gmail.IsGroup() || gmail.Username != "alice" || gmail.Secret != "p@ss" {
		t.Errorf("Find(gmail) = %+v", gmail)
	}
	if _, ok := tree.Find("missing"); ok {
		t.Error("Find(missing) expected not found")
	}

	if got, want := tree.Path("gmail"), []string{"Root", "Email", "Gmail"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Path(gmail) = %v, want %v", got, want)
	}
	if got := tree.Path("missing"); got != nil {
		t.Errorf("Path(missing) = %v, want nil", got)
	}

	var titles []string
	for _, c := range tree.Children(tree.Root()) {
		titles = append(titles, c.Title)
	}
	if want := []string{"Email", "Bank"}; !reflect.DeepEqual(titles, want) {
		t.Errorf("Children(root) = %v, want %v", titles, want)
	}
}

func TestBuildTree_Malformed(t *testing.T) {
	tests := []struct {
		name string
		root *kv.RawNode
	}{
		{"nil root", nil},
		{"entry root", &kv.RawNode{ID: "e", Kind: kv.KindEntry}},
		{"missing id", &kv.RawNode{ID: "r", Kind: kv.KindGroup, Children: []*kv.RawNode{
			{Title: "anonymous", Kind: kv.KindEntry},
		}}},
		{"duplicate id", &kv.RawNode{ID: "r", Kind: kv.KindGroup, Children: []*kv.RawNode{
			{ID: "x", Kind: kv.KindEntry},
			{ID: "x", Kind: kv.KindEntry},
		}}},
		{"entry with children", &kv.RawNode{ID: "r", Kind: kv.KindGroup, Children: []*kv.RawNode{
			{ID: "e", Kind: kv.KindEntry, Children: []*kv.RawNode{{ID: "c", Kind: kv.KindEntry}}},
		}}},
		{"nil child", &kv.RawNode{ID: "r", Kind: kv.KindGroup, Children: []*kv.RawNode{nil}}},
		{"unknown kind", &kv.RawNode{ID: "r", Kind: kv.KindGroup, Children: []*kv.RawNode{
			{ID: "x", Kind: kv.NodeKind(7)},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := kv.BuildTree(tt.root)
			var malformed *kv.MalformedVaultError
			if !errors.As(err, &malformed) {
				t.Errorf("BuildTree() error = %v, want *MalformedVaultError", err)
			}
		})
	}
}

func group(id string, children ...*kv.RawNode) *kv.RawNode {
	return &kv.RawNode{ID: id, Title: id, Kind: kv.KindGroup, Children: children}
}

func entry(id string) *kv.RawNode {
	return &kv.RawNode{ID: id, Title: id, Kind: kv.KindEntry, Secret: "s-" + id}
}

// countRawEntries counts entries of the loader output recursively.
func countRawEntries(n *kv.RawNode) int {
	if n.Kind == kv.KindEntry {
		return 1
	}
	count := 0
	for _, c := range n.Children {
		count += countRawEntries(c)
	}
	return count
}

// generatedVault builds groups nested depth levels deep, each holding
// fanout subgroups and one entry per level index, plus an empty group.
func generatedVault(depth, fanout int) *kv.RawNode {
	next := 0
	id := func(prefix string) string {
		next++
		return fmt.Sprintf("%s-%d", prefix, next)
	}
	var build func(level int) *kv.RawNode
	build = func(level int) *kv.RawNode {
		g := group(id("g"))
		g.Children = append(g.Children, group(id("empty")))
		for i := 0; i < level; i++ {
			g.Children = append(g.Children, entry(id("e")))
		}
		if level < depth {
			for i := 0; i < fanout; i++ {
				g.Children = append(g.Children, build(level+1))
			}
		}
		return g
	}
	return build(0)
}

func TestTree_CountEntries(t *testing.T) {
	tests := []struct {
		name string
		root *kv.RawNode
		want int
	}{
		{name: "empty root", root: group("r"), want: 0},
		{name: "sample vault", root: testutil.SampleVault(), want: 2},
		{name: "entries only", root: group("r", entry("a"), entry("b"), entry("c")), want: 3},
		{name: "groups without entries", root: group("r", group("a", group("b")), group("c")), want: 0},
		{name: "nested chain", root: group("r",
			group("a", entry("a1"), group("b", group("c", entry("c1"), entry("c2")))),
			entry("r1"),
		), want: 4},
		{name: "generated", root: generatedVault(4, 3), want: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, err := kv.BuildTree(tt.root)
			if err != nil {
				t.Fatalf("BuildTree() error = %v", err)
			}
			want := countRawEntries(tt.root)
			if tt.want >= 0 && want != tt.want {
				t.Fatalf("countRawEntries() = %d, want %d", want, tt.want)
			}
			if got := tree.CountEntries(); got != want {
				t.Errorf("CountEntries() = %d, want %d", got, want)
			}
			if got := tree.CountEntries(); got != want {
				t.Errorf("second CountEntries() = %d, want %d", got, want)
			}
		})
	}
}

func TestTree_Visible(t *testing.T) {
	tree, err := kv.BuildTree(testutil.SampleVault())
	if err != nil {
		t.Fatalf("BuildTree() error = %v", err)
	}

	rows := tree.Visible(kv.DefaultViewState(tree))
	if got, want := rowIDs(rows), []string{"root", "email", "bank"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Visible(default) = %v, want %v", got, want)
	}
	if !rows[0].Expanded || rows[1].Expanded {
		t.Errorf("Visible(default) expanded flags = %v, %v", rows[0].Expanded, rows[1].Expanded)
	}

	rows = tree.Visible(kv.DefaultViewState(tree).Toggle("email"))
	if got, want := rowIDs(rows), []string{"root", "email", "gmail", "bank"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Visible(email expanded) = %v, want %v", got, want)
	}
	depths := []int{rows[0].Depth, rows[1].Depth, rows[2].Depth, rows[3].Depth}
	if want := []int{0, 1, 2, 1}; !reflect.DeepEqual(depths, want) {
		t.Errorf("Visible depths = %v, want %v", depths, want)
	}

	rows = tree.Visible(kv.ViewState{})
	if got, want := rowIDs(rows), []string{"root"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Visible(empty) = %v, want %v", got, want)
	}
}
