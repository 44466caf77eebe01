package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"kv-go/internal/kv"
)

const timeLayout = "2006-01-02 15:04:05"

// readPassword prompts on stderr and reads without echo. When stdin is not a
// terminal it reads one line, so scripts can pipe the password in.
func readPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && err != io.EOF {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(b), nil
}

func formatImport(rec *kv.ImportRecord, current bool) string {
	line := fmt.Sprintf("#%d  %s  %-24s  %8d", rec.ID, rec.ImportedAt.Local().Format(timeLayout), rec.OriginalName, rec.Size)
	if rec.SourceURL != "" {
		line += "  " + rec.SourceURL
	}
	if current {
		line += "  [current]"
	}
	return line
}

// printTree writes the whole tree indented by depth, with masked secrets.
func printTree(w io.Writer, tree *kv.Tree) {
	var walk func(n *kv.Node, depth int)
	walk = func(n *kv.Node, depth int) {
		indent := strings.Repeat("  ", depth)
		if n.IsGroup() {
			fmt.Fprintf(w, "%s%s/\n", indent, n.Title)
			for _, c := range tree.Children(n) {
				walk(c, depth+1)
			}
			return
		}
		fmt.Fprintf(w, "%s%s  %s  %s  [%s]\n", indent, n.Title, n.Username, kv.MaskSecret(n.Secret), n.ID)
	}
	walk(tree.Root(), 0)
}

// printPaths writes one line per entry: path, username, masked secret, id.
func printPaths(w io.Writer, tree *kv.Tree) {
	var walk func(n *kv.Node)
	walk = func(n *kv.Node) {
		if n.IsGroup() {
			for _, c := range tree.Children(n) {
				walk(c)
			}
			return
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", strings.Join(tree.Path(n.ID), "/"), n.Username, kv.MaskSecret(n.Secret), n.ID)
	}
	walk(tree.Root())
}

// findEntry resolves ref as an entry id, or as a title path with or without
// the root group, such as "Email/Gmail".
func findEntry(tree *kv.Tree, ref string) (*kv.Node, error) {
	if tree == nil {
		return nil, kv.ErrLocked
	}
	if n, ok := tree.Find(ref); ok {
		if n.IsGroup() {
			return nil, fmt.Errorf("%s is a group, not an entry", n.Title)
		}
		return n, nil
	}

	want := strings.Trim(ref, "/")
	var matches []*kv.Node
	var walk func(n *kv.Node)
	walk = func(n *kv.Node) {
		if n.IsGroup() {
			for _, c := range tree.Children(n) {
				walk(c)
			}
			return
		}
		path := tree.Path(n.ID)
		full := strings.Join(path, "/")
		rel := strings.Join(path[1:], "/")
		if full == want || rel == want {
			matches = append(matches, n)
		}
	}
	walk(tree.Root())

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("no entry matches %q", ref)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("%d entries match %q; use the entry id from `kv show`", len(matches), ref)
	}
}
