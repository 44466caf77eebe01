// Package keepass decodes KDBX databases into the kv tree model.
package keepass

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	gokeepasslib "github.com/tobischo/gokeepasslib/v3"

	"kv-go/internal/kv"
)

// KDBX file signatures, little-endian at offsets 0 and 4.
const (
	baseSignature    uint32 = 0x9AA2D903
	versionSignature uint32 = 0xB54BFB67
)

// syntheticRootID identifies the root group made up when a file has more
// than one top-level group.
const syntheticRootID = "root"

// Loader implements kv.VaultLoader with gokeepasslib.
type Loader struct {
	logger kv.Logger
}

var _ kv.VaultLoader = (*Loader)(nil)

// NewLoader creates a Loader.
func NewLoader(logger kv.Logger) *Loader {
	return &Loader{logger: logger}
}

// Decrypt decodes data with password. A file without the KDBX signature, or
// one that ends early or breaks the decoder, is kv.ErrCorruptFile; any other
// decode failure is kv.ErrWrongPassword. If ctx ends first, the decode keeps
// running in the background and its result is dropped.
func (l *Loader) Decrypt(ctx context.Context, data []byte, password string) (*kv.RawNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !hasSignature(data) {
		return nil, kv.ErrCorruptFile
	}

	type result struct {
		root *kv.RawNode
		err  error
	}
	done := make(chan result, 1)
	go func() {
		root, err := l.decode(data, password)
		done <- result{root, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		return r.root, r.err
	}
}

// decode runs gokeepasslib. The decoder slices and decrypts the body without
// checking lengths, so a truncated file can panic; that is reported as
// kv.ErrCorruptFile.
func (l *Loader) decode(data []byte, password string) (root *kv.RawNode, err error) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Warn("kdbx decoder panicked", "panic", fmt.Sprint(r))
			root, err = nil, fmt.Errorf("decoding: %v: %w", r, kv.ErrCorruptFile)
		}
	}()

	db := gokeepasslib.NewDatabase()
	db.Credentials = gokeepasslib.NewPasswordCredentials(password)

	if err := gokeepasslib.NewDecoder(bytes.NewReader(data)).Decode(db); err != nil {
		l.logger.Debug("kdbx decode failed", "error", err)
		return nil, classifyDecodeError(err)
	}
	if err := db.UnlockProtectedEntries(); err != nil {
		return nil, fmt.Errorf("unlocking protected values: %w", kv.ErrCorruptFile)
	}
	if db.Content == nil || db.Content.Root == nil {
		return nil, kv.ErrCorruptFile
	}

	return convertRoot(db.Content.Root.Groups), nil
}

// classifyDecodeError tells a damaged file from a bad credential. The decoder
// returns the reader's io.EOF or io.ErrUnexpectedEOF when the header or body
// is cut short; key mismatches show up as integrity or HMAC failures.
func classifyDecodeError(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("reading kdbx: %v: %w", err, kv.ErrCorruptFile)
	}
	return kv.ErrWrongPassword
}

func hasSignature(data []byte) bool {
	if len(data) < 8 {
		return false
	}
	return binary.LittleEndian.Uint32(data[0:4]) == baseSignature &&
		binary.LittleEndian.Uint32(data[4:8]) == versionSignature
}

// convertRoot maps the top-level groups. KeePass files normally have exactly
// one; otherwise they are gathered under a synthetic root.
func convertRoot(groups []gokeepasslib.Group) *kv.RawNode {
	if len(groups) == 1 {
		return convertGroup(&groups[0])
	}
	root := &kv.RawNode{ID: syntheticRootID, Title: "Root", Kind: kv.KindGroup}
	for i := range groups {
		root.Children = append(root.Children, convertGroup(&groups[i]))
	}
	return root
}

// convertGroup lists subgroups before entries, the order KeePass shows them.
func convertGroup(g *gokeepasslib.Group) *kv.RawNode {
	node := &kv.RawNode{
		ID:       uuid.UUID(g.UUID).String(),
		Title:    g.Name,
		Kind:     kv.KindGroup,
		Children: make([]*kv.RawNode, 0, len(g.Groups)+len(g.Entries)),
	}
	for i := range g.Groups {
		node.Children = append(node.Children, convertGroup(&g.Groups[i]))
	}
	for i := range g.Entries {
		node.Children = append(node.Children, convertEntry(&g.Entries[i]))
	}
	return node
}

func convertEntry(e *gokeepasslib.Entry) *kv.RawNode {
	return &kv.RawNode{
		ID:       uuid.UUID(e.UUID).String(),
		Title:    e.GetTitle(),
		Kind:     kv.KindEntry,
		Username: e.GetContent("UserName"),
		Secret:   e.GetPassword(),
		Notes:    e.GetContent("Notes"),
		URL:      e.GetContent("URL"),
	}
}
