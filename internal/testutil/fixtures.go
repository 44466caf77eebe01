package testutil

import (
	"bytes"
	"testing"

	gokeepasslib "github.com/tobischo/gokeepasslib/v3"
	w "github.com/tobischo/gokeepasslib/v3/wrappers"

	"kv-go/internal/kv"
)

// SampleVault returns a small tree:
//
//	root
//	  email
//	    gmail (alice / p@ss)
//	  bank (bob / empty secret)
func SampleVault() *kv.RawNode {
	return &kv.RawNode{
		ID: "root", Title: "Root", Kind: kv.KindGroup,
		Children: []*kv.RawNode{
			{
				ID: "email", Title: "Email", Kind: kv.KindGroup,
				Children: []*kv.RawNode{
					{ID: "gmail", Title: "Gmail", Kind: kv.KindEntry, Username: "alice", Secret: "p@ss", URL: "https://mail.google.com"},
				},
			},
			{ID: "bank", Title: "Bank", Kind: kv.KindEntry, Username: "bob"},
		},
	}
}

// SampleKDBX encodes a KDBX file with the same shape as SampleVault, opened
// by password. Node ids are generated UUIDs.
func SampleKDBX(t *testing.T, password string) []byte {
	t.Helper()

	value := func(key, content string, protected bool) gokeepasslib.ValueData {
		v := gokeepasslib.ValueData{Key: key, Value: gokeepasslib.V{Content: content}}
		if protected {
			v.Value.Protected = w.NewBoolWrapper(true)
		}
		return v
	}

	db := gokeepasslib.NewDatabase()
	db.Credentials = gokeepasslib.NewPasswordCredentials(password)

	gmail := gokeepasslib.NewEntry()
	gmail.Values = append(gmail.Values,
		value("Title", "Gmail", false),
		value("UserName", "alice", false),
		value("Password", "p@ss", true),
		value("URL", "https://mail.google.com", false),
	)

	bank := gokeepasslib.NewEntry()
	bank.Values = append(bank.Values,
		value("Title", "Bank", false),
		value("UserName", "bob", false),
		value("Password", "", true),
	)

	email := gokeepasslib.NewGroup()
	email.Name = "Email"
	email.Entries = append(email.Entries, gmail)

	root := gokeepasslib.NewGroup()
	root.Name = "Root"
	root.Groups = append(root.Groups, email)
	root.Entries = append(root.Entries, bank)

	db.Content.Root = &gokeepasslib.RootData{Groups: []gokeepasslib.Group{root}}

	if err := db.LockProtectedEntries(); err != nil {
		t.Fatalf("LockProtectedEntries() error = %v", err)
	}
	var buf bytes.Buffer
	if err := gokeepasslib.NewEncoder(&buf).Encode(db); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	return buf.Bytes()
}
