package kv

import (
	"errors"
	"fmt"
)

// ErrWrongPassword is returned by a VaultLoader when the file is a valid
// KDBX container but the credentials do not open it.
var ErrWrongPassword = errors.New("wrong master password")

// ErrCorruptFile is returned by a VaultLoader when the payload is not a
// readable KDBX container.
var ErrCorruptFile = errors.New("file is not a valid KeePass database")

// ErrNoImport is returned when an operation needs a current import and the
// history is empty.
var ErrNoImport = errors.New("no database has been imported yet")

// NetworkError reports a failed fetch. Code is the HTTP status when the
// server answered, or 0 for transport failures.
type NetworkError struct {
	Code int
	Err  error
}

func (e *NetworkError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("download failed with status %d", e.Code)
	}
	if e.Err != nil {
		return fmt.Sprintf("download failed: %v", e.Err)
	}
	return "download failed"
}

func (e *NetworkError) Unwrap() error { return e.Err }

// StorageError reports a failed persistence read or write.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// MalformedVaultError reports a decrypted structure that violates the
// group/entry invariants.
type MalformedVaultError struct {
	Reason string
}

func (e *MalformedVaultError) Error() string {
	return "malformed vault: " + e.Reason
}

// ClipboardError reports a failed clipboard read or write.
type ClipboardError struct {
	Op  string
	Err error
}

func (e *ClipboardError) Error() string {
	return fmt.Sprintf("clipboard %s failed: %v", e.Op, e.Err)
}

func (e *ClipboardError) Unwrap() error { return e.Err }

// UserMessage converts an error from any session operation into the single
// message shown to the user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var netErr *NetworkError
	var storageErr *StorageError
	var malformedErr *MalformedVaultError
	var clipErr *ClipboardError

	switch {
	case errors.Is(err, ErrWrongPassword):
		return "Wrong password."
	case errors.Is(err, ErrCorruptFile):
		return "The file is corrupt or not a KeePass database."
	case errors.Is(err, ErrNoImport):
		return "Import a database first."
	case errors.As(err, &netErr):
		if netErr.Code != 0 {
			return fmt.Sprintf("Download failed (HTTP %d).", netErr.Code)
		}
		if netErr.Err != nil {
			return "Download failed: " + netErr.Err.Error()
		}
		return "Download failed: network unavailable."
	case errors.As(err, &storageErr):
		return "Could not access local storage: " + storageErr.Err.Error()
	case errors.As(err, &malformedErr):
		return "The database structure is invalid: " + malformedErr.Reason
	case errors.As(err, &clipErr):
		return "Clipboard unavailable: " + clipErr.Err.Error()
	default:
		return err.Error()
	}
}
