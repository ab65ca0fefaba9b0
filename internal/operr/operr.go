// Package operr defines the error taxonomy shared by the file-state engine.
// Mutating components wrap one of the sentinel errors in an Error carrying
// enough identity (mod, world, file) for the caller to render a specific
// message. Discovery never returns these; absence is encoded in the result.
package operr

import (
	"errors"
	"fmt"
)

var (
	// ErrPathNotFound indicates a required file or directory is absent.
	ErrPathNotFound = errors.New("path not found")
	// ErrNameCollision indicates the destination is already occupied.
	ErrNameCollision = errors.New("name collision at destination")
	// ErrPartialFileSet indicates a mod's .pak/.ucas/.utoc set is incomplete
	// at the source. The operation is rejected whole.
	ErrPartialFileSet = errors.New("incomplete mod file set")
	// ErrIOFailure covers permission, lock and disk errors.
	ErrIOFailure = errors.New("i/o failure")
	// ErrIntegrityCheckFailed indicates post-copy or pre-restore verification
	// found a size mismatch, an empty file or an unreadable file.
	ErrIntegrityCheckFailed = errors.New("integrity check failed")
	// ErrConfigInvalid indicates no valid installation or save root resolved.
	ErrConfigInvalid = errors.New("configuration invalid")
)

// Error attaches operation context to a sentinel error.
type Error struct {
	// Op is the operation that failed, e.g. "install" or "restore".
	Op string
	// Subject identifies what the operation was acting on: a mod base name,
	// a world id, or a backup timestamp.
	Subject string
	// Path is the file or directory involved, when one is known.
	Path string
	// Err is one of the package sentinels, optionally wrapping a cause.
	Err error
}

func (e *Error) Error() string {
	switch {
	case e.Subject != "" && e.Path != "":
		return fmt.Sprintf("%s %s: %s: %v", e.Op, e.Subject, e.Path, e.Err)
	case e.Subject != "":
		return fmt.Sprintf("%s %s: %v", e.Op, e.Subject, e.Err)
	case e.Path != "":
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Path, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds an Error wrapping sentinel. cause may be nil.
func New(op, subject, path string, sentinel, cause error) *Error {
	err := sentinel
	if cause != nil {
		err = fmt.Errorf("%w: %w", sentinel, cause)
	}
	return &Error{Op: op, Subject: subject, Path: path, Err: err}
}
