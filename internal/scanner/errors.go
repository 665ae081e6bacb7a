package scanner

import (
	"errors"
	"fmt"
	"os"
	"syscall"
)

// ErrorKind categorizes a scan error
type ErrorKind int

const (
	// KindAccess covers permission-denied and vanished-mid-scan files.
	KindAccess ErrorKind = iota
	// KindDirectory marks a root directory that is missing or unreadable.
	KindDirectory
	// KindHash marks an I/O failure while hashing a file's content.
	KindHash
	// KindCache marks a failure of the persistent hash cache.
	KindCache
	// KindUnknown covers anything else.
	KindUnknown
)

// String returns a human-readable error kind
func (k ErrorKind) String() string {
	switch k {
	case KindAccess:
		return "access denied"
	case KindDirectory:
		return "directory error"
	case KindHash:
		return "hash error"
	case KindCache:
		return "cache error"
	default:
		return "unknown error"
	}
}

// ScanError is a per-file (or per-root) error recorded during a scan.
// Scans accumulate these instead of aborting.
type ScanError struct {
	Path string
	Kind ErrorKind
	Err  error
}

// Error implements the error interface
func (e *ScanError) Error() string {
	return fmt.Sprintf("%s: %s (%v)", e.Path, e.Kind, e.Err)
}

// Unwrap exposes the underlying error for errors.Is/As
func (e *ScanError) Unwrap() error {
	return e.Err
}

// CategorizeError wraps err in a ScanError with the kind inferred from the
// underlying cause.
func CategorizeError(path string, err error) *ScanError {
	if err == nil {
		return nil
	}

	kind := KindUnknown

	if os.IsPermission(err) || os.IsNotExist(err) {
		kind = KindAccess
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.EACCES, syscall.EPERM, syscall.ENOENT:
			kind = KindAccess
		case syscall.EIO:
			kind = KindHash
		}
	}

	return &ScanError{Path: path, Kind: kind, Err: err}
}
