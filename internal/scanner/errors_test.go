package scanner

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"syscall"
	"testing"
)

func TestCategorizeError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorKind
	}{
		{"permission denied", &fs.PathError{Op: "open", Path: "/x", Err: syscall.EACCES}, KindAccess},
		{"operation not permitted", &fs.PathError{Op: "open", Path: "/x", Err: syscall.EPERM}, KindAccess},
		{"not exist", &fs.PathError{Op: "stat", Path: "/x", Err: syscall.ENOENT}, KindAccess},
		{"io error", &fs.PathError{Op: "read", Path: "/x", Err: syscall.EIO}, KindHash},
		{"plain error", errors.New("something odd"), KindUnknown},
		{"wrapped errno", fmt.Errorf("walk: %w", syscall.EACCES), KindAccess},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			se := CategorizeError("/some/path", tt.err)
			if se.Kind != tt.expected {
				t.Errorf("kind = %v, want %v", se.Kind, tt.expected)
			}
			if se.Path != "/some/path" {
				t.Errorf("path = %q", se.Path)
			}
		})
	}
}

func TestCategorizeErrorNil(t *testing.T) {
	if se := CategorizeError("/p", nil); se != nil {
		t.Errorf("expected nil for nil error, got %v", se)
	}
}

func TestScanErrorUnwrap(t *testing.T) {
	cause := syscall.EACCES
	se := CategorizeError("/p", &fs.PathError{Op: "open", Path: "/p", Err: cause})

	if !errors.Is(se, syscall.EACCES) {
		t.Error("errors.Is should reach the underlying errno")
	}
	if !strings.Contains(se.Error(), "/p") || !strings.Contains(se.Error(), "access denied") {
		t.Errorf("Error() = %q, want path and kind", se.Error())
	}
}

func TestErrorKindString(t *testing.T) {
	kinds := map[ErrorKind]string{
		KindAccess:    "access denied",
		KindDirectory: "directory error",
		KindHash:      "hash error",
		KindCache:     "cache error",
		KindUnknown:   "unknown error",
	}
	for kind, want := range kinds {
		if kind.String() != want {
			t.Errorf("%d.String() = %q, want %q", kind, kind.String(), want)
		}
	}
}
