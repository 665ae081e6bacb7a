package hasher

import (
	"bytes"
	"context"
	"testing"

	"github.com/BurtHarris/dupescan/internal/testutil"
)

func TestHashFileIdenticalContent(t *testing.T) {
	f := testutil.NewFixture(t)
	content := []byte("the same bytes in both files")
	a := f.CreateFile("a.dat", content)
	b := f.CreateFile("sub/b.dat", content)

	h := New()
	ctx := context.Background()

	hashA, err := h.HashFile(ctx, a)
	if err != nil {
		t.Fatalf("HashFile(a) failed: %v", err)
	}
	hashB, err := h.HashFile(ctx, b)
	if err != nil {
		t.Fatalf("HashFile(b) failed: %v", err)
	}

	if hashA != hashB {
		t.Errorf("identical content produced different digests: %s vs %s", hashA, hashB)
	}
}

func TestHashFileDifferentContent(t *testing.T) {
	f := testutil.NewFixture(t)
	a := f.CreateFile("a.dat", []byte("content one"))
	b := f.CreateFile("b.dat", []byte("content two"))

	h := New()
	hashA, _ := h.HashFile(context.Background(), a)
	hashB, _ := h.HashFile(context.Background(), b)

	if hashA == hashB {
		t.Errorf("different content produced the same digest: %s", hashA)
	}
}

func TestHashFileEmptyFile(t *testing.T) {
	f := testutil.NewFixture(t)
	path := f.CreateFile("empty.dat", nil)

	digest, err := New().HashFile(context.Background(), path)
	if err != nil {
		t.Fatalf("HashFile failed: %v", err)
	}
	if len(digest) != 16 {
		t.Errorf("digest = %q, want 16 hex characters", digest)
	}
}

func TestHashFileLargerThanChunk(t *testing.T) {
	f := testutil.NewFixture(t)

	// Spans several chunks with a ragged tail.
	content := bytes.Repeat([]byte("0123456789abcdef"), ChunkSize/4)
	content = append(content, []byte("tail")...)
	a := f.CreateFile("big_a.dat", content)
	b := f.CreateFile("big_b.dat", content)

	h := New()
	hashA, err := h.HashFile(context.Background(), a)
	if err != nil {
		t.Fatalf("HashFile failed: %v", err)
	}
	hashB, _ := h.HashFile(context.Background(), b)
	if hashA != hashB {
		t.Error("multi-chunk files with identical content must match")
	}

	// A single-byte change anywhere must change the digest.
	content[len(content)/2] ^= 0xff
	c := f.CreateFile("big_c.dat", content)
	hashC, _ := h.HashFile(context.Background(), c)
	if hashC == hashA {
		t.Error("flipped byte did not change the digest")
	}
}

func TestHashFileDeterministic(t *testing.T) {
	f := testutil.NewFixture(t)
	path := f.CreateRandomFile("random.dat", 4096)

	h := New()
	first, err := h.HashFile(context.Background(), path)
	if err != nil {
		t.Fatalf("HashFile failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		again, _ := h.HashFile(context.Background(), path)
		if again != first {
			t.Fatalf("digest changed across runs: %s vs %s", first, again)
		}
	}
}

func TestHashFileMissing(t *testing.T) {
	_, err := New().HashFile(context.Background(), "/nonexistent/file.dat")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestHashFileCancelled(t *testing.T) {
	f := testutil.NewFixture(t)
	path := f.CreateRandomFile("some.dat", 2*ChunkSize)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := New().HashFile(ctx, path); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
