package blob

import (
	"context"
	"errors"
	"testing"
)

func TestFilesystemStore_RoundTrip(t *testing.T) {
	root := t.TempDir()
	bs, err := NewFilesystem(root)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()

	info, err := bs.Write(ctx, "logs/alice/log.xlsx", []byte("abc"), WriteOptions{ContentType: "application/octet-stream"})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if info.Version != "1" || info.Size != 3 {
		t.Fatalf("info %#v", info)
	}
	data, got, err := bs.Read(ctx, "logs/alice/log.xlsx")
	if err != nil || string(data) != "abc" {
		t.Fatalf("read: %q %v", data, err)
	}
	if got.ContentType != "application/octet-stream" {
		t.Fatalf("content type %q", got.ContentType)
	}
	ok, err := bs.Exists(ctx, "logs/alice/log.xlsx")
	if err != nil || !ok {
		t.Fatalf("exists: %v %v", ok, err)
	}
}

func TestFilesystemStore_ConditionalWrites(t *testing.T) {
	bs, err := NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()

	if _, err := bs.Write(ctx, "k", []byte("v1"), WriteOptions{ExpectedVersion: CondVersion("")}); err != nil {
		t.Fatalf("create-only: %v", err)
	}
	if _, err := bs.Write(ctx, "k", []byte("v2"), WriteOptions{ExpectedVersion: CondVersion("")}); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected create-only conflict, got %v", err)
	}
	if _, err := bs.Write(ctx, "k", []byte("v2"), WriteOptions{ExpectedVersion: CondVersion("1")}); err != nil {
		t.Fatalf("matching version: %v", err)
	}
	if _, err := bs.Write(ctx, "k", []byte("v3"), WriteOptions{ExpectedVersion: CondVersion("1")}); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected stale conflict, got %v", err)
	}
	data, info, err := bs.Read(ctx, "k")
	if err != nil || string(data) != "v2" || info.Version != "2" {
		t.Fatalf("read after conflicts: %q %#v %v", data, info, err)
	}
}

func TestFilesystemStore_KeySanitization(t *testing.T) {
	bs, err := NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()
	for _, key := range []string{"", "  ", "../escape", "/abs", "a/../../b"} {
		if _, err := bs.Write(ctx, key, []byte("x"), WriteOptions{}); err == nil {
			t.Fatalf("expected rejection for key %q", key)
		}
	}
}
