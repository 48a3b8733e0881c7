package media

import (
	"context"
	"errors"
	"testing"
)

// setupTestStore creates an in-memory catalogue for testing.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := OpenStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_InsertAndFind(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	rec := Record{
		SourceURL: "https://example.com/a.png",
		PostID:    7,
		FileName:  "a-7.png",
		MimeType:  "image/png",
		SizeBytes: 120,
		Alt:       "A",
	}

	id, err := s.InsertAttachment(ctx, rec)
	if err != nil {
		t.Fatalf("InsertAttachment() error = %v", err)
	}
	if id <= 0 {
		t.Fatalf("expected positive id, got %d", id)
	}

	got, err := s.FindAttachment(ctx, rec.SourceURL, rec.PostID)
	if err != nil {
		t.Fatalf("FindAttachment() error = %v", err)
	}
	rec.ID = id
	if got != rec {
		t.Errorf("FindAttachment() = %+v, want %+v", got, rec)
	}

	byID, err := s.Attachment(ctx, id)
	if err != nil {
		t.Fatalf("Attachment() error = %v", err)
	}
	if byID != rec {
		t.Errorf("Attachment() = %+v, want %+v", byID, rec)
	}
}

func TestStore_FindAttachment_ScopedByPost(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	if _, err := s.InsertAttachment(ctx, Record{SourceURL: "https://example.com/a.png", PostID: 1, FileName: "a", MimeType: "image/png"}); err != nil {
		t.Fatalf("InsertAttachment() error = %v", err)
	}

	if _, err := s.FindAttachment(ctx, "https://example.com/a.png", 2); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for another post, got %v", err)
	}
}

func TestStore_InsertAttachment_Duplicate(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	rec := Record{SourceURL: "https://example.com/a.png", PostID: 1, FileName: "a", MimeType: "image/png"}
	if _, err := s.InsertAttachment(ctx, rec); err != nil {
		t.Fatalf("InsertAttachment() error = %v", err)
	}
	if _, err := s.InsertAttachment(ctx, rec); err == nil {
		t.Error("expected unique constraint error on duplicate insert")
	}
}

func TestStore_UpdateAlt(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	id, err := s.InsertAttachment(ctx, Record{SourceURL: "u", PostID: 1, FileName: "a", MimeType: "image/png"})
	if err != nil {
		t.Fatalf("InsertAttachment() error = %v", err)
	}

	if err := s.UpdateAlt(ctx, id, "new alt"); err != nil {
		t.Fatalf("UpdateAlt() error = %v", err)
	}
	got, _ := s.Attachment(ctx, id)
	if got.Alt != "new alt" {
		t.Errorf("Alt = %q, want %q", got.Alt, "new alt")
	}

	if err := s.UpdateAlt(ctx, id+100, "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown id, got %v", err)
	}
}

func TestStore_CountAttachments(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	for _, u := range []string{"a", "b"} {
		if _, err := s.InsertAttachment(ctx, Record{SourceURL: u, PostID: 3, FileName: u, MimeType: "image/png"}); err != nil {
			t.Fatalf("InsertAttachment() error = %v", err)
		}
	}

	n, err := s.CountAttachments(ctx, 3)
	if err != nil {
		t.Fatalf("CountAttachments() error = %v", err)
	}
	if n != 2 {
		t.Errorf("CountAttachments() = %d, want 2", n)
	}
}

func TestStore_MarkDraft(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	if _, err := s.PostStatus(ctx, 5); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound before marking, got %v", err)
	}

	// Marking twice exercises the upsert path.
	for i := 0; i < 2; i++ {
		if err := s.MarkDraft(ctx, 5); err != nil {
			t.Fatalf("MarkDraft() error = %v", err)
		}
	}

	status, err := s.PostStatus(ctx, 5)
	if err != nil {
		t.Fatalf("PostStatus() error = %v", err)
	}
	if status != PostStatusDraft {
		t.Errorf("PostStatus() = %q, want %q", status, PostStatusDraft)
	}
}
