package service

import (
	"context"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/clipvibe/api/internal/client"
	"github.com/clipvibe/api/internal/model"
	"github.com/clipvibe/api/internal/store"
)

// ClipService handles clip upload, listing, and deletion. Uploads go to
// object storage; metadata lives in the store.
type ClipService struct {
	store   store.Store
	storage client.StorageClient
}

func NewClipService(st store.Store, storage client.StorageClient) *ClipService {
	return &ClipService{
		store:   st,
		storage: storage,
	}
}

// Upload stores the clip bytes and creates its record. The caller supplies
// probe metadata (duration, dimensions, frame rate) alongside the file.
func (s *ClipService) Upload(ctx context.Context, userID, fileName string, size int64, body io.Reader, meta *model.UploadClipRequest) (*model.Clip, error) {
	clipID := uuid.New().String()
	key := fmt.Sprintf("clips/%s/%s%s", userID, clipID, safeExt(fileName))

	storageRef, err := s.storage.Upload(ctx, key, body, "video/mp4")
	if err != nil {
		return nil, fmt.Errorf("failed to upload clip: %w", err)
	}

	clip := &model.Clip{
		ID:         clipID,
		UserID:     userID,
		FileName:   fileName,
		StorageRef: storageRef,
		SizeBytes:  size,
		Duration:   meta.Duration,
		Width:      meta.Width,
		Height:     meta.Height,
		FrameRate:  meta.FrameRate,
	}
	if err := s.store.CreateClip(ctx, clip); err != nil {
		// Best effort: do not leave orphaned bytes behind.
		if delErr := s.storage.Delete(ctx, key); delErr != nil {
			log.Printf("Failed to clean up storage after create error: %v", delErr)
		}
		return nil, fmt.Errorf("failed to save clip: %w", err)
	}

	return clip, nil
}

// List returns the user's clips, newest first.
func (s *ClipService) List(ctx context.Context, userID string) ([]model.Clip, error) {
	return s.store.ListClipsByUser(ctx, userID)
}

// Delete removes a clip record and its stored bytes.
func (s *ClipService) Delete(ctx context.Context, userID, clipID string) error {
	clips, err := s.store.GetClips(ctx, []string{clipID})
	if err != nil {
		return err
	}
	if len(clips) == 0 || clips[0].UserID != userID {
		return store.ErrNotFound
	}

	if err := s.store.DeleteClip(ctx, clipID, userID); err != nil {
		return err
	}

	if key := storageKey(clips[0].StorageRef); key != "" {
		if err := s.storage.Delete(ctx, key); err != nil {
			log.Printf("Failed to delete clip %s from storage: %v", clipID, err)
		}
	}
	return nil
}

// safeExt returns the file extension, defaulting to .mp4 for anything
// that does not look like one.
func safeExt(fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".mp4", ".mov", ".webm", ".mkv", ".avi":
		return ext
	default:
		return ".mp4"
	}
}

// storageKey recovers the object key from a public storage URL.
func storageKey(ref string) string {
	idx := strings.Index(ref, "/clips/")
	if idx < 0 {
		return ""
	}
	return ref[idx+1:]
}
