package restaurant

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path"
	"strings"

	"github.com/google/uuid"

	"restoboost/internal/store"
)

var (
	ErrNotImage        = errors.New("file must be an image")
	ErrImageTooLarge   = errors.New("image is too large")
	ErrPhotoIndex      = errors.New("photo index out of range")
	ErrStorageDisabled = errors.New("photo storage is not configured")
)

// UploadPhoto stores an image under {restaurant}/{uuid}.{ext} and appends its
// public URL to the restaurant. It returns the URL and the new photo count.
func (s *Service) UploadPhoto(ctx context.Context, id int64, filename, contentType string, data []byte) (string, int, error) {
	if s.photos == nil {
		return "", 0, ErrStorageDisabled
	}
	if !strings.HasPrefix(contentType, "image/") {
		return "", 0, ErrNotImage
	}
	if len(data) == 0 {
		return "", 0, fmt.Errorf("%w: empty file", ErrInvalidInput)
	}
	if s.maxImageSize > 0 && int64(len(data)) > s.maxImageSize {
		return "", 0, fmt.Errorf("%w: %d bytes, limit %d", ErrImageTooLarge, len(data), s.maxImageSize)
	}

	r, err := s.Get(ctx, id)
	if err != nil {
		return "", 0, err
	}

	objectPath := fmt.Sprintf("%d/%s.%s", id, uuid.NewString(), extension(filename, contentType))
	url, err := s.photos.Upload(ctx, s.bucket, objectPath, data, contentType)
	if err != nil {
		return "", 0, fmt.Errorf("upload photo: %w", err)
	}

	photos := append(append([]string{}, r.Photos...), url)
	if _, err := s.Update(ctx, id, map[string]any{"photos": photos}); err != nil {
		s.removePhoto(ctx, url)
		return "", 0, err
	}
	s.logger.Info().Int64("restaurant_id", id).Str("path", objectPath).Int("size", len(data)).Msg("photo uploaded")
	return url, len(photos), nil
}

// DeletePhoto removes the photo at index and returns the remaining count.
// The stored object is deleted best effort.
func (s *Service) DeletePhoto(ctx context.Context, id int64, index int) (int, error) {
	r, err := s.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	if index < 0 || index >= len(r.Photos) {
		return 0, ErrPhotoIndex
	}

	url := r.Photos[index]
	photos := make([]string, 0, len(r.Photos)-1)
	photos = append(photos, r.Photos[:index]...)
	photos = append(photos, r.Photos[index+1:]...)

	if _, err := s.Update(ctx, id, map[string]any{"photos": photos}); err != nil {
		return 0, err
	}
	s.removePhoto(ctx, url)
	return len(photos), nil
}

func (s *Service) removePhoto(ctx context.Context, url string) {
	if s.photos == nil {
		return
	}
	objectPath, ok := store.PathFromPublicURL(s.bucket, url)
	if !ok {
		s.logger.Warn().Str("url", url).Msg("photo url outside bucket, not deleting object")
		return
	}
	if err := s.photos.Delete(ctx, s.bucket, objectPath); err != nil {
		s.logger.Warn().Err(err).Str("path", objectPath).Msg("could not delete photo object")
	}
}

// extension takes the file name's extension, falling back to the content type.
func extension(filename, contentType string) string {
	if ext := strings.TrimPrefix(strings.ToLower(path.Ext(filename)), "."); ext != "" {
		return ext
	}
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		return strings.TrimPrefix(exts[0], ".")
	}
	return "jpg"
}
