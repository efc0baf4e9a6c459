// Package mediastore stores uploaded profile pictures on local disk or in an
// S3-compatible bucket.
package mediastore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/dalemusser/animelist/internal/app/system/limits"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

// Avatar constraints.
const (
	MaxAvatarBytes  = limits.MaxAvatarUpload
	AvatarSize      = 200
	AvatarFolder    = "avatars"
	avatarQuality   = 85
	avatarCacheCtl  = "public, max-age=31536000, immutable"
	contentTypeJPEG = "image/jpeg"
	sniffLen        = 512
)

var (
	// ErrFileTooLarge is returned for uploads over MaxAvatarBytes.
	ErrFileTooLarge = errors.New("file too large (max 5 MB)")
	// ErrInvalidImageType is returned for uploads that are not jpeg, png, gif or webp.
	ErrInvalidImageType = errors.New("unsupported image type")
)

var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// Store persists objects by key and resolves their public URLs.
type Store interface {
	Put(ctx context.Context, key string, body []byte, contentType, cacheControl string) error
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// Uploaded describes a stored avatar.
type Uploaded struct {
	URL string
	Key string
}

// UploadAvatar validates the upload, normalizes it to a square JPEG and stores
// it under avatars/<uuid>.jpg.
func UploadAvatar(ctx context.Context, s Store, file multipart.File, header *multipart.FileHeader) (Uploaded, error) {
	data, err := readImage(file, header)
	if err != nil {
		return Uploaded{}, err
	}
	out, err := NormalizeAvatar(data)
	if err != nil {
		return Uploaded{}, err
	}

	key := fmt.Sprintf("%s/%s.jpg", AvatarFolder, uuid.NewString())
	if err := s.Put(ctx, key, out, contentTypeJPEG, avatarCacheCtl); err != nil {
		return Uploaded{}, err
	}
	return Uploaded{URL: s.URL(key), Key: key}, nil
}

// DeleteAvatar removes a previously uploaded avatar. An empty key is a no-op
// so callers can pass the key of a user still on the default picture.
func DeleteAvatar(ctx context.Context, s Store, key string) error {
	if key == "" {
		return nil
	}
	return s.Delete(ctx, key)
}

// readImage loads the upload into memory with size and type checks.
func readImage(file multipart.File, header *multipart.FileHeader) ([]byte, error) {
	if header != nil && header.Size > MaxAvatarBytes {
		return nil, ErrFileTooLarge
	}
	data, err := io.ReadAll(io.LimitReader(file, MaxAvatarBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) > MaxAvatarBytes {
		return nil, ErrFileTooLarge
	}

	ct := ""
	if header != nil {
		ct = header.Header.Get("Content-Type")
	}
	if ct == "" || ct == "application/octet-stream" {
		ct = http.DetectContentType(data[:min(len(data), sniffLen)])
	}
	if i := strings.Index(ct, ";"); i != -1 {
		ct = strings.TrimSpace(ct[:i])
	}
	if !allowedTypes[strings.ToLower(ct)] {
		return nil, ErrInvalidImageType
	}
	return data, nil
}

// NormalizeAvatar center-crops data to AvatarSize×AvatarSize and encodes it as JPEG.
func NormalizeAvatar(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, ErrInvalidImageType
	}
	resized := imaging.Fill(img, AvatarSize, AvatarSize, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(avatarQuality)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
