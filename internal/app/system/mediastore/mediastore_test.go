package mediastore_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dalemusser/animelist/internal/app/system/mediastore"
	"github.com/disintegration/imaging"
)

type memFile struct{ *bytes.Reader }

func (memFile) Close() error { return nil }

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := imaging.New(w, h, color.NRGBA{R: 200, G: 30, B: 90, A: 255})
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func upload(data []byte, contentType string) (multipart.File, *multipart.FileHeader) {
	h := &multipart.FileHeader{
		Filename: "pic",
		Size:     int64(len(data)),
		Header:   textproto.MIMEHeader{},
	}
	if contentType != "" {
		h.Header.Set("Content-Type", contentType)
	}
	return memFile{bytes.NewReader(data)}, h
}

func TestUploadAvatar_LocalNormalizesToSquareJPEG(t *testing.T) {
	root := t.TempDir()
	store, err := mediastore.NewLocal(root, "http://localhost:8080/uploads/")
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}

	f, h := upload(pngBytes(t, 640, 320), "image/png")
	up, err := mediastore.UploadAvatar(context.Background(), store, f, h)
	if err != nil {
		t.Fatalf("UploadAvatar: %v", err)
	}
	if !strings.HasPrefix(up.Key, "avatars/") || !strings.HasSuffix(up.Key, ".jpg") {
		t.Errorf("Key = %q, want avatars/<uuid>.jpg", up.Key)
	}
	if up.URL != "http://localhost:8080/uploads/"+up.Key {
		t.Errorf("URL = %q", up.URL)
	}

	stored, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(up.Key)))
	if err != nil {
		t.Fatalf("read stored file: %v", err)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(stored))
	if err != nil {
		t.Fatalf("decode stored: %v", err)
	}
	if format != "jpeg" || cfg.Width != mediastore.AvatarSize || cfg.Height != mediastore.AvatarSize {
		t.Errorf("stored %s %dx%d, want jpeg %dx%d", format, cfg.Width, cfg.Height, mediastore.AvatarSize, mediastore.AvatarSize)
	}

	if err := mediastore.DeleteAvatar(context.Background(), store, up.Key); err != nil {
		t.Fatalf("DeleteAvatar: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(up.Key))); !os.IsNotExist(err) {
		t.Errorf("expected file removed, stat err = %v", err)
	}
	// Deleting again is not an error.
	if err := mediastore.DeleteAvatar(context.Background(), store, up.Key); err != nil {
		t.Errorf("second DeleteAvatar: %v", err)
	}
}

func TestUploadAvatar_Rejects(t *testing.T) {
	store, err := mediastore.NewLocal(t.TempDir(), "/uploads")
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}

	tests := []struct {
		name        string
		data        []byte
		contentType string
		size        int64
		want        error
	}{
		{"text file", []byte("just some text"), "text/plain", 0, mediastore.ErrInvalidImageType},
		{"sniffed text", []byte("just some text"), "", 0, mediastore.ErrInvalidImageType},
		{"declared too large", pngBytes(t, 10, 10), "image/png", mediastore.MaxAvatarBytes + 1, mediastore.ErrFileTooLarge},
		{"corrupt png", []byte("\x89PNG\r\n\x1a\nnot really"), "image/png", 0, mediastore.ErrInvalidImageType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, h := upload(tt.data, tt.contentType)
			if tt.size > 0 {
				h.Size = tt.size
			}
			_, err := mediastore.UploadAvatar(context.Background(), store, f, h)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDeleteAvatar_EmptyKeyNoop(t *testing.T) {
	store, _ := mediastore.NewLocal(t.TempDir(), "/uploads")
	if err := mediastore.DeleteAvatar(context.Background(), store, ""); err != nil {
		t.Errorf("DeleteAvatar(\"\") = %v", err)
	}
}

func TestLocal_KeysStayInsideRoot(t *testing.T) {
	root := t.TempDir()
	store, _ := mediastore.NewLocal(root, "/uploads")
	if err := store.Put(context.Background(), "../../escape.jpg", []byte("x"), "image/jpeg", ""); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "escape.jpg")); err != nil {
		t.Errorf("expected traversal key to be confined to root: %v", err)
	}
}

func TestNormalizeAvatar_Square(t *testing.T) {
	out, err := mediastore.NormalizeAvatar(pngBytes(t, 50, 400))
	if err != nil {
		t.Fatalf("NormalizeAvatar: %v", err)
	}
	img, err := imaging.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != mediastore.AvatarSize || b.Dy() != mediastore.AvatarSize {
		t.Errorf("bounds = %v", b)
	}
}
