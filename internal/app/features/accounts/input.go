package accounts

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/dalemusser/animelist/internal/app/system/limits"
	"github.com/dalemusser/animelist/internal/app/system/mediastore"
)

// isMultipart reports whether the request carries a multipart form.
func isMultipart(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "multipart/form-data"
}

// parseMultipart parses the form with room for one avatar upload.
func parseMultipart(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxMultipartForm)
	return r.ParseMultipartForm(limits.MaxMultipartForm)
}

// decodeJSON decodes the request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

// profilePic returns the optional "profilePic" upload.
func profilePic(r *http.Request) (multipart.File, *multipart.FileHeader, error) {
	if r.MultipartForm == nil {
		return nil, nil, nil
	}
	f, h, err := r.FormFile("profilePic")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil, nil
	}
	return f, h, err
}

// optString returns a pointer to the form value when the field was sent.
func optString(r *http.Request, key string) *string {
	if r.MultipartForm == nil {
		return nil
	}
	vals, ok := r.MultipartForm.Value[key]
	if !ok || len(vals) == 0 {
		return nil
	}
	v := vals[0]
	return &v
}

// uploadErrorMessage maps an avatar rejection to its user-facing message.
func uploadErrorMessage(err error) (string, bool) {
	switch {
	case errors.Is(err, mediastore.ErrFileTooLarge):
		return "Profile picture must be 5 MB or smaller.", true
	case errors.Is(err, mediastore.ErrInvalidImageType):
		return "Profile picture must be a JPEG, PNG, GIF or WebP image.", true
	}
	return "", false
}
