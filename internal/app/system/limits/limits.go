// internal/app/system/limits/limits.go
package limits

// Request body size limits for the JSON API.
// These limits help prevent memory exhaustion from oversized requests.
const (
	// MaxJSONBody is the maximum size for account JSON bodies
	// (register, login, updateAccount without an upload).
	MaxJSONBody = 1 << 20 // 1 MB

	// MaxFavoriteBody is the maximum size for favorite add/remove bodies.
	// The anime snapshot is small; anything larger is rejected.
	MaxFavoriteBody = 64 << 10 // 64 KB

	// MaxAvatarUpload is the maximum size of a profile picture file.
	MaxAvatarUpload = 5 << 20 // 5 MB

	// MaxMultipartForm bounds a multipart updateAccount or register form:
	// one avatar plus the text fields.
	MaxMultipartForm = MaxAvatarUpload + MaxJSONBody
)
