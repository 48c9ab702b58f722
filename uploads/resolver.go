package uploads

import (
	"strings"

	"github.com/cppla/agencysite/storage"
)

// Upload categories.
const (
	TypeBlog   = "blog"
	TypeAvatar = "avatar"

	avatarDir = "avatars"
)

// PathPrefix starts every public relative path; the uploads root is served under the same name.
const PathPrefix = "uploads"

// NormalizeType trims t and applies the blog default.
func NormalizeType(t string) string {
	t = strings.TrimSpace(t)
	if t == "" {
		return TypeBlog
	}
	return t
}

// ResolveDestination picks the directory, relative to the uploads root, that a new upload lands in.
// A non-empty customPath wins over the type; unknown types fall back to blog.
func ResolveDestination(uploadType, customPath string) (string, error) {
	if strings.TrimSpace(customPath) != "" {
		dir, err := storage.CleanDir(customPath)
		if err != nil || dir == "" {
			return "", ErrInvalidPath
		}
		return dir, nil
	}
	if strings.TrimSpace(uploadType) == TypeAvatar {
		return avatarDir, nil
	}
	return TypeBlog, nil
}

// TypeDir maps a listing/rename/delete type onto its directory: avatar -> avatars, anything else
// is used literally so custom-path directories stay reachable. Paths leaving the root are rejected.
func TypeDir(uploadType string) (string, error) {
	t := NormalizeType(uploadType)
	if t == TypeAvatar {
		return avatarDir, nil
	}
	dir, err := storage.CleanDir(t)
	if err != nil || dir == "" {
		return "", ErrInvalidPath
	}
	return dir, nil
}

// PublicPath builds the "uploads/<dir>/<filename>" path reported to clients.
func PublicPath(dir, filename string) string {
	return PathPrefix + "/" + storage.JoinKey(dir, filename)
}
