package uploads

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

var imageMimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

var allowedMimePattern = regexp.MustCompile(`jpeg|jpg|png|gif|webp`)

const fallbackMimeType = "application/octet-stream"

// IsImageFile reports whether name carries an allowed image extension (case-insensitive).
func IsImageFile(name string) bool {
	_, ok := imageMimeTypes[strings.ToLower(filepath.Ext(name))]
	return ok
}

// CheckFileType accepts a file only when both its extension and its declared MIME type are images.
func CheckFileType(originalName, mimeType string) error {
	if !IsImageFile(originalName) || !allowedMimePattern.MatchString(strings.ToLower(mimeType)) {
		return ErrInvalidFileType
	}
	return nil
}

// MimeTypeFor derives a MIME type from the extension alone.
func MimeTypeFor(name string) string {
	if mt, ok := imageMimeTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return mt
	}
	return fallbackMimeType
}

// AllowedExtensions lists the accepted extensions in sorted order.
func AllowedExtensions() []string {
	exts := make([]string, 0, len(imageMimeTypes))
	for ext := range imageMimeTypes {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
