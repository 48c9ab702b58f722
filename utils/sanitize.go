package utils

import "github.com/microcosm-cc/bluemonday"

var (
	richSanitizer  = bluemonday.UGCPolicy()
	plainSanitizer = bluemonday.StrictPolicy()
)

// Sanitize cleans blog HTML, keeping user-generated-content formatting.
func Sanitize(input string) string {
	return richSanitizer.Sanitize(input)
}

// SanitizePlain strips every tag; used for contact form fields.
func SanitizePlain(input string) string {
	return plainSanitizer.Sanitize(input)
}
