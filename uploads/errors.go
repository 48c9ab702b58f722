package uploads

import "errors"

// Messages are returned to API clients verbatim.
var (
	ErrNoFile              = errors.New("No file uploaded")
	ErrInvalidFileType     = errors.New("Only image files are allowed (jpeg, jpg, png, gif, webp)")
	ErrFileTooLarge        = errors.New("File too large")
	ErrInvalidPath         = errors.New("Invalid path")
	ErrInvalidFilename     = errors.New("Invalid filename")
	ErrNewFilenameRequired = errors.New("New filename is required")
	ErrFileNotFound        = errors.New("File not found")
	ErrFileExists          = errors.New("A file with that name already exists")
)

// IsValidation reports whether err is a client input error (400-class).
func IsValidation(err error) bool {
	for _, target := range []error{ErrNoFile, ErrInvalidFileType, ErrFileTooLarge, ErrInvalidPath, ErrInvalidFilename, ErrNewFilenameRequired} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
