package uploads

import (
	"fmt"
	"path/filepath"
	"time"
)

// randomSpan bounds the random suffix to [0, 1e9).
const randomSpan = 1_000_000_000

// GenerateFilename returns "<field>-<unixMillis>-<random><ext>". Only the extension of originalName survives.
func GenerateFilename(fieldName, originalName string, now time.Time, random int64) string {
	return fmt.Sprintf("%s-%d-%d%s", fieldName, now.UnixMilli(), random, filepath.Ext(originalName))
}
