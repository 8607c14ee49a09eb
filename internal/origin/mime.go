package origin

import (
	"path/filepath"
	"strings"
)

// contentTypes is the fixed extension table used for file responses. Anything
// unlisted falls back to text/plain.
var contentTypes = map[string]string{
	".html": "text/html",
	".htm":  "text/html",
	".css":  "text/css",
	".js":   "application/javascript",
	".json": "application/json",
	".txt":  "text/plain",
}

const defaultContentType = "text/plain"

// contentTypeFor infers a Content-Type from the file extension.
func contentTypeFor(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	return defaultContentType
}
