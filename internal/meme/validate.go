package meme

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Only raster image uploads are accepted. Extension and declared content type
// are checked independently so a mismatched pair is rejected.
var allowedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
}

var allowedContentTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
}

// validateUpload checks the filename extension and the declared content type
// against the image allow-list. Both must pass.
func validateUpload(filename, contentType string) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] {
		return fmt.Errorf("%w: extension %q", ErrUnsupportedMedia, ext)
	}
	if !allowedContentTypes[strings.ToLower(contentType)] {
		return fmt.Errorf("%w: content type %q", ErrUnsupportedMedia, contentType)
	}
	return nil
}

// newObjectKey generates a globally unique object key preserving the
// original file extension.
func newObjectKey(filename string) string {
	return uuid.NewString() + strings.ToLower(filepath.Ext(filename))
}
