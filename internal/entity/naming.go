package entity

import (
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
)

// Object naming is the only link between a record and its previews:
// previews are never persisted, their existence is implied by these
// deterministic names.

// BuildObjectName derives the storage key for an original:
// "<id><extension-of-filename>". The user-supplied filename contributes
// only its extension, so identical filenames never collide.
func BuildObjectName(id uuid.UUID, filename string) string {
	return id.String() + path.Ext(filename)
}

// BuildPreviewName derives the storage key of a resized variant:
// "<stem>_<size><extension>".
func BuildPreviewName(objectName string, size int) string {
	stem, ext := splitObjectName(objectName)

	return fmt.Sprintf("%s_%d%s", stem, size, ext)
}

// PreviewPrefix is the listing prefix covering every preview of an
// original, whatever sizes were generated.
func PreviewPrefix(objectName string) string {
	stem, _ := splitObjectName(objectName)

	return stem + "_"
}

func splitObjectName(objectName string) (stem, ext string) {
	ext = path.Ext(objectName)

	stem = strings.TrimSuffix(path.Base(objectName), ext)
	if stem == "" {
		stem = "image"
	}

	return stem, ext
}
