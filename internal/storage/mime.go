package storage

import (
	"path/filepath"
	"strings"
)

const (
	ContentTypeJPEG    = "image/jpeg"
	ContentTypePNG     = "image/png"
	ContentTypeWebP    = "image/webp"
	ContentTypeUnknown = "application/octet-stream"
)

// normalizeContentType lower-cases a media type and drops any parameters.
func normalizeContentType(contentType string) string {
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

// IsSupportedContentType reports whether uploads of this type are accepted.
func IsSupportedContentType(contentType string) bool {
	switch normalizeContentType(contentType) {
	case "image/jpeg", "image/jpg", ContentTypePNG, ContentTypeWebP:
		return true
	}
	return false
}

// ExtensionFor maps a content type to the extension used on disk.
func ExtensionFor(contentType string) string {
	switch normalizeContentType(contentType) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case ContentTypePNG:
		return ".png"
	case ContentTypeWebP:
		return ".webp"
	default:
		return ".bin"
	}
}

// ContentTypeFor infers a content type from a stored file's extension.
func ContentTypeFor(name string) string {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(name), ".")) {
	case "jpg", "jpeg":
		return ContentTypeJPEG
	case "png":
		return ContentTypePNG
	case "webp":
		return ContentTypeWebP
	default:
		return ContentTypeUnknown
	}
}
