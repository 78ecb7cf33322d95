package storage

import (
	"mime"
	"net/url"
	"path"
	"strings"
)

// FallbackMIME is used when neither the response nor the URL names a known
// media type.
const FallbackMIME = "image/png"

var extensionForMIME = map[string]string{
	"image/png":       ".png",
	"image/jpeg":      ".jpg",
	"image/jpg":       ".jpg",
	"image/webp":      ".webp",
	"image/gif":       ".gif",
	"video/mp4":       ".mp4",
	"video/webm":      ".webm",
	"video/quicktime": ".mov",
}

var mimeForExtension = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
	".gif":  "image/gif",
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".mov":  "video/quicktime",
}

// DetectMIME picks the media type from the Content-Type header, then the
// source URL's extension, then FallbackMIME.
func DetectMIME(contentType, sourceURL string) string {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		mt = strings.ToLower(mt)
		if _, ok := extensionForMIME[mt]; ok {
			if mt == "image/jpg" {
				return "image/jpeg"
			}
			return mt
		}
	}
	if sourceURL != "" {
		p := sourceURL
		if u, err := url.Parse(sourceURL); err == nil {
			p = u.Path
		}
		if mt, ok := mimeForExtension[strings.ToLower(path.Ext(p))]; ok {
			return mt
		}
	}
	return FallbackMIME
}

// Extension returns the file extension for a media type, ".png" when
// unknown.
func Extension(mediaType string) string {
	if ext, ok := extensionForMIME[strings.ToLower(strings.TrimSpace(mediaType))]; ok {
		return ext
	}
	return extensionForMIME[FallbackMIME]
}
