package fsa

import (
	"path"
	"strings"
)

// mimeUnknown is the literal type reported for unrecognized extensions.
const mimeUnknown = "unknown"

// mimeTypes is the extension table used for File.Type. Inference is by
// extension only; no content sniffing.
var mimeTypes = map[string]string{
	".bin":  "application/octet-stream",
	".css":  "text/css",
	".csv":  "text/csv",
	".gif":  "image/gif",
	".htm":  "text/html",
	".html": "text/html",
	".jpeg": "image/jpeg",
	".jpg":  "image/jpeg",
	".js":   "text/javascript",
	".json": "application/json",
	".md":   "text/markdown",
	".mp3":  "audio/mpeg",
	".mp4":  "video/mp4",
	".pdf":  "application/pdf",
	".png":  "image/png",
	".svg":  "image/svg+xml",
	".tar":  "application/x-tar",
	".txt":  "text/plain",
	".webp": "image/webp",
	".xml":  "application/xml",
	".zip":  "application/zip",
}

func typeByName(name string) string {
	if t, ok := mimeTypes[strings.ToLower(path.Ext(name))]; ok {
		return t
	}
	return mimeUnknown
}
