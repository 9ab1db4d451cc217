package models

import (
	"strings"
	"time"
)

// FileKind is the four-way content taxonomy used for token scoping and
// watermark routing. It is decided once at the storage gateway boundary.
type FileKind string

const (
	KindImage  FileKind = "image"
	KindVideo  FileKind = "video"
	KindFolder FileKind = "folder"
	KindFile   FileKind = "file"
)

// FileInfo describes one entry of the remote file tree.
type FileInfo struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	MimeType     string    `json:"mimeType"`
	Size         int64     `json:"size"`
	ModifiedTime time.Time `json:"modifiedTime"`
	IsFolder     bool      `json:"isFolder"`
	Kind         FileKind  `json:"kind"`
}

// KindFromMime maps a provider content-type onto the FileKind taxonomy.
func KindFromMime(mimeType string, isFolder bool) FileKind {
	switch {
	case isFolder || strings.Contains(mimeType, "folder") || mimeType == "application/x-directory":
		return KindFolder
	case strings.HasPrefix(mimeType, "image/"):
		return KindImage
	case strings.HasPrefix(mimeType, "video/"):
		return KindVideo
	default:
		return KindFile
	}
}
