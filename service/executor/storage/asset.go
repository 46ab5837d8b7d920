package storage

import (
	"path/filepath"
	"strings"
	"time"
)

// Asset represents a file or directory in storage
type Asset struct {
	URL         string    `json:"url"`
	Name        string    `json:"name,omitempty"`
	IsDir       bool      `json:"isDir,omitempty"`
	Size        int64     `json:"size,omitempty"`
	ModTime     time.Time `json:"modTime,omitempty"`
	Content     string    `json:"content,omitempty"`
	Data        []byte    `json:"data,omitempty"`
	ContentType string    `json:"contentType,omitempty"`
}

func (a *Asset) payload() []byte {
	if len(a.Data) > 0 {
		return a.Data
	}
	return []byte(a.Content)
}

var contentTypes = map[string]string{
	".json": "application/json",
	".yaml": "application/yaml",
	".yml":  "application/yaml",
	".txt":  "text/plain",
	".csv":  "text/csv",
	".pdf":  "application/pdf",
	".html": "text/html",
	".xml":  "application/xml",
	".gz":   "application/gzip",
	".zip":  "application/zip",
}

// ContentType guesses the content type from the file extension.
func ContentType(name string) string {
	if ret, ok := contentTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return ret
	}
	return "application/octet-stream"
}
