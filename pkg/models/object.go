package models

import (
	"strings"
	"time"
)

// Folder partitions the object namespace inside the bucket.
type Folder string

const (
	FolderStudyMaterials Folder = "study-materials"
	FolderExamPapers     Folder = "exam-papers"
	FolderCertificates   Folder = "certificates"
	FolderReports        Folder = "reports"
	FolderUserUploads    Folder = "user-uploads"
	FolderVideos         Folder = "videos"
)

// Folders lists every known folder.
func Folders() []Folder {
	return []Folder{
		FolderStudyMaterials,
		FolderExamPapers,
		FolderCertificates,
		FolderReports,
		FolderUserUploads,
		FolderVideos,
	}
}

// Valid returns true if f is one of the known folders.
func (f Folder) Valid() bool {
	for _, known := range Folders() {
		if f == known {
			return true
		}
	}
	return false
}

// ParseFolder returns the folder named s and whether it is known.
func ParseFolder(s string) (Folder, bool) {
	f := Folder(strings.TrimSpace(s))
	return f, f.Valid()
}

// StoredObject describes one binary payload in the bucket.
type StoredObject struct {
	Folder      Folder    `json:"folder"`
	Key         string    `json:"key"`  // "<folder>/<name>"
	Name        string    `json:"name"` // "<epochMillis>-<sanitized filename>"
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	URL         string    `json:"url,omitempty"`
	Public      bool      `json:"public"`
	CreatedAt   time.Time `json:"created_at"`
}
