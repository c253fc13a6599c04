package objectstore

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/org/examvault/pkg/models"
)

// DefaultHost is the public host objects are served from.
const DefaultHost = "storage.googleapis.com"

var whitespace = regexp.MustCompile(`\s+`)

// SanitizeFilename collapses every whitespace run into a single hyphen.
func SanitizeFilename(name string) string {
	return whitespace.ReplaceAllString(name, "-")
}

// ContentTypeFor infers the stored content type from the file extension.
func ContentTypeFor(name string) string {
	if strings.EqualFold(path.Ext(name), ".pdf") {
		return "application/pdf"
	}
	return "application/octet-stream"
}

// ObjectName is the name an upload of filename receives at t.
func ObjectName(t time.Time, filename string) string {
	return fmt.Sprintf("%d-%s", t.UnixMilli(), SanitizeFilename(filename))
}

// ObjectKey joins folder and name into a bucket key.
func ObjectKey(folder models.Folder, name string) string {
	return string(folder) + "/" + name
}

// PublicURL is the permanent link of key in bucket.
func PublicURL(host, bucket, key string) string {
	if host == "" {
		host = DefaultHost
	}
	return "https://" + host + "/" + bucket + "/" + key
}
