// Package filesvc implements core.FileStorage on the local disk or on S3.
package filesvc

import (
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Upload directories
const (
	DirStudents = "students"
	DirNotices  = "notices"
)

var (
	Dirs        = []string{DirStudents, DirNotices}
	unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
	maxNameLen  = 100
	NowFunc     = time.Now // mockable
)

// StoredName builds the stored file name: <unix millis>-<sanitized original name>.
func StoredName(filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, `\`, "/"))
	base = strings.Trim(unsafeChars.ReplaceAllString(base, "_"), "._")
	if base == "" {
		base = "file"
	}
	if len(base) > maxNameLen {
		ext := path.Ext(base)
		if len(ext) > 10 {
			ext = ""
		}
		base = base[:maxNameLen-len(ext)] + ext
	}
	return strconv.FormatInt(NowFunc().UnixMilli(), 10) + "-" + base
}

func joinURL(base string, elem ...string) string {
	return strings.TrimRight(base, "/") + "/" + path.Join(elem...)
}
