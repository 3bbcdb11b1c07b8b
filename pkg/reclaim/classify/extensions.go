package classify

import (
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/matchers"
	ftypes "github.com/h2non/filetype/types"
)

// TypeGroups maps extension group names to their common file extensions.
// The static lists cover compound and legacy extensions that MIME-based
// lookup misses.
var TypeGroups = map[string][]string{
	"video": {
		".mp4", ".mkv", ".avi", ".mov", ".wmv", ".flv", ".webm", ".m4v", ".mpeg", ".mpg",
	},
	"audio": {
		".mp3", ".flac", ".wav", ".aac", ".ogg", ".wma", ".m4a", ".opus", ".aiff", ".alac",
	},
	"image": {
		".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tiff", ".tif", ".webp", ".heic", ".heif", ".raw",
	},
	"archive": {
		".zip", ".tar", ".gz", ".bz2", ".xz", ".7z", ".rar", ".tgz", ".tbz2", ".tar.gz", ".tar.bz2", ".tar.xz", ".iso", ".dmg",
	},
}

// DevDirNames are directory names recognized as regenerable development
// artifacts: dependency caches, build output, and virtual environments.
var DevDirNames = []string{
	"node_modules",
	"__pycache__",
	".venv",
	"venv",
	".tox",
	".gradle",
	"target",
	"build",
	"dist",
	".next",
}

// tempLocationNames are path segments that mark temporary or cache areas.
var tempLocationNames = map[string]struct{}{
	"tmp":    {},
	"temp":   {},
	"cache":  {},
	".cache": {},
	"caches": {},
}

var (
	mediaExts   map[string]struct{}
	archiveExts map[string]struct{}
	devDirs     map[string]struct{}
)

func init() {
	mediaExts = make(map[string]struct{})
	for _, group := range []string{"video", "audio", "image"} {
		for _, ext := range TypeGroups[group] {
			mediaExts[ext] = struct{}{}
		}
	}
	archiveExts = make(map[string]struct{}, len(TypeGroups["archive"]))
	for _, ext := range TypeGroups["archive"] {
		archiveExts[ext] = struct{}{}
	}
	devDirs = make(map[string]struct{}, len(DevDirNames))
	for _, name := range DevDirNames {
		devDirs[name] = struct{}{}
	}
}

// IsMediaExt reports whether ext (with leading dot) denotes video, audio,
// or image content. Extensions outside the static groups fall back to a
// MIME lookup.
func IsMediaExt(ext string) bool {
	ext = strings.ToLower(ext)
	if _, ok := mediaExts[ext]; ok {
		return true
	}
	switch mimeClass(ext) {
	case "video", "audio", "image":
		return true
	}
	return false
}

// IsArchiveExt reports whether ext (with leading dot) denotes an archive
// or disk image suited to offline relocation.
func IsArchiveExt(ext string) bool {
	ext = strings.ToLower(ext)
	if _, ok := archiveExts[ext]; ok {
		return true
	}
	t := filetype.GetType(strings.TrimPrefix(ext, "."))
	if t == ftypes.Unknown {
		return false
	}
	_, ok := matchers.Archive[t]
	return ok
}

// mimeClass returns the MIME top-level type for an extension, or "".
func mimeClass(ext string) string {
	t := filetype.GetType(strings.TrimPrefix(ext, "."))
	if t == ftypes.Unknown {
		return ""
	}
	return t.MIME.Type
}

// IsDevDir reports whether a directory name matches a known development
// artifact pattern.
func IsDevDir(name string) bool {
	_, ok := devDirs[strings.ToLower(name)]
	return ok
}

// InTempLocation reports whether any directory segment of path marks a
// temporary or cache area.
func InTempLocation(path string) bool {
	dir := filepath.Dir(path)
	for _, segment := range strings.Split(dir, string(filepath.Separator)) {
		if _, ok := tempLocationNames[strings.ToLower(segment)]; ok {
			return true
		}
	}
	return false
}

// Ext returns the lowercased extension of path, handling compound archive
// extensions like .tar.gz.
func Ext(path string) string {
	base := strings.ToLower(filepath.Base(path))
	for _, compound := range []string{".tar.gz", ".tar.bz2", ".tar.xz"} {
		if strings.HasSuffix(base, compound) {
			return compound
		}
	}
	return filepath.Ext(base)
}
