// Package upload defines the named image blobs the report pipeline consumes
// and the input-shape checks a presentation layer runs before invoking it.
package upload

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// RequiredImages is the number of photographs a report needs.
const RequiredImages = 18

// File is a named, readable image blob supplied by the caller.
type File interface {
	Name() string
	Bytes() ([]byte, error)
}

// Mem is an in-memory File.
type Mem struct {
	FileName string
	Data     []byte
}

func (m Mem) Name() string { return m.FileName }

func (m Mem) Bytes() ([]byte, error) { return m.Data, nil }

// Disk is a File backed by a path on the local filesystem. The name is the
// base name of the path.
type Disk struct {
	Path string
}

func (d Disk) Name() string { return filepath.Base(d.Path) }

func (d Disk) Bytes() ([]byte, error) { return os.ReadFile(d.Path) }

// Multipart adapts an HTTP form upload.
type Multipart struct {
	Header *multipart.FileHeader
}

func (m Multipart) Name() string { return m.Header.Filename }

func (m Multipart) Bytes() ([]byte, error) {
	f, err := m.Header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// Names returns the file names in order.
func Names(files []File) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Name()
	}
	return out
}

var imageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".bmp": true, ".tif": true, ".tiff": true, ".webp": true,
}

// IsImageName reports whether name carries a raster image extension.
func IsImageName(name string) bool {
	return imageExts[strings.ToLower(filepath.Ext(name))]
}

// FromPaths turns command-line arguments into Files. Directories are expanded
// to the image files they contain, sorted by name; plain files are taken as is.
func FromPaths(paths []string) ([]File, error) {
	var out []File
	for _, p := range paths {
		st, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !st.IsDir() {
			out = append(out, Disk{Path: p})
			continue
		}
		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, err
		}
		var names []string
		for _, e := range entries {
			if e.IsDir() || !IsImageName(e.Name()) {
				continue
			}
			names = append(names, e.Name())
		}
		sort.Strings(names)
		for _, n := range names {
			out = append(out, Disk{Path: filepath.Join(p, n)})
		}
	}
	return out, nil
}

// InputShapeError is returned when a request is malformed before any
// matching happens: an empty job name or the wrong number of images.
type InputShapeError struct {
	JobNameMissing bool
	Count          int
}

func (e *InputShapeError) Error() string {
	var parts []string
	if e.JobNameMissing {
		parts = append(parts, "job name is required")
	}
	if e.Count != RequiredImages {
		parts = append(parts, fmt.Sprintf("exactly %d images are required, got %d", RequiredImages, e.Count))
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

// ValidateShape checks the only two preconditions enforced outside the core.
func ValidateShape(jobName string, files []File) error {
	e := &InputShapeError{
		JobNameMissing: strings.TrimSpace(jobName) == "",
		Count:          len(files),
	}
	if e.JobNameMissing || e.Count != RequiredImages {
		return e
	}
	return nil
}
