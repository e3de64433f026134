package render

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
)

// DefaultFontPaths are searched in order when no font paths are configured.
var DefaultFontPaths = []string{
	"fonts/LiberationSans-Regular.ttf",
	"LiberationSans-Regular.ttf",
	"/usr/share/fonts/truetype/liberation/LiberationSans-Regular.ttf",
	"/usr/share/fonts/liberation-sans/LiberationSans-Regular.ttf",
}

// FontUnavailableError means the caption typeface could not be loaded.
// Reports are never produced with a substitute font.
type FontUnavailableError struct {
	Candidates []string
	// Path and Err are set when a candidate existed but could not be used.
	Path string
	Err  error
}

func (e *FontUnavailableError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("caption font %s is unusable: %v", e.Path, e.Err)
	}
	return "caption font not found; looked in: " + strings.Join(e.Candidates, ", ")
}

func (e *FontUnavailableError) Unwrap() error { return e.Err }

// Font is a parsed typeface at a fixed pixel size. It is safe for concurrent
// use; each caller gets its own Face.
type Font struct {
	Path string
	Size float64
	otf  *opentype.Font
}

// LoadFont loads the first candidate that exists.
func LoadFont(candidates []string, size float64) (*Font, error) {
	if len(candidates) == 0 {
		candidates = DefaultFontPaths
	}
	for _, p := range candidates {
		data, err := os.ReadFile(p)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, &FontUnavailableError{Candidates: candidates, Path: p, Err: err}
		}
		f, err := ParseFont(data, size)
		if err != nil {
			return nil, &FontUnavailableError{Candidates: candidates, Path: p, Err: err}
		}
		f.Path = p
		return f, nil
	}
	return nil, &FontUnavailableError{Candidates: candidates}
}

// ParseFont parses TrueType or OpenType data.
func ParseFont(data []byte, size float64) (*Font, error) {
	if size <= 0 {
		return nil, fmt.Errorf("font size must be positive, got %v", size)
	}
	otf, err := opentype.Parse(data)
	if err != nil {
		return nil, err
	}
	return &Font{Size: size, otf: otf}, nil
}

// Face returns a new face at the font's size. Faces are not safe for
// concurrent use; close it when done.
func (f *Font) Face() (font.Face, error) {
	return opentype.NewFace(f.otf, &opentype.FaceOptions{
		Size:    f.Size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}
