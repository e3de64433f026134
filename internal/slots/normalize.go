package slots

import (
	"path"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Normalize reduces a raw upload name to a comparable token: directory parts
// and the extension are dropped, the rest is NFKC-normalised, case-folded and
// stripped of everything but letters and digits. It never fails and
// Normalize(Normalize(x)) == Normalize(x).
func Normalize(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	name = path.Base(name)
	if ext := path.Ext(name); ext != "" {
		name = strings.TrimSuffix(name, ext)
	}
	name = norm.NFKC.String(name)
	name = cases.Fold().String(name)
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, name)
}

var nonName = regexp.MustCompile(`[^a-z0-9_]+`)

// CanonicalName is the preferred upload name for a slot, e.g.
// "launcher_northeast.jpg". ext defaults to ".jpg".
func CanonicalName(s Slot, ext string) string {
	if ext == "" {
		ext = ".jpg"
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	base := strings.ToLower(s.Device.String())
	if !s.IsFull() {
		base += "_" + strings.ToLower(s.Direction.String())
	}
	base = nonName.ReplaceAllString(base, "_")
	for strings.Contains(base, "__") {
		base = strings.ReplaceAll(base, "__", "_")
	}
	return strings.Trim(base, "_") + strings.ToLower(ext)
}
