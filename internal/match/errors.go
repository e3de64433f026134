package match

import (
	"fmt"
	"strings"

	"github.com/thywilljoshua/inspection-report/internal/slots"
	"github.com/thywilljoshua/inspection-report/internal/upload"
)

// MissingSlotError lists every slot no upload could fill.
type MissingSlotError struct {
	Missing   []slots.Slot
	Unmatched []Unmatched
}

func (e *MissingSlotError) Error() string {
	names := make([]string, len(e.Missing))
	for i, s := range e.Missing {
		names[i] = s.String()
	}
	msg := fmt.Sprintf("no photo for %d slot(s): %s", len(e.Missing), strings.Join(names, ", "))
	if len(e.Unmatched) > 0 {
		msg += "; unmatched uploads: " + joinUnmatched(e.Unmatched)
	}
	return msg
}

// Keys returns the missing slots as keys.
func (e *MissingSlotError) Keys() []slots.Key {
	out := make([]slots.Key, len(e.Missing))
	for i, s := range e.Missing {
		out[i] = s.Key()
	}
	return out
}

// AmbiguousMatchError is the strict-mode rejection of an upload set that
// filled every slot but left files over, or has the wrong size.
type AmbiguousMatchError struct {
	Count     int
	Unmatched []Unmatched
}

func (e *AmbiguousMatchError) Error() string {
	var parts []string
	if e.Count != upload.RequiredImages {
		parts = append(parts, fmt.Sprintf("expected %d uploads, got %d", upload.RequiredImages, e.Count))
	}
	if len(e.Unmatched) > 0 {
		parts = append(parts, "unmatched uploads: "+joinUnmatched(e.Unmatched))
	}
	return "ambiguous upload set: " + strings.Join(parts, "; ")
}

func joinUnmatched(us []Unmatched) string {
	out := make([]string, len(us))
	for i, u := range us {
		out[i] = u.String()
	}
	return strings.Join(out, "; ")
}
