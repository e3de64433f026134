// Package match assigns uploaded photographs to report slots by name.
package match

import (
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/thywilljoshua/inspection-report/internal/slots"
	"github.com/thywilljoshua/inspection-report/internal/upload"
)

// Mode controls how leftovers are treated once every slot is filled.
type Mode string

const (
	// Strict rejects uploads that fill no slot and any count other than 18.
	Strict Mode = "strict"
	// Lenient ignores uploads that fill no slot.
	Lenient Mode = "lenient"
)

// ParseMode accepts "strict" or "lenient", case-insensitively. Empty means Strict.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", Strict:
		return Strict, nil
	case Lenient:
		return Lenient, nil
	}
	return "", fmt.Errorf("unknown match mode %q (want strict or lenient)", s)
}

// Assignment maps each filled slot to its photograph.
type Assignment map[slots.Key]upload.File

// Names is the assignment reduced to file names, handy for comparisons.
func (a Assignment) Names() map[slots.Key]string {
	out := make(map[slots.Key]string, len(a))
	for k, f := range a {
		out[k] = f.Name()
	}
	return out
}

// Reason explains why an upload was left out.
type Reason int

const (
	NoDevice Reason = iota
	NoDirection
	Duplicate
)

// Unmatched is an upload that filled no slot.
type Unmatched struct {
	// Index is the position of the file in the upload list.
	Index      int
	Name       string
	Normalized string
	Reason     Reason
	// Device is set unless Reason is NoDevice.
	Device slots.Device
	// Conflict and Winner are set for duplicates: the slot the file would have
	// filled and the name of the upload that got there first.
	Conflict slots.Key
	Winner   string
}

func (u Unmatched) String() string {
	switch u.Reason {
	case NoDevice:
		return fmt.Sprintf("%s: does not name %s or %s", u.Name, slots.Launcher, slots.Receiver)
	case NoDirection:
		return fmt.Sprintf("%s: names %s but no recognised view", u.Name, u.Device)
	case Duplicate:
		return fmt.Sprintf("%s: duplicates %s, already filled by %s", u.Name, u.Conflict, u.Winner)
	}
	return u.Name
}

// Result is the full outcome of matching one upload set.
type Result struct {
	Assignment Assignment
	Unmatched  []Unmatched
	// Missing lists unfilled slots in ordinal order.
	Missing []slots.Slot
}

// Matcher assigns files to slots using a registry.
type Matcher struct {
	reg  *slots.Registry
	mode Mode
	log  *zap.Logger
}

// New returns a Matcher. A nil registry means slots.Default and a nil logger
// discards output.
func New(reg *slots.Registry, mode Mode, log *zap.Logger) *Matcher {
	if reg == nil {
		reg = slots.Default()
	}
	if mode == "" {
		mode = Strict
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Matcher{reg: reg, mode: mode, log: log}
}

// Registry returns the slot table the matcher works against.
func (m *Matcher) Registry() *slots.Registry { return m.reg }

// Mode returns the leftover policy in force.
func (m *Matcher) Mode() Mode { return m.mode }

type candidate struct {
	idx  int
	norm string
	rest string
}

// deviceRest reports whether norm names dev and returns the text after the
// device token.
func (m *Matcher) deviceRest(norm string, dev slots.Device) (string, bool) {
	tok := m.reg.Tokens(dev)
	for _, t := range tok.Long {
		if i := strings.Index(norm, t); i >= 0 {
			return norm[i+len(t):], true
		}
	}
	if tok.Short != "" && strings.HasPrefix(norm, tok.Short) {
		return norm[len(tok.Short):], true
	}
	return "", false
}

func (m *Matcher) candidates(norms []string, dev slots.Device) []candidate {
	var out []candidate
	for i, n := range norms {
		if rest, ok := m.deviceRest(n, dev); ok {
			out = append(out, candidate{idx: i, norm: n, rest: rest})
		}
	}
	return out
}

func fits(s slots.Slot, c candidate) bool {
	if s.IsFull() {
		return slices.Contains(s.Aliases, c.norm)
	}
	for _, a := range s.Aliases {
		if slots.MatchAlias(c.rest, a) {
			return true
		}
	}
	return false
}

// matchDevice fills the slots of dev in canonical order. For each slot the
// first unassigned candidate in upload order wins; assigned is updated.
func (m *Matcher) matchDevice(norms []string, dev slots.Device, assigned []bool) map[slots.Direction]int {
	out := make(map[slots.Direction]int)
	cands := m.candidates(norms, dev)
	for _, s := range m.reg.DeviceSlots(dev) {
		for _, c := range cands {
			if assigned[c.idx] || !fits(s, c) {
				continue
			}
			assigned[c.idx] = true
			out[s.Direction] = c.idx
			break
		}
	}
	return out
}

func normalizeAll(files []upload.File) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = slots.Normalize(f.Name())
	}
	return out
}

// Match assigns files to the slots of a single device, ignoring the other
// device entirely.
func (m *Matcher) Match(files []upload.File, dev slots.Device) map[slots.Direction]upload.File {
	assigned := make([]bool, len(files))
	out := make(map[slots.Direction]upload.File)
	for dir, i := range m.matchDevice(normalizeAll(files), dev, assigned) {
		out[dir] = files[i]
	}
	return out
}

// Analyze matches every device and explains every leftover. It never fails.
func (m *Matcher) Analyze(files []upload.File) *Result {
	norms := normalizeAll(files)
	assigned := make([]bool, len(files))
	res := &Result{Assignment: make(Assignment, m.reg.Len())}
	winners := make(map[slots.Key]int)

	for _, dev := range slots.Devices {
		for dir, i := range m.matchDevice(norms, dev, assigned) {
			k := slots.Key{Device: dev, Direction: dir}
			res.Assignment[k] = files[i]
			winners[k] = i
			m.log.Debug("matched upload",
				zap.String("file", files[i].Name()),
				zap.String("slot", k.String()))
		}
	}

	for _, s := range m.reg.Slots() {
		if _, ok := res.Assignment[s.Key()]; !ok {
			res.Missing = append(res.Missing, s)
		}
	}

	for i, f := range files {
		if assigned[i] {
			continue
		}
		res.Unmatched = append(res.Unmatched, m.explain(i, f.Name(), norms[i], files, winners))
	}
	return res
}

func (m *Matcher) explain(idx int, name, norm string, files []upload.File, winners map[slots.Key]int) Unmatched {
	u := Unmatched{Index: idx, Name: name, Normalized: norm, Reason: NoDevice}
	for _, dev := range slots.Devices {
		rest, ok := m.deviceRest(norm, dev)
		if !ok {
			continue
		}
		c := candidate{norm: norm, rest: rest}
		for _, s := range m.reg.DeviceSlots(dev) {
			if !fits(s, c) {
				continue
			}
			if w, ok := winners[s.Key()]; ok {
				return Unmatched{
					Index: idx, Name: name, Normalized: norm, Reason: Duplicate, Device: dev,
					Conflict: s.Key(), Winner: files[w].Name(),
				}
			}
		}
		if u.Reason == NoDevice {
			u.Reason = NoDirection
			u.Device = dev
		}
	}
	return u
}

// MatchAll returns the complete assignment or the reason there is none.
// Unfilled slots always fail with *MissingSlotError listing all of them; in
// Strict mode leftovers or a count other than 18 fail with
// *AmbiguousMatchError.
func (m *Matcher) MatchAll(files []upload.File) (Assignment, error) {
	res := m.Analyze(files)
	if len(res.Missing) > 0 {
		m.log.Info("slots left unfilled",
			zap.Int("missing", len(res.Missing)),
			zap.Int("unmatched", len(res.Unmatched)))
		return nil, &MissingSlotError{Missing: res.Missing, Unmatched: res.Unmatched}
	}
	if m.mode == Strict && (len(files) != upload.RequiredImages || len(res.Unmatched) > 0) {
		return nil, &AmbiguousMatchError{Count: len(files), Unmatched: res.Unmatched}
	}
	for _, u := range res.Unmatched {
		m.log.Warn("ignoring unmatched upload", zap.String("file", u.Name), zap.String("reason", u.String()))
	}
	return res.Assignment, nil
}
