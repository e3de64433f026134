// Package slots holds the fixed layout of the inspection report: two devices,
// each photographed from a full view and eight compass directions, giving 18
// ordered pages. It also owns filename normalisation, since aliases are only
// meaningful in normalised form.
package slots

import (
	"fmt"
	"strings"
	"sync"
)

// Device is one of the two pieces of equipment in the report.
type Device int

const (
	Launcher Device = iota
	Receiver
)

// Devices lists the devices in report order.
var Devices = []Device{Launcher, Receiver}

func (d Device) String() string {
	switch d {
	case Launcher:
		return "Launcher"
	case Receiver:
		return "Receiver"
	}
	return fmt.Sprintf("Device(%d)", int(d))
}

// Direction is the view a photograph was taken from.
type Direction int

const (
	Full Direction = iota
	North
	Northeast
	East
	Southeast
	South
	Southwest
	West
	Northwest
)

// Directions lists every direction in canonical page order, Full first.
var Directions = []Direction{Full, North, Northeast, East, Southeast, South, Southwest, West, Northwest}

var directionNames = [...]string{"Full", "North", "Northeast", "East", "Southeast", "South", "Southwest", "West", "Northwest"}

func (d Direction) String() string {
	if d < 0 || int(d) >= len(directionNames) {
		return fmt.Sprintf("Direction(%d)", int(d))
	}
	return directionNames[d]
}

// Key identifies a slot.
type Key struct {
	Device    Device
	Direction Direction
}

func (k Key) String() string { return k.Device.String() + " " + k.Direction.String() }

// Slot is one page position in the report.
type Slot struct {
	Ordinal   int
	Device    Device
	Direction Direction
	// Title is the caption printed on directional pages. Full slots carry the
	// bare device name and are never captioned.
	Title string
	// Aliases are normalised tokens, longest first. For Full slots they are
	// whole-name matches; for directional slots they match the part of the
	// name that follows the device token.
	Aliases []string
}

func (s Slot) Key() Key { return Key{Device: s.Device, Direction: s.Direction} }

func (s Slot) String() string { return s.Key().String() }

// IsFull reports whether the slot is a device overview page.
func (s Slot) IsFull() bool { return s.Direction == Full }

// DeviceTokens are the ways a filename can name a device.
type DeviceTokens struct {
	// Long tokens may appear anywhere in the normalised name; longest first.
	Long []string
	// Short is a one-letter abbreviation only accepted at the start of the
	// name, as in "lne" or "rsw".
	Short string
}

// Registry is the immutable slot table. Build it once and share it.
type Registry struct {
	slots  []Slot
	byKey  map[Key]int
	tokens map[Device]DeviceTokens
}

var directionAliases = map[Direction][]string{
	North:     {"north", "n"},
	Northeast: {"northeast", "ne"},
	East:      {"east", "e"},
	Southeast: {"southeast", "se"},
	South:     {"south", "s"},
	Southwest: {"southwest", "sw"},
	West:      {"west", "w"},
	Northwest: {"northwest", "nw"},
}

var deviceTokens = map[Device]DeviceTokens{
	Launcher: {Long: []string{"launcher", "launch"}, Short: "l"},
	Receiver: {Long: []string{"receiver", "reciever", "receive", "rcvr"}, Short: "r"},
}

// New builds the registry from the built-in alias tables.
func New() *Registry {
	r := &Registry{
		byKey:  make(map[Key]int, len(Devices)*len(Directions)),
		tokens: make(map[Device]DeviceTokens, len(Devices)),
	}
	ordinal := 1
	for _, dev := range Devices {
		tok := deviceTokens[dev]
		tok.Long = longestFirst(tok.Long)
		r.tokens[dev] = tok
		for _, dir := range Directions {
			s := Slot{Ordinal: ordinal, Device: dev, Direction: dir}
			if dir == Full {
				s.Title = dev.String()
				s.Aliases = []string{Normalize(dev.String())}
			} else {
				s.Title = dev.String() + " " + dir.String()
				s.Aliases = longestFirst(directionAliases[dir])
			}
			r.byKey[s.Key()] = len(r.slots)
			r.slots = append(r.slots, s)
			ordinal++
		}
	}
	return r
}

var defaultRegistry = sync.OnceValue(New)

// Default returns the process-wide registry.
func Default() *Registry { return defaultRegistry() }

// Len is the number of slots, always 18.
func (r *Registry) Len() int { return len(r.slots) }

// Slots returns every slot in ordinal order. The slice is a copy.
func (r *Registry) Slots() []Slot {
	out := make([]Slot, len(r.slots))
	copy(out, r.slots)
	return out
}

// Lookup returns the slot for a device and direction.
func (r *Registry) Lookup(dev Device, dir Direction) (Slot, bool) {
	i, ok := r.byKey[Key{Device: dev, Direction: dir}]
	if !ok {
		return Slot{}, false
	}
	return r.slots[i], true
}

// ByOrdinal returns the slot printed on page n (1-based).
func (r *Registry) ByOrdinal(n int) (Slot, bool) {
	if n < 1 || n > len(r.slots) {
		return Slot{}, false
	}
	return r.slots[n-1], true
}

// DeviceSlots returns the slots of one device in ordinal order.
func (r *Registry) DeviceSlots(dev Device) []Slot {
	var out []Slot
	for _, s := range r.slots {
		if s.Device == dev {
			out = append(out, s)
		}
	}
	return out
}

// Tokens returns the device-naming tokens for dev.
func (r *Registry) Tokens(dev Device) DeviceTokens { return r.tokens[dev] }

// MatchAlias reports whether rest names a direction alias: rest must begin
// with the alias and continue with digits only. The digit allowance keeps
// "north2" usable while "northeast" never satisfies "north" or "n".
func MatchAlias(rest, alias string) bool {
	if alias == "" || !strings.HasPrefix(rest, alias) {
		return false
	}
	for _, c := range rest[len(alias):] {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// Validate checks that no alias of one direction can match an alias of a
// different direction of the same device, and that ordinals are dense.
func (r *Registry) Validate() error {
	for i, s := range r.slots {
		if s.Ordinal != i+1 {
			return fmt.Errorf("slot %s has ordinal %d, want %d", s, s.Ordinal, i+1)
		}
	}
	for _, a := range r.slots {
		for _, b := range r.slots {
			if a.Device != b.Device || a.Direction == b.Direction || a.IsFull() || b.IsFull() {
				continue
			}
			for _, x := range a.Aliases {
				for _, y := range b.Aliases {
					if MatchAlias(y, x) {
						return fmt.Errorf("alias %q of %s also matches %q of %s", x, a, y, b)
					}
				}
			}
		}
	}
	return nil
}

func longestFirst(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	// insertion sort keeps equal-length aliases in table order
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && len(out[j]) > len(out[j-1]); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
