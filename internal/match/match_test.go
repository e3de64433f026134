package match

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thywilljoshua/inspection-report/internal/slots"
	"github.com/thywilljoshua/inspection-report/internal/upload"
)

var shortDirs = []string{"north", "ne", "e", "se", "s", "sw", "w", "nw"}

func fullSet() []upload.File {
	var files []upload.File
	for _, dev := range []string{"launcher", "receiver"} {
		files = append(files, upload.Mem{FileName: dev + ".jpg"})
		for _, d := range shortDirs {
			files = append(files, upload.Mem{FileName: dev + " " + d + ".jpg"})
		}
	}
	return files
}

func without(files []upload.File, names ...string) []upload.File {
	var out []upload.File
	for _, f := range files {
		keep := true
		for _, n := range names {
			if f.Name() == n {
				keep = false
			}
		}
		if keep {
			out = append(out, f)
		}
	}
	return out
}

func TestMatchAllFullSet(t *testing.T) {
	m := New(nil, Strict, nil)
	a, err := m.MatchAll(fullSet())
	require.NoError(t, err)
	require.Len(t, a, 18)

	names := a.Names()
	assert.Equal(t, "launcher.jpg", names[slots.Key{Device: slots.Launcher, Direction: slots.Full}])
	assert.Equal(t, "launcher north.jpg", names[slots.Key{Device: slots.Launcher, Direction: slots.North}])
	assert.Equal(t, "launcher ne.jpg", names[slots.Key{Device: slots.Launcher, Direction: slots.Northeast}])
	assert.Equal(t, "launcher s.jpg", names[slots.Key{Device: slots.Launcher, Direction: slots.South}])
	assert.Equal(t, "receiver.jpg", names[slots.Key{Device: slots.Receiver, Direction: slots.Full}])
	assert.Equal(t, "receiver nw.jpg", names[slots.Key{Device: slots.Receiver, Direction: slots.Northwest}])
}

func TestMatchAllPermutationInvariant(t *testing.T) {
	m := New(nil, Strict, nil)
	base, err := m.MatchAll(fullSet())
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		files := fullSet()
		rng.Shuffle(len(files), func(a, b int) { files[a], files[b] = files[b], files[a] })
		got, err := m.MatchAll(files)
		require.NoError(t, err)
		if diff := cmp.Diff(base.Names(), got.Names()); diff != "" {
			t.Fatalf("assignment changed with upload order (-want +got):\n%s", diff)
		}
	}
}

func TestMatchAllShortAliases(t *testing.T) {
	names := []string{
		"launcher.jpg", "ln.jpg", "lne.jpg", "launch e.jpg", "Launcher SouthEast.JPG",
		"ls.jpg", "launcher-southwest.png", "lw.jpg", "LNW.jpeg",
		"receiver.jpg", "rn.jpg", "receiver_northeast.jpg", "re.jpg", "rse.jpg",
		"receiver south.jpg", "rsw.jpg", "rw.jpg", "Receiver North West.jpg",
	}
	var files []upload.File
	for _, n := range names {
		files = append(files, upload.Mem{FileName: n})
	}
	a, err := New(nil, Strict, nil).MatchAll(files)
	require.NoError(t, err)
	got := a.Names()
	assert.Equal(t, "ln.jpg", got[slots.Key{Device: slots.Launcher, Direction: slots.North}])
	assert.Equal(t, "lne.jpg", got[slots.Key{Device: slots.Launcher, Direction: slots.Northeast}])
	assert.Equal(t, "launch e.jpg", got[slots.Key{Device: slots.Launcher, Direction: slots.East}])
	assert.Equal(t, "re.jpg", got[slots.Key{Device: slots.Receiver, Direction: slots.East}])
	assert.Equal(t, "Receiver North West.jpg", got[slots.Key{Device: slots.Receiver, Direction: slots.Northwest}])
}

func TestSingleLetterAliasNeverTakesNortheast(t *testing.T) {
	m := New(nil, Strict, nil)

	got := m.Match([]upload.File{
		upload.Mem{FileName: "launcher ne.jpg"},
		upload.Mem{FileName: "launcher_n.jpg"},
	}, slots.Launcher)
	require.Contains(t, got, slots.North)
	assert.Equal(t, "launcher_n.jpg", got[slots.North].Name())
	assert.Equal(t, "launcher ne.jpg", got[slots.Northeast].Name())

	got = m.Match([]upload.File{upload.Mem{FileName: "launcher northeast.jpg"}}, slots.Launcher)
	assert.NotContains(t, got, slots.North)
	assert.Contains(t, got, slots.Northeast)
}

func TestMatchSingleDevice(t *testing.T) {
	got := New(nil, Strict, nil).Match(fullSet(), slots.Receiver)
	assert.Len(t, got, 9)
	assert.Equal(t, "receiver.jpg", got[slots.Full].Name())
	assert.Equal(t, "receiver sw.jpg", got[slots.Southwest].Name())
}

func TestFullSlotRequiresExactName(t *testing.T) {
	files := append(without(fullSet(), "launcher.jpg"), upload.Mem{FileName: "job launcher.jpg"})
	_, err := New(nil, Lenient, nil).MatchAll(files)
	var missing *MissingSlotError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []slots.Key{{Device: slots.Launcher, Direction: slots.Full}}, missing.Keys())
}

func TestDuplicateFirstUploadWins(t *testing.T) {
	files := append(without(fullSet(), "receiver nw.jpg"), upload.Mem{FileName: "Launcher_North (2).jpg"})
	m := New(nil, Strict, nil)

	res := m.Analyze(files)
	assert.Equal(t, "launcher north.jpg", res.Assignment[slots.Key{Device: slots.Launcher, Direction: slots.North}].Name())
	require.Len(t, res.Unmatched, 1)
	u := res.Unmatched[0]
	assert.Equal(t, Duplicate, u.Reason)
	assert.Equal(t, slots.Key{Device: slots.Launcher, Direction: slots.North}, u.Conflict)
	assert.Equal(t, "launcher north.jpg", u.Winner)
	assert.Contains(t, u.String(), "already filled by launcher north.jpg")

	_, err := m.MatchAll(files)
	var missing *MissingSlotError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []slots.Key{{Device: slots.Receiver, Direction: slots.Northwest}}, missing.Keys())
	assert.Contains(t, err.Error(), "Launcher_North (2).jpg")
}

func TestMissingSlotIsExhaustive(t *testing.T) {
	m := New(nil, Strict, nil)

	_, err := m.MatchAll(without(fullSet(), "receiver sw.jpg"))
	var missing *MissingSlotError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []slots.Key{{Device: slots.Receiver, Direction: slots.Southwest}}, missing.Keys())
	assert.Equal(t, "no photo for 1 slot(s): Receiver Southwest", err.Error())

	_, err = m.MatchAll(without(fullSet(), "launcher.jpg", "receiver.jpg"))
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []slots.Key{
		{Device: slots.Launcher, Direction: slots.Full},
		{Device: slots.Receiver, Direction: slots.Full},
	}, missing.Keys())
}

func TestStrictRejectsLeftovers(t *testing.T) {
	files := append(fullSet(), upload.Mem{FileName: "site overview.jpg"}, upload.Mem{FileName: "launcher top.jpg"})

	_, err := New(nil, Strict, nil).MatchAll(files)
	var amb *AmbiguousMatchError
	require.True(t, errors.As(err, &amb))
	assert.Equal(t, 20, amb.Count)
	require.Len(t, amb.Unmatched, 2)
	assert.Equal(t, NoDevice, amb.Unmatched[0].Reason)
	assert.Equal(t, NoDirection, amb.Unmatched[1].Reason)
	assert.Equal(t, slots.Launcher, amb.Unmatched[1].Device)
	assert.Contains(t, err.Error(), "expected 18 uploads, got 20")

	a, err := New(nil, Lenient, nil).MatchAll(files)
	require.NoError(t, err)
	assert.Len(t, a, 18)
}

func TestMatchIsDeterministic(t *testing.T) {
	m := New(nil, Strict, nil)
	files := append(fullSet(), upload.Mem{FileName: "launcher north copy.jpg"})
	first := m.Analyze(files)
	second := m.Analyze(files)
	assert.Equal(t, first.Assignment.Names(), second.Assignment.Names())
	assert.Equal(t, first.Unmatched, second.Unmatched)
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"": Strict, "STRICT": Strict, " lenient ": Lenient} {
		got, err := ParseMode(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseMode("loose")
	assert.Error(t, err)
}
