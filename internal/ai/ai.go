// Package ai proposes fixes for uploads the matcher could not place, by
// asking a vision model which view a photograph shows.
package ai

import (
	"context"
	"fmt"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/thywilljoshua/inspection-report/internal/match"
	"github.com/thywilljoshua/inspection-report/internal/slots"
	"github.com/thywilljoshua/inspection-report/internal/upload"
)

// Guess is a classifier's answer for one photograph. Direction is empty or
// "full" for the whole-device view.
type Guess struct {
	Device     string  `json:"device"`
	Direction  string  `json:"direction"`
	Confidence float64 `json:"confidence"`
}

// Classifier looks at a photograph and guesses its slot.
type Classifier interface {
	Classify(ctx context.Context, name string, data []byte) (Guess, error)
}

// Noop never guesses.
type Noop struct{}

func (Noop) Classify(ctx context.Context, name string, data []byte) (Guess, error) {
	return Guess{}, nil
}

// Suggestion is advice for one unmatched upload.
type Suggestion struct {
	File    string `json:"file"`
	Problem string `json:"problem"`
	// Slot and Rename are empty when no open slot fits the guess.
	Slot       string  `json:"slot,omitempty"`
	Rename     string  `json:"rename,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Resolve maps a guess onto a slot using the matcher's own naming rules, so
// a guess resolves exactly when a file named after it would.
func Resolve(m *match.Matcher, g Guess) (slots.Slot, bool) {
	dev := strings.TrimSpace(g.Device)
	if dev == "" {
		return slots.Slot{}, false
	}
	name := dev
	if dir := strings.TrimSpace(g.Direction); dir != "" && !strings.EqualFold(dir, "full") {
		name += " " + dir
	}
	res := m.Analyze([]upload.File{upload.Mem{FileName: name}})
	for k := range res.Assignment {
		return m.Registry().Lookup(k.Device, k.Direction)
	}
	return slots.Slot{}, false
}

// Suggest classifies every upload that filled no slot and proposes a
// canonical name for it when the guessed slot is still open. Classifier
// failures are logged and leave that suggestion without a slot.
func Suggest(ctx context.Context, m *match.Matcher, c Classifier, files []upload.File, log *zap.Logger) ([]Suggestion, error) {
	if log == nil {
		log = zap.NewNop()
	}
	res := m.Analyze(files)
	open := make(map[slots.Key]bool, len(res.Missing))
	for _, s := range res.Missing {
		open[s.Key()] = true
	}

	out := make([]Suggestion, 0, len(res.Unmatched))
	for _, u := range res.Unmatched {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sg := Suggestion{File: u.Name, Problem: u.String()}
		data, err := files[u.Index].Bytes()
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", u.Name, err)
		}
		g, err := c.Classify(ctx, u.Name, data)
		if err != nil {
			log.Warn("classification failed", zap.String("file", u.Name), zap.Error(err))
			out = append(out, sg)
			continue
		}
		if s, ok := Resolve(m, g); ok && open[s.Key()] {
			// each open slot is offered once
			delete(open, s.Key())
			sg.Slot = s.String()
			sg.Rename = slots.CanonicalName(s, path.Ext(u.Name))
			sg.Confidence = g.Confidence
		}
		out = append(out, sg)
	}
	return out, nil
}
