package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	genai "google.golang.org/genai"
)

// DefaultModel is used when none is configured.
const DefaultModel = "gemini-2.5-flash"

// ErrNoAPIKey is returned by NewGemini without a key.
var ErrNoAPIKey = errors.New("missing Gemini API key")

type Gemini struct {
	client *genai.Client
	model  string
}

func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	if model == "" {
		model = DefaultModel
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, err
	}
	return &Gemini{client: c, model: model}, nil
}

const classifyPrompt = `You are looking at one photograph from an equipment inspection.
The equipment is either the LAUNCHER or the RECEIVER. Each is photographed
once in full and once from each compass direction.

Return ONLY this JSON object, no code fences, no explanation:
{"device": "launcher" | "receiver", "direction": "full" | "north" | "northeast" | "east" | "southeast" | "south" | "southwest" | "west" | "northwest", "confidence": 0.0-1.0}

The original file name was %q; it may be misspelled or misleading.`

// Classify sends the photograph inline and parses the model's JSON answer.
func (g *Gemini) Classify(ctx context.Context, name string, data []byte) (Guess, error) {
	var out Guess
	if g.client == nil {
		return out, errors.New("gemini not configured")
	}
	mt := mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	if !strings.HasPrefix(mt, "image/") {
		mt = http.DetectContentType(data)
	}
	content := []*genai.Content{{
		Role: genai.RoleUser,
		Parts: []*genai.Part{
			{Text: fmt.Sprintf(classifyPrompt, name)},
			{InlineData: &genai.Blob{MIMEType: mt, Data: data}},
		},
	}}
	res, err := g.client.Models.GenerateContent(ctx, g.model, content, nil)
	if err != nil {
		return out, fmt.Errorf("gemini API call failed: %w", err)
	}
	return parseGuess(res.Text())
}

func parseGuess(text string) (Guess, error) {
	var out Guess
	js := stripCodeFences(text)
	if err := json.Unmarshal([]byte(js), &out); err != nil {
		s := findFirstJSON(js)
		if s == "" {
			return out, fmt.Errorf("no JSON in model response: %w", err)
		}
		if err2 := json.Unmarshal([]byte(s), &out); err2 != nil {
			return out, fmt.Errorf("failed to parse model response: %w (original error: %v)", err2, err)
		}
	}
	return out, nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if nl := strings.Index(s, "\n"); nl != -1 {
			s = s[nl+1:]
		}
	}
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSpace(strings.TrimSuffix(s, "```"))
	}
	return s
}

// findFirstJSON returns the first balanced {...} in s. Braces inside strings
// are not special-cased.
func findFirstJSON(s string) string {
	start, depth := -1, 0
	for i, r := range s {
		switch r {
		case '{':
			if start == -1 {
				start = i
			}
			depth++
		case '}':
			if start != -1 {
				depth--
				if depth == 0 {
					return s[start : i+1]
				}
			}
		}
	}
	return ""
}
