package server

import (
	"errors"
	"net/http"

	"github.com/thywilljoshua/inspection-report/internal/match"
	"github.com/thywilljoshua/inspection-report/internal/render"
	"github.com/thywilljoshua/inspection-report/internal/upload"
)

// errorBody is the JSON returned for every failed request.
type errorBody struct {
	Error   string   `json:"error"`
	Kind    string   `json:"kind"`
	Missing []string `json:"missing,omitempty"`
	Files   []string `json:"files,omitempty"`
}

// formError is a request body that is not a readable multipart form.
type formError struct{ err error }

func (e *formError) Error() string { return "invalid multipart form: " + e.err.Error() }

func (e *formError) Unwrap() error { return e.err }

// classify maps pipeline errors to a status and a body. Client mistakes are
// 4xx; a missing font is the operator's problem and stays 500.
func classify(err error) (int, errorBody) {
	body := errorBody{Error: err.Error(), Kind: "internal"}

	var (
		shape    *upload.InputShapeError
		missing  *match.MissingSlotError
		ambig    *match.AmbiguousMatchError
		tplErr   *render.TemplateExtractionError
		decode   *render.DecodeError
		fontErr  *render.FontUnavailableError
		tooLarge *http.MaxBytesError
		form     *formError
	)
	switch {
	case errors.As(err, &tooLarge):
		body.Kind = "too_large"
		return http.StatusRequestEntityTooLarge, body
	case errors.As(err, &form):
		body.Kind = "invalid_form"
		return http.StatusBadRequest, body
	case errors.As(err, &shape):
		body.Kind = "input_shape"
		return http.StatusBadRequest, body
	case errors.As(err, &missing):
		body.Kind = "missing_slot"
		for _, s := range missing.Missing {
			body.Missing = append(body.Missing, s.Title)
		}
		for _, u := range missing.Unmatched {
			body.Files = append(body.Files, u.Name)
		}
		return http.StatusUnprocessableEntity, body
	case errors.As(err, &ambig):
		body.Kind = "ambiguous_match"
		for _, u := range ambig.Unmatched {
			body.Files = append(body.Files, u.Name)
		}
		return http.StatusUnprocessableEntity, body
	case errors.As(err, &tplErr):
		body.Kind = "template"
		return http.StatusUnprocessableEntity, body
	case errors.As(err, &decode):
		body.Kind = "decode"
		body.Files = []string{decode.Name}
		return http.StatusUnprocessableEntity, body
	case errors.As(err, &fontErr):
		body.Kind = "font_unavailable"
		return http.StatusInternalServerError, body
	}
	return http.StatusInternalServerError, body
}
