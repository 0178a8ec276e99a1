// ABOUTME: HTTP controller decoration producing the success and error envelopes
// ABOUTME: Handlers that already wrote a response are forwarded unchanged

package wrap

import (
	"net/http"

	"github.com/2389/sml-gateway/internal/apperr"
)

// ControllerFunc handles a request and returns the response payload.
type ControllerFunc func(w http.ResponseWriter, r *http.Request) (any, error)

// Envelope is written verbatim when a controller returns it.
type Envelope struct {
	Status string         `json:"status"`
	Data   any            `json:"data"`
	Meta   map[string]any `json:"meta,omitempty"`
}

// Result carries a payload with a non-default status code.
type Result struct {
	StatusCode int
	Data       any
}

// Created wraps v for a 201 response.
func Created(v any) Result {
	return Result{StatusCode: http.StatusCreated, Data: v}
}

type noContent struct{}

// NoContent makes the wrapper write 204 with an empty body.
var NoContent = noContent{}

// Controller returns an http.HandlerFunc running fn as method name.
func (w *Wrapper) Controller(name string, fn ControllerFunc) http.HandlerFunc {
	if w.Excluded(name) {
		return func(rw http.ResponseWriter, r *http.Request) {
			rec := &responseRecorder{ResponseWriter: rw}
			v, err := fn(rec, r)
			if rec.wrote {
				return
			}
			if err != nil {
				WriteError(rec, w.HandleError(err))
				return
			}
			if v != nil {
				WriteJSON(rec, http.StatusOK, v)
			}
		}
	}

	return func(rw http.ResponseWriter, r *http.Request) {
		logger := w.callLogger(r.Context(), name)
		logger.Debug("controller call")

		rec := &responseRecorder{ResponseWriter: rw}
		v, err := invokeController(fn, rec, r)
		if err != nil {
			appErr := w.fail(logger, name, err)
			if !rec.wrote {
				WriteError(rec, appErr)
			}
			return
		}

		w.succeed(logger, name)
		if rec.wrote {
			return
		}
		writeSuccess(rec, v)
	}
}

func invokeController(fn ControllerFunc, rw http.ResponseWriter, r *http.Request) (v any, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = recovered(p)
		}
	}()
	return fn(rw, r)
}

func writeSuccess(rw http.ResponseWriter, v any) {
	switch res := v.(type) {
	case noContent:
		rw.WriteHeader(http.StatusNoContent)
	case Envelope:
		WriteJSON(rw, http.StatusOK, res)
	case *Envelope:
		WriteJSON(rw, http.StatusOK, res)
	case Result:
		WriteJSON(rw, res.StatusCode, successEnvelope(res.Data))
	default:
		WriteJSON(rw, http.StatusOK, successEnvelope(v))
	}
}

func successEnvelope(v any) Envelope {
	return Envelope{Status: "success", Data: v}
}

// WriteError writes the taxonomy body with the error's status.
func WriteError(rw http.ResponseWriter, e *apperr.Error) {
	if e == nil {
		e = apperr.Internal("unknown error")
	}
	WriteJSON(rw, e.HTTPStatus, e.Body())
}
