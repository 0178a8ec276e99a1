// ABOUTME: HTTP adapter exposing registry introspection and execution
// ABOUTME: What a caller can see follows the same visibility tiers as Execute

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"

	"github.com/2389/sml-gateway/internal/apperr"
	"github.com/2389/sml-gateway/internal/auth"
	"github.com/2389/sml-gateway/internal/reqctx"
	"github.com/2389/sml-gateway/internal/sml"
	"github.com/2389/sml-gateway/internal/wrap"
)

// maxExecuteBodyBytes bounds execute request bodies.
const maxExecuteBodyBytes = 1 << 20

// ExecuteRequest is the body of POST /api/sml/execute.
type ExecuteRequest struct {
	Path   string     `json:"path"`
	Params sml.Params `json:"params"`
}

// ExecuteResponse carries the operation result and its trace id.
type ExecuteResponse struct {
	Path    string `json:"path"`
	TraceID string `json:"traceId"`
	Result  any    `json:"result"`
}

type smlController struct {
	reg  *sml.Registry
	wrap *wrap.Wrapper
}

func newSMLController(reg *sml.Registry, w *wrap.Wrapper) *smlController {
	return &smlController{reg: reg, wrap: w}
}

// Routes mounts the adapter on r.
func (c *smlController) Routes(r chi.Router) {
	r.Route("/api/sml", func(r chi.Router) {
		r.Get("/meta", c.wrap.Controller("Meta", c.meta))
		r.Get("/list", c.wrap.Controller("List", c.list))
		r.Get("/resolve", c.wrap.Controller("Resolve", c.resolve))
		r.Post("/execute", c.wrap.Controller("Execute", c.execute))
		r.Get("/docs", c.wrap.Controller("Docs", c.docs))
	})
}

// visibleTo returns the tiers id may discover. Nil means every tier.
func visibleTo(id *auth.Identity) []sml.Visibility {
	switch {
	case id.IsAdmin():
		return nil
	case id.IsAnonymous():
		return []sml.Visibility{sml.VisibilityPublic}
	default:
		return []sml.Visibility{sml.VisibilityPublic, sml.VisibilityInternal}
	}
}

func (c *smlController) snapshot(id *auth.Identity) sml.Meta {
	if id.IsAdmin() {
		return c.reg.Meta()
	}
	return c.reg.PublicMeta(false)
}

func (c *smlController) meta(_ http.ResponseWriter, r *http.Request) (any, error) {
	return c.snapshot(reqctx.UserFrom(r.Context())), nil
}

func (c *smlController) list(_ http.ResponseWriter, r *http.Request) (any, error) {
	prefix := r.URL.Query().Get("path")
	allowed := visibleTo(reqctx.UserFrom(r.Context()))

	var children []string
	if allowed == nil {
		children = c.reg.List(prefix)
	} else {
		children = c.reg.ListVisible(prefix, allowed...)
	}
	if children == nil {
		children = []string{}
	}
	return map[string]any{"path": prefix, "children": children}, nil
}

func (c *smlController) resolve(_ http.ResponseWriter, r *http.Request) (any, error) {
	path := r.URL.Query().Get("path")
	if path == "" {
		return nil, apperr.Validation("path is required", apperr.FieldError{
			Field: "path", Message: "path is required", Code: "required",
		})
	}

	res := c.reg.Resolve(path)
	allowed := visibleTo(reqctx.UserFrom(r.Context()))
	if allowed != nil {
		switch res.Kind {
		case sml.KindOperation:
			if !slices.Contains(allowed, res.Visibility) {
				res = sml.Resolution{Path: path}
			}
		case sml.KindNamespace:
			res.Children = c.reg.ListVisible(path, allowed...)
			if len(res.Children) == 0 {
				res = sml.Resolution{Path: path}
			}
		}
		res.Owner = ""
	}

	if !res.Exists {
		return nil, sml.NotFoundError(path, "path")
	}
	return res, nil
}

func (c *smlController) execute(w http.ResponseWriter, r *http.Request) (any, error) {
	var req ExecuteRequest
	if err := decodeBody(w, r, &req); err != nil {
		return nil, err
	}
	if req.Path == "" {
		return nil, apperr.Validation("path is required", apperr.FieldError{
			Field: "path", Message: "path is required", Code: "required",
		})
	}

	rc := reqctx.MustFrom(r.Context())
	ec := &sml.ExecContext{
		User:      rc.User,
		RequestID: rc.RequestID,
		TraceID:   rc.RequestID,
	}
	result, err := c.reg.Execute(r.Context(), req.Path, req.Params, ec)
	if err != nil {
		return nil, err
	}
	return ExecuteResponse{Path: req.Path, TraceID: ec.TraceID, Result: result}, nil
}

func (c *smlController) docs(w http.ResponseWriter, r *http.Request) (any, error) {
	html, err := sml.RenderDocsHTML(c.snapshot(reqctx.UserFrom(r.Context())))
	if err != nil {
		return nil, err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(html)
	return nil, nil
}

// decodeBody reads one JSON object. Decoder errors are left for the wrapper
// to translate.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxExecuteBodyBytes))
	err := dec.Decode(v)
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return apperr.BadRequestf("request body exceeds %d bytes", maxErr.Limit)
	}
	return err
}
