// Package wrap decorates controller and service methods with logging,
// panic recovery, error translation, and response shaping.
//
// A Wrapper is built once per component:
//
//	w := wrap.New("users", logger, wrap.WithProduction(cfg.IsProduction()))
//
// Controllers return (value, error) and let the wrapper write the response:
//
//	r.Get("/api/users/{id}", w.Controller("Get", func(rw http.ResponseWriter, r *http.Request) (any, error) {
//	    return svc.Get(r.Context(), chi.URLParam(r, "id"))
//	}))
//
// Success responses are {"status":"success","data":<value>} unless the
// controller already wrote to the ResponseWriter, returned an Envelope, or
// returned NoContent or Created. Failures and panics are translated with
// apperr.Translate and written as the taxonomy error body.
//
// Services wrap their methods with Call and Do so callers only ever see
// *apperr.Error values:
//
//	func (s *Service) Get(ctx context.Context, id string) (*User, error) {
//	    return wrap.Call(ctx, s.w, "Get", func(ctx context.Context) (*User, error) { ... })
//	}
//
// Names passed to WithExclude skip all of this and run the function directly.
package wrap
