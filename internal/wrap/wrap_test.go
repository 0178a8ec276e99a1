// ABOUTME: Tests for controller, service, and gRPC wrapping
// ABOUTME: Verifies envelopes, error translation, panic recovery, and exclusions

package wrap

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/2389/sml-gateway/internal/apperr"
	"github.com/2389/sml-gateway/internal/metrics"
	"github.com/2389/sml-gateway/internal/reqctx"
)

func newTestWrapper(t *testing.T, opts ...Option) (*Wrapper, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return New("things", logger, opts...), &buf
}

func serve(t *testing.T, h http.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	rc := reqctx.New()
	rc.Path = "/things"
	req := httptest.NewRequest(http.MethodGet, "/things", nil)
	req = req.WithContext(reqctx.With(req.Context(), rc))
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestController_SuccessEnvelope(t *testing.T) {
	w, _ := newTestWrapper(t)

	rec := serve(t, w.Controller("Get", func(http.ResponseWriter, *http.Request) (any, error) {
		return map[string]any{"id": "t1"}, nil
	}))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	body := decode(t, rec)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, map[string]any{"id": "t1"}, body["data"])
}

func TestController_NilDataStillEnveloped(t *testing.T) {
	w, _ := newTestWrapper(t)

	rec := serve(t, w.Controller("Get", func(http.ResponseWriter, *http.Request) (any, error) {
		return nil, nil
	}))

	body := decode(t, rec)
	assert.Equal(t, "success", body["status"])
	assert.Contains(t, body, "data")
	assert.Nil(t, body["data"])
}

func TestController_Created(t *testing.T) {
	w, _ := newTestWrapper(t)

	rec := serve(t, w.Controller("Create", func(http.ResponseWriter, *http.Request) (any, error) {
		return Created(map[string]any{"id": "t1"}), nil
	}))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "success", decode(t, rec)["status"])
}

func TestController_NoContent(t *testing.T) {
	w, _ := newTestWrapper(t)

	rec := serve(t, w.Controller("Delete", func(http.ResponseWriter, *http.Request) (any, error) {
		return NoContent, nil
	}))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestController_EnvelopePassthrough(t *testing.T) {
	w, _ := newTestWrapper(t)

	rec := serve(t, w.Controller("List", func(http.ResponseWriter, *http.Request) (any, error) {
		return Envelope{Status: "success", Data: []int{1, 2}, Meta: map[string]any{"total": 2}}, nil
	}))

	body := decode(t, rec)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, []any{1.0, 2.0}, body["data"])
	assert.Equal(t, map[string]any{"total": 2.0}, body["meta"])
}

func TestController_AlreadyWrittenIsForwarded(t *testing.T) {
	w, _ := newTestWrapper(t)

	rec := serve(t, w.Controller("Raw", func(rw http.ResponseWriter, _ *http.Request) (any, error) {
		rw.Header().Set("Content-Type", "text/plain")
		rw.WriteHeader(http.StatusTeapot)
		_, _ = rw.Write([]byte("short and stout"))
		return "ignored", nil
	}))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "short and stout", rec.Body.String())
}

func TestController_NotFoundError(t *testing.T) {
	w, logs := newTestWrapper(t)

	rec := serve(t, w.Controller("Get", func(http.ResponseWriter, *http.Request) (any, error) {
		return nil, apperr.NotFound("thing t1 not found")
	}))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "error", body["status"])
	assert.Nil(t, body["data"])
	errBody := body["error"].(map[string]any)
	assert.Equal(t, "NOT_FOUND", errBody["code"])
	assert.Equal(t, "thing t1 not found", errBody["message"])
	assert.Equal(t, 404.0, errBody["status"])
	assert.Contains(t, logs.String(), `"level":"WARN"`)
}

func TestController_PlainErrorIsInternal(t *testing.T) {
	t.Run("development exposes message", func(t *testing.T) {
		w, _ := newTestWrapper(t)
		rec := serve(t, w.Controller("Get", func(http.ResponseWriter, *http.Request) (any, error) {
			return nil, errors.New("db exploded")
		}))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		errBody := decode(t, rec)["error"].(map[string]any)
		assert.Equal(t, "INTERNAL_ERROR", errBody["code"])
		assert.Equal(t, "db exploded", errBody["message"])
	})

	t.Run("production hides message", func(t *testing.T) {
		w, logs := newTestWrapper(t, WithProduction(true))
		rec := serve(t, w.Controller("Get", func(http.ResponseWriter, *http.Request) (any, error) {
			return nil, errors.New("db exploded")
		}))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "db exploded")
		errBody := decode(t, rec)["error"].(map[string]any)
		assert.Equal(t, "Internal server error", errBody["message"])
		// The original error is still logged server-side.
		assert.Contains(t, logs.String(), "db exploded")
	})
}

func TestController_PanicRecovered(t *testing.T) {
	w, logs := newTestWrapper(t, WithProduction(true))

	rec := serve(t, w.Controller("Boom", func(http.ResponseWriter, *http.Request) (any, error) {
		panic("kaboom")
	}))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL_ERROR", decode(t, rec)["error"].(map[string]any)["code"])
	assert.Contains(t, logs.String(), "stack")
}

func TestController_Excluded(t *testing.T) {
	w, logs := newTestWrapper(t, WithExclude("Health"))

	rec := serve(t, w.Controller("Health", func(http.ResponseWriter, *http.Request) (any, error) {
		return map[string]string{"status": "ok"}, nil
	}))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"status": "ok"}, decode(t, rec))
	assert.Empty(t, logs.String())
}

func TestController_LogsRequestAttributes(t *testing.T) {
	w, logs := newTestWrapper(t)

	serve(t, w.Controller("Get", func(http.ResponseWriter, *http.Request) (any, error) {
		return "ok", nil
	}))

	out := logs.String()
	assert.Contains(t, out, `"component":"things"`)
	assert.Contains(t, out, `"method":"Get"`)
	assert.Contains(t, out, `"path":"/things"`)
	assert.Contains(t, out, `"request_id"`)
}

func TestCall_TranslatesErrors(t *testing.T) {
	w, _ := newTestWrapper(t)
	ctx := context.Background()

	v, err := Call(ctx, w, "Find", func(context.Context) (int, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	_, err = Call(ctx, w, "Find", func(context.Context) (int, error) { return 0, errors.New("raw") })
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.CodeInternal, appErr.Code)

	_, err = Call(ctx, w, "Find", func(context.Context) (int, error) { return 0, apperr.Forbidden("no") })
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.CodeForbidden, appErr.Code)
}

func TestCall_RecoversPanic(t *testing.T) {
	w, _ := newTestWrapper(t)

	var appErr *apperr.Error
	_, err := Call(context.Background(), w, "Explode", func(context.Context) (string, error) {
		var m map[string]int
		m["x"] = 1
		return "", nil
	})
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.CodeInternal, appErr.Code)
}

func TestCall_ExcludedReturnsRawError(t *testing.T) {
	w, _ := newTestWrapper(t, WithExclude("Raw"))
	raw := errors.New("raw")

	_, err := Call(context.Background(), w, "Raw", func(context.Context) (int, error) { return 0, raw })
	assert.Same(t, raw, err)
}

func TestDo(t *testing.T) {
	w, _ := newTestWrapper(t)

	assert.NoError(t, Do(context.Background(), w, "Touch", func(context.Context) error { return nil }))

	err := Do(context.Background(), w, "Touch", func(context.Context) error { return apperr.NotFound("gone") })
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 404, appErr.HTTPStatus)
}

func TestMetrics(t *testing.T) {
	c := metrics.NewCollector()
	w, _ := newTestWrapper(t, WithMetrics(c))
	ctx := context.Background()

	_, _ = Call(ctx, w, "Find", func(context.Context) (int, error) { return 1, nil })
	_, _ = Call(ctx, w, "Find", func(context.Context) (int, error) { return 0, errors.New("x") })
	_, _ = Call(ctx, w, "Find", func(context.Context) (int, error) { panic("y") })

	assert.Equal(t, 1.0, testutil.ToFloat64(c.WrappedCalls.WithLabelValues("things", "Find", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.WrappedCalls.WithLabelValues("things", "Find", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.WrappedCalls.WithLabelValues("things", "Find", "panic")))
}

func TestUnaryServerInterceptor(t *testing.T) {
	w, _ := newTestWrapper(t)
	interceptor := w.UnaryServerInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/things.v1.Things/Get"}

	resp, err := interceptor(context.Background(), nil, info, func(context.Context, any) (any, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp)

	_, err = interceptor(context.Background(), nil, info, func(context.Context, any) (any, error) {
		return nil, apperr.NotFound("missing")
	})
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = interceptor(context.Background(), nil, info, func(context.Context, any) (any, error) {
		panic("boom")
	})
	assert.Equal(t, codes.Internal, status.Code(err))
}
