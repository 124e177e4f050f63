package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/motorshop-backend/api/responses"
	"github.com/angelmondragon/motorshop-backend/pkg/types"
)

type observed struct {
	method, route string
	status        int
}

type recordingObserver struct {
	calls []observed
}

func (o *recordingObserver) ObserveRequest(method, route string, status int, _ time.Duration) {
	o.calls = append(o.calls, observed{method: method, route: route, status: status})
}

func TestLoggingReportsRoutePattern(t *testing.T) {
	obs := &recordingObserver{}
	r := chi.NewRouter()
	r.Use(Logging(nil, obs))
	r.Get("/parts/{partId}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Get("/quiet", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	for _, path := range []string{"/parts/9b2f", "/quiet", "/missing"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	require.Len(t, obs.calls, 3)
	assert.Equal(t, observed{"GET", "/parts/{partId}", http.StatusNoContent}, obs.calls[0])
	assert.Equal(t, observed{"GET", "/quiet", http.StatusOK}, obs.calls[1])
	assert.Equal(t, observed{"GET", "", http.StatusNotFound}, obs.calls[2])
}

func TestRoutePatternFallsBackToPath(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/work-orders/9b2f/payments", nil)

	assert.Equal(t, "", matchedRoute(req))
	assert.Equal(t, "/api/v1/work-orders/9b2f/payments", routePattern(req))
}

func TestRecovererWritesInternalEnvelope(t *testing.T) {
	h := RequestID(nil)(Recoverer(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("ledger exploded")
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/work-orders", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var env types.ErrorEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	assert.Equal(t, "INTERNAL_ERROR", env.Error.Code)
	assert.NotContains(t, env.Error.Message, "ledger exploded")
	assert.Equal(t, rec.Header().Get(responses.RequestIDHeader), env.RequestID)
}

func TestRecovererRepanicsAbortHandler(t *testing.T) {
	h := Recoverer(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}
