package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aukilabs/hagall-spatial/models"
	"github.com/aukilabs/hagall-spatial/quadtree"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/require"
)

func TestMetricsPathFormatter(t *testing.T) {
	require.Empty(t, MetricsPathFormatter(http.StatusNotFound, "/unknown"))
	require.Equal(t, "/health", MetricsPathFormatter(http.StatusOK, "/health"))
	require.Equal(t, "/spaces/{id}", MetricsPathFormatter(http.StatusOK, "/spaces/42"))
}

func TestHandleReadyCheck(t *testing.T) {
	ready := false
	h := HandleReadyCheck(func() bool { return ready })

	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	ready = true
	w = httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	require.Equal(t, http.StatusOK, w.Code)
}

func TestHandleVersion(t *testing.T) {
	w := httptest.NewRecorder()
	HandleVersion("v0.42.0")(w, httptest.NewRequest(http.MethodGet, "/version", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "v0.42.0", w.Body.String())
}

func TestHandleWithCORS(t *testing.T) {
	var called bool
	h := HandleWithCORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	t.Run("preflight", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/spaces", nil))
		require.Equal(t, http.StatusNoContent, w.Code)
		require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		require.False(t, called)
	})

	t.Run("request", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/spaces", nil))
		require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		require.True(t, called)
	})
}

func TestVerifyAuthTokenHandler(t *testing.T) {
	h := VerifyAuthTokenHandler("secret", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("missing token", func(t *testing.T) {
		w := httptest.NewRecorder()
		h(w, httptest.NewRequest(http.MethodPost, "/smoke-test", nil))
		require.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/smoke-test", nil)
		r.Header.Set(HeaderAuthorization, "Bearer secret")

		w := httptest.NewRecorder()
		h(w, r)
		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("no token configured", func(t *testing.T) {
		open := VerifyAuthTokenHandler("", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

		w := httptest.NewRecorder()
		open(w, httptest.NewRequest(http.MethodPost, "/smoke-test", nil))
		require.Equal(t, http.StatusOK, w.Code)
	})
}

func TestHandleSpaces(t *testing.T) {
	var store models.SpaceStore

	space, err := store.New(quadtree.NewRectangle(0, 0, 100, 100), 4, 3)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := space.Put(nil, "", quadtree.NewPoint(float64(i), float64(i)))
		require.NoError(t, err)
	}

	t.Run("list", func(t *testing.T) {
		w := httptest.NewRecorder()
		HandleSpaces(&store)(w, httptest.NewRequest(http.MethodGet, "/spaces", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var res []models.SpaceSummary
		err := json.Unmarshal(w.Body.Bytes(), &res)
		require.NoError(t, err)
		require.Len(t, res, 1)
		require.Equal(t, space.SpaceUUID, res[0].SpaceUUID)
		require.Equal(t, 5, res[0].EntityCount)
	})

	t.Run("debug info", func(t *testing.T) {
		w := httptest.NewRecorder()
		HandleSpace(&store)(w, httptest.NewRequest(http.MethodGet, "/spaces/1", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var res spaceDebugResponse
		err := json.Unmarshal(w.Body.Bytes(), &res)
		require.NoError(t, err)
		require.Equal(t, uint32(1), res.ID)
		require.Equal(t, 5, res.Index.ItemCount)
		require.Equal(t, 5, res.Index.NodeCount)
	})

	t.Run("not found", func(t *testing.T) {
		w := httptest.NewRecorder()
		HandleSpace(&store)(w, httptest.NewRequest(http.MethodGet, "/spaces/42", nil))
		require.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("bad id", func(t *testing.T) {
		w := httptest.NewRecorder()
		HandleSpace(&store)(w, httptest.NewRequest(http.MethodGet, "/spaces/ted", nil))
		require.Equal(t, http.StatusBadRequest, w.Code)
	})
}
