package vworld

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const okBody = `{
	"response": {
		"service": {"name": "address", "version": "2.0", "operation": "getcoord", "time": "12(ms)"},
		"status": "OK",
		"input": {"type": "road", "address": "경기도 수원시 영통구 영통동 123"},
		"refined": {
			"text": "경기도 수원시 영통구 영통동 123",
			"structure": {
				"level0": "대한민국",
				"level1": "경기도",
				"level2": "수원시 영통구",
				"level3": "",
				"level4L": "",
				"level4LC": "",
				"level4A": "영통1동",
				"level4AC": "4111760000",
				"level5": "123",
				"detail": ""
			}
		},
		"result": {"crs": "EPSG:4326", "point": {"x": "127.0712", "y": "37.2516"}}
	}
}`

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(srvURL string, opts ...Option) *Client {
	base := []Option{WithKey("test-key"), WithBaseURL(srvURL), WithRateLimit(0)}
	return New(append(base, opts...)...)
}

func TestLookup_OK(t *testing.T) {
	var gotQuery map[string][]string
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json;charset=UTF-8")
		_, _ = io.WriteString(w, okBody)
	})

	resp, err := newTestClient(srv.URL).Lookup(context.Background(), "경기도 수원시 영통구 영통동 123", TypeRoad)
	require.NoError(t, err)

	assert.Equal(t, StatusOK, resp.Status)
	require.NotNil(t, resp.Point)
	assert.InDelta(t, 127.0712, resp.Point.X, 0.00001)
	assert.InDelta(t, 37.2516, resp.Point.Y, 0.00001)
	require.NotNil(t, resp.Structure)
	assert.Equal(t, "영통1동", resp.Structure.Level4A)
	assert.Equal(t, "경기도 수원시 영통구 영통동 123", resp.Refined)
	assert.Nil(t, resp.Error)

	assert.Equal(t, []string{"getCoord"}, gotQuery["request"])
	assert.Equal(t, []string{"road"}, gotQuery["type"])
	assert.Equal(t, []string{"epsg:4326"}, gotQuery["crs"])
	assert.Equal(t, []string{"2.0"}, gotQuery["version"])
	assert.Equal(t, []string{"test-key"}, gotQuery["key"])
	assert.Equal(t, []string{"경기도 수원시 영통구 영통동 123"}, gotQuery["address"])
}

func TestLookup_NumericCoordinates(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"response":{"status":"OK","result":{"point":{"x":127.5,"y":37.5}}}}`)
	})

	resp, err := newTestClient(srv.URL).Lookup(context.Background(), "x", TypeParcel)
	require.NoError(t, err)
	require.NotNil(t, resp.Point)
	assert.InDelta(t, 127.5, resp.Point.X, 0.00001)
	assert.InDelta(t, 37.5, resp.Point.Y, 0.00001)
	assert.Nil(t, resp.Structure)
}

func TestLookup_NotFound(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"response":{"status":"NOT_FOUND","input":{"type":"road","address":"없는 주소"}}}`)
	})

	resp, err := newTestClient(srv.URL).Lookup(context.Background(), "없는 주소", TypeRoad)
	require.NoError(t, err)
	assert.Equal(t, StatusNotFound, resp.Status)
	assert.Nil(t, resp.Point)
}

func TestLookup_ProviderError(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"response":{"status":"ERROR","error":{"level":"1","code":"INVALID_KEY","text":"등록되지 않은 인증키입니다."}}}`)
	})

	resp, err := newTestClient(srv.URL).Lookup(context.Background(), "x", TypeRoad)
	require.NoError(t, err)
	assert.Equal(t, StatusError, resp.Status)
	require.NotNil(t, resp.Error)
	assert.True(t, resp.Error.KeyRejected())
	assert.Contains(t, resp.Error.Error(), "INVALID_KEY")
}

func TestLookup_MissingKey(t *testing.T) {
	called := false
	srv := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		called = true
	})

	_, err := New(WithBaseURL(srv.URL)).Lookup(context.Background(), "x", TypeRoad)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrMissingKey))
	assert.False(t, called)
}

func TestLookup_Non2xx(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := newTestClient(srv.URL).Lookup(context.Background(), "x", TypeRoad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
	assert.False(t, eris.Is(err, ErrMalformedResponse))
}

func TestLookup_HTMLBody(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, "<html>maintenance</html>")
	})

	_, err := newTestClient(srv.URL).Lookup(context.Background(), "x", TypeRoad)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrMalformedResponse))
	assert.Contains(t, err.Error(), "text/html")
}

func TestLookup_MissingStatus(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"foo":"bar"}`)
	})

	_, err := newTestClient(srv.URL).Lookup(context.Background(), "x", TypeRoad)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrMalformedResponse))
}

func TestLookup_Timeout(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	_, err := newTestClient(srv.URL, WithTimeout(50*time.Millisecond)).Lookup(context.Background(), "x", TypeRoad)
	require.Error(t, err)
	assert.False(t, eris.Is(err, ErrMalformedResponse))
	assert.False(t, eris.Is(err, ErrMissingKey))
}

func TestParse_PointWithoutCoordinates(t *testing.T) {
	resp, err := Parse([]byte(`{"response":{"status":"OK","result":{"point":{}}}}`))
	require.NoError(t, err)
	assert.Nil(t, resp.Point)
}

func TestParse_InvalidCoordinate(t *testing.T) {
	_, err := Parse([]byte(`{"response":{"status":"OK","result":{"point":{"x":"abc","y":"37"}}}}`))
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrMalformedResponse))
}

func TestHasKey(t *testing.T) {
	assert.False(t, New().HasKey())
	assert.True(t, New(WithKey("k")).HasKey())
}

func TestAPIError_KeyRejected(t *testing.T) {
	tests := []struct {
		code     string
		expected bool
	}{
		{"INVALID_KEY", true},
		{"INCORRECT_KEY", true},
		{"UNAVAILABLE_KEY", true},
		{"PARAM_REQUIRED", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, (&APIError{Code: tt.code}).KeyRejected(), "code=%s", tt.code)
	}
}

func TestTileURL(t *testing.T) {
	assert.Equal(t, "https://api.vworld.kr/req/wmts/1.0.0/k/Base/{z}/{y}/{x}.png", TileURL("", "k", LayerBase))
	assert.Equal(t, "https://api.vworld.kr/req/wmts/1.0.0/k/Satellite/{z}/{y}/{x}.jpeg", TileURL("", "k", LayerSatellite))
	assert.Equal(t, "http://tiles.test/k/Hybrid/{z}/{y}/{x}.png", TileURL("http://tiles.test", "k", LayerHybrid))
}
