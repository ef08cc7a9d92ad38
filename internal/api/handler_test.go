package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/taoyao-code/s1-panel-bridge/internal/api/middleware"
	"github.com/taoyao-code/s1-panel-bridge/internal/gateway"
	"github.com/taoyao-code/s1-panel-bridge/internal/outbound"
	"github.com/taoyao-code/s1-panel-bridge/internal/planner"
	"github.com/taoyao-code/s1-panel-bridge/internal/storage"
)

type fakeEngine struct {
	reloadErr  error
	weatherErr error
	controls   bool
	weather    []gateway.Weather
	lastPanel  string
}

func (f *fakeEngine) Snapshot() outbound.Snapshot {
	return outbound.Snapshot{
		Current: &outbound.JobInfo{ID: "j1", Panel: "0x54ef441000aabbcc", Channel: 2, Kind: "configure"},
		Queued:  []outbound.JobInfo{},
	}
}

func (f *fakeEngine) Reload(context.Context) (*planner.Plan, error) {
	if f.reloadErr != nil {
		return nil, f.reloadErr
	}
	return &planner.Plan{Panels: []string{"0x54ef441000aabbcc"}, Jobs: make([]*outbound.Job, 3)}, nil
}

func (f *fakeEngine) Fingerprints(_ context.Context, panel string) (*storage.Record, error) {
	f.lastPanel = panel
	return &storage.Record{
		Channels: map[int][]string{0: {"aabb"}},
		Names:    map[int]string{0: "Kitchen"},
	}, nil
}

func (f *fakeEngine) Missing() []gateway.MissingChannel {
	return []gateway.MissingChannel{{Panel: "0x54ef441000aabbcc", Index: 1, Resource: "04010055", Count: 2}}
}

func (f *fakeEngine) SetControls(enabled bool) { f.controls = enabled }
func (f *fakeEngine) Controls() bool           { return f.controls }

func (f *fakeEngine) PushWeather(_ context.Context, w gateway.Weather) error {
	if f.weatherErr != nil {
		return f.weatherErr
	}
	f.weather = append(f.weather, w)
	return nil
}

func newTestRouter(eng Engine, auth middleware.AuthConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterPanelRoutes(r, eng, auth, zap.NewNop())
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestPanelRoutes(t *testing.T) {
	eng := &fakeEngine{controls: true}
	r := newTestRouter(eng, middleware.AuthConfig{})

	t.Run("队列快照", func(t *testing.T) {
		w := do(r, http.MethodGet, "/api/queue", "")
		assert.Equal(t, http.StatusOK, w.Code)
		body := decode(t, w)
		cur := body["current"].(map[string]any)
		assert.Equal(t, "j1", cur["id"])
		assert.Equal(t, []any{}, body["queued"])
	})

	t.Run("重新配置", func(t *testing.T) {
		w := do(r, http.MethodPost, "/api/configure", "")
		assert.Equal(t, http.StatusAccepted, w.Code)
		body := decode(t, w)
		assert.EqualValues(t, 3, body["jobs"])
	})

	t.Run("指纹", func(t *testing.T) {
		w := do(r, http.MethodGet, "/api/panels/0x54EF441000AABBCC/fingerprints", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "0x54EF441000AABBCC", eng.lastPanel)
		body := decode(t, w)
		assert.Equal(t, map[string]any{"0": "Kitchen"}, body["names"])
	})

	t.Run("缺失通道", func(t *testing.T) {
		w := do(r, http.MethodGet, "/api/missing", "")
		assert.Equal(t, http.StatusOK, w.Code)
		list := decode(t, w)["missing"].([]any)
		require.Len(t, list, 1)
	})

	t.Run("控制开关", func(t *testing.T) {
		w := do(r, http.MethodPut, "/api/controls", `{"enabled":false}`)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.False(t, eng.controls)
		assert.Equal(t, false, decode(t, w)["enabled"])

		w = do(r, http.MethodGet, "/api/controls", "")
		assert.Equal(t, false, decode(t, w)["enabled"])
	})

	t.Run("控制开关缺少字段", func(t *testing.T) {
		w := do(r, http.MethodPut, "/api/controls", `{}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("天气默认紫外线未知", func(t *testing.T) {
		w := do(r, http.MethodPost, "/api/weather", `{"temperature":21.4,"humidity":55,"weatherCode":3}`)
		assert.Equal(t, http.StatusOK, w.Code)
		require.Len(t, eng.weather, 1)
		assert.Equal(t, float64(gateway.UnknownUV), eng.weather[0].UVIndex)
		assert.Equal(t, 3, eng.weather[0].WeatherCode)
	})

	t.Run("天气缺少温度", func(t *testing.T) {
		w := do(r, http.MethodPost, "/api/weather", `{"humidity":55}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestPanelRoutesErrors(t *testing.T) {
	eng := &fakeEngine{reloadErr: errors.New("open panels.yaml: no such file"), weatherErr: errors.New("publish failed")}
	r := newTestRouter(eng, middleware.AuthConfig{})

	w := do(r, http.MethodPost, "/api/configure", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, ErrReloadFailed.Error(), decode(t, w)["error"])

	w = do(r, http.MethodPost, "/api/weather", `{"temperature":20,"humidity":50,"uvIndex":2}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestPanelRoutesAuth(t *testing.T) {
	r := newTestRouter(&fakeEngine{}, middleware.AuthConfig{Enabled: true, APIKeys: []string{"admin-key-1234"}})

	w := do(r, http.MethodGet, "/api/queue", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/queue", nil)
	req.Header.Set("X-API-Key", "admin-key-1234")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
