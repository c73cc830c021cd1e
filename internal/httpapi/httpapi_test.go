package httpapi

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vinosuggest-engine/internal/app"
	"vinosuggest-engine/internal/config"
	"vinosuggest-engine/internal/events"
)

const sampleCatalog = `Winery,Variety,Country,Points,Description,Price
A,Pinot Noir,US,90,rich fruit cherry,20
B,Riesling,Germany,85,crisp citrus,15
C,Merlot,France,95,oak and vanilla,300
`

type testEnv struct {
	app     *app.App
	deps    Deps
	handler http.Handler
}

func newTestEnv(t *testing.T, limiter *ClientLimiter) *testEnv {
	t.Helper()
	for _, k := range []string{config.EnvDataDir, config.EnvPort, config.EnvStoreBackend, config.EnvLogLevel, config.EnvCatalog} {
		t.Setenv(k, "")
	}
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cleaned_wine_data.csv"), []byte(sampleCatalog), 0o644))

	a, err := app.Bootstrap(context.Background(), app.Options{
		DataDir:       dir,
		DefaultConfig: filepath.Join(dir, "none.yml"),
		EnvFile:       filepath.Join(dir, "none.env"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	var cfgVal atomic.Value
	cfgVal.Store(a.Config)

	d := Deps{
		App:         a,
		Hub:         events.NewHub(),
		CfgVal:      &cfgVal,
		UserCfgPath: a.CfgPath,
		LoadCfg:     func() (config.Config, error) { return app.LoadConfig(a.CfgPath, dir) },
		Limiter:     limiter,
	}
	return &testEnv{app: a, deps: d, handler: Handler(NewMux(d), d)}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) APIError {
	t.Helper()
	var e APIError
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &e))
	return e
}

const aliceBody = `{"username":"alice","preferences":{"Fruitiness/Flavor Profile":"Fruit"},"min_price":0,"max_price":100}`

func TestHealthAndCategories(t *testing.T) {
	env := newTestEnv(t, nil)

	rr := env.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var health map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &health))
	assert.Equal(t, true, health["ok"])
	assert.Equal(t, 3.0, health["wines"])
	assert.Equal(t, "csv", health["backend"])

	rr = env.do(t, http.MethodGet, "/categories", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var cats struct {
		Categories []struct {
			Name     string   `json:"name"`
			Keywords []string `json:"keywords"`
		} `json:"categories"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &cats))
	require.Len(t, cats.Categories, 5)
	assert.Equal(t, "Fruitiness/Flavor Profile", cats.Categories[0].Name)
}

func TestPreferencesLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)

	rr := env.do(t, http.MethodPost, "/preferences", aliceBody)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), `"username":"alice"`)

	rr = env.do(t, http.MethodPost, "/preferences", aliceBody)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "duplicate_username", decodeError(t, rr).Error.Code)

	rr = env.do(t, http.MethodHead, "/preferences/alice", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	rr = env.do(t, http.MethodHead, "/preferences/bob", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = env.do(t, http.MethodGet, "/preferences/alice", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var rec struct {
		Username    string            `json:"username"`
		Preferences map[string]string `json:"preferences"`
		MinPrice    float64           `json:"min_price"`
		MaxPrice    float64           `json:"max_price"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rec))
	assert.Equal(t, "Fruit", rec.Preferences["Fruitiness/Flavor Profile"])
	assert.Equal(t, 100.0, rec.MaxPrice)

	rr = env.do(t, http.MethodGet, "/preferences", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"users":["alice"],"count":1}`, rr.Body.String())

	rr = env.do(t, http.MethodDelete, "/preferences/alice", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	rr = env.do(t, http.MethodDelete, "/preferences/alice", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = env.do(t, http.MethodGet, "/preferences/alice", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	e := decodeError(t, rr)
	assert.Equal(t, "not_found", e.Error.Code)
	assert.NotEmpty(t, e.Error.RequestID)
}

func TestCreatePreferences_Rejections(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name string
		body string
		code string
	}{
		{"empty username", `{"username":" ","preferences":{"Body/Intensity":"Rich"}}`, "empty_username"},
		{"blank preferences", `{"username":"u","preferences":{"Body/Intensity":"  "}}`, "empty_preferences"},
		{"inverted range", `{"username":"u","preferences":{"Body/Intensity":"Rich"},"min_price":50,"max_price":10}`, "invalid_price_range"},
		{"unknown field", `{"username":"u","prefs":{}}`, "invalid_json"},
		{"empty body", ``, "invalid_json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, http.MethodPost, "/preferences", tt.body)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Equal(t, tt.code, decodeError(t, rr).Error.Code)
		})
	}
}

func TestCreatePreferences_DefaultRange(t *testing.T) {
	env := newTestEnv(t, nil)

	rr := env.do(t, http.MethodPost, "/preferences", `{"username":"u","preferences":{"Body/Intensity":"Rich"}}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	rec, err := env.app.Store.Load(context.Background(), "u")
	require.NoError(t, err)
	assert.Equal(t, 0.0, rec.MinPrice)
	assert.Equal(t, 5000.0, rec.MaxPrice)
}

type recsBody struct {
	Username        string `json:"username"`
	Recommendations []struct {
		Winery string  `json:"winery"`
		Score  int     `json:"score"`
		Points int     `json:"points"`
		Price  float64 `json:"price"`
	} `json:"recommendations"`
}

func TestUserRecommendations(t *testing.T) {
	env := newTestEnv(t, nil)
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/preferences", aliceBody).Code)

	rr := env.do(t, http.MethodGet, "/preferences/alice/recommendations", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var body recsBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "alice", body.Username)
	require.Len(t, body.Recommendations, 2)
	assert.Equal(t, "A", body.Recommendations[0].Winery)
	assert.Equal(t, 1, body.Recommendations[0].Score)
	assert.Equal(t, "B", body.Recommendations[1].Winery)
	assert.Equal(t, 0, body.Recommendations[1].Score)

	rr = env.do(t, http.MethodGet, "/preferences/nobody/recommendations", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = env.do(t, http.MethodGet, "/preferences/alice/wines", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAdHocRecommendations(t *testing.T) {
	env := newTestEnv(t, nil)

	rr := env.do(t, http.MethodPost, "/recommendations", `{"preferences":{"Oak Influence/Spices":"Oak"}}`)
	require.Equal(t, http.StatusOK, rr.Code)

	var body recsBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Recommendations, 3)
	assert.Equal(t, "C", body.Recommendations[0].Winery)

	rr = env.do(t, http.MethodPost, "/recommendations", `{"min_price":0,"max_price":10}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"recommendations":[]`)
}

func TestMalformedRecordIs500(t *testing.T) {
	env := newTestEnv(t, nil)
	require.NoError(t, os.WriteFile(env.app.Config.StorePath(), []byte("broken,Fruit\n"), 0o644))

	rr := env.do(t, http.MethodGet, "/preferences/broken", "")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "malformed_record", decodeError(t, rr).Error.Code)
}

func TestMethodNotAllowedAndRequestID(t *testing.T) {
	env := newTestEnv(t, nil)

	req := httptest.NewRequest(http.MethodPatch, "/preferences", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Equal(t, "GET, POST", rr.Header().Get("Allow"))
	assert.Equal(t, "abc-123", rr.Header().Get("X-Request-ID"))
	assert.Equal(t, "abc-123", decodeError(t, rr).Error.RequestID)
}

func TestCorsPreflight(t *testing.T) {
	env := newTestEnv(t, nil)
	req := httptest.NewRequest(http.MethodOptions, "/preferences", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "http://localhost:5173", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, NewClientLimiter(0.001, 2))

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/health", "").Code)

	rr := env.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))
	assert.Equal(t, "rate_limited", decodeError(t, rr).Error.Code)

	assert.Nil(t, NewClientLimiter(0, 10))
}

func TestConfigGetPut(t *testing.T) {
	env := newTestEnv(t, nil)

	rr := env.do(t, http.MethodGet, "/config", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var cfg config.Config
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &cfg))
	assert.Equal(t, 5, cfg.Recommend.Limit)

	cfg.Recommend.DefaultMaxPrice = 250
	b, err := json.Marshal(cfg)
	require.NoError(t, err)
	rr = env.do(t, http.MethodPut, "/config", string(b))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, 250.0, env.deps.config().Recommend.DefaultMaxPrice)

	// new defaults apply to later saves
	rr = env.do(t, http.MethodPost, "/preferences", `{"username":"u","preferences":{"Body/Intensity":"Rich"}}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	rec, err := env.app.Store.Load(context.Background(), "u")
	require.NoError(t, err)
	assert.Equal(t, 250.0, rec.MaxPrice)

	cfg.Store.Backend = "mongo"
	b, err = json.Marshal(cfg)
	require.NoError(t, err)
	rr = env.do(t, http.MethodPut, "/config", string(b))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	var vr config.Validation
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &vr))
	assert.NotEmpty(t, vr.Errors)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodGet, "/health", "")

	rr := env.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "vino_api_requests_total")
	assert.Contains(t, rr.Body.String(), "vino_catalog_wines")
}

func TestEventsStream(t *testing.T) {
	env := newTestEnv(t, nil)
	srv := httptest.NewServer(env.handler)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events", nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	sc := bufio.NewScanner(resp.Body)
	nextData := func() events.Event {
		for sc.Scan() {
			if data, ok := strings.CutPrefix(sc.Text(), "data: "); ok {
				var e events.Event
				require.NoError(t, json.Unmarshal([]byte(data), &e))
				return e
			}
		}
		require.NoError(t, sc.Err())
		t.Fatal("stream ended")
		return events.Event{}
	}

	assert.Equal(t, events.TypePing, nextData().Type)

	post, err := srv.Client().Post(srv.URL+"/preferences", "application/json", strings.NewReader(aliceBody))
	require.NoError(t, err)
	post.Body.Close()
	require.Equal(t, http.StatusCreated, post.StatusCode)

	e := nextData()
	assert.Equal(t, events.TypePreferencesSaved, e.Type)
	assert.JSONEq(t, `{"username":"alice"}`, string(e.Data))
}

func TestRouteLabel(t *testing.T) {
	assert.Equal(t, "/health", routeLabel("/health"))
	assert.Equal(t, "/preferences/{username}", routeLabel("/preferences/alice"))
	assert.Equal(t, "/preferences/{username}/recommendations", routeLabel("/preferences/alice/recommendations"))
	assert.Equal(t, "other", routeLabel("/wp-admin"))
}

func TestUsernameFromPath(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/preferences/jo%2Fann/recommendations", nil)
	user, sub, ok := usernameFromPath(req)
	assert.True(t, ok)
	assert.Equal(t, "jo/ann", user)
	assert.Equal(t, "recommendations", sub)

	_, _, ok = usernameFromPath(httptest.NewRequest(http.MethodGet, "/preferences/", nil))
	assert.False(t, ok)
}

func TestRecover_PanicBecomes500(t *testing.T) {
	h := RequestID(Recover(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	e := decodeError(t, rr)
	assert.Equal(t, "internal_error", e.Error.Code)
	assert.NotEmpty(t, e.Error.RequestID)
}

func TestWriteStoreError_UnknownIs500(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteStoreError(rr, httptest.NewRequest(http.MethodGet, "/preferences/x", nil), errors.New("disk on fire"))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	e := decodeError(t, rr)
	assert.Equal(t, "internal_error", e.Error.Code)
	assert.Equal(t, "internal server error", e.Error.Message)
}
