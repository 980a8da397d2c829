package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"github.com/trendlens/trendlens/internal/config"
	"github.com/trendlens/trendlens/internal/pipeline"
	"github.com/trendlens/trendlens/internal/settings"
	"github.com/trendlens/trendlens/internal/store"
	"github.com/trendlens/trendlens/internal/trend"
	"github.com/trendlens/trendlens/internal/volume"
	"github.com/trendlens/trendlens/pkg/models"
)

// memTree is an in-memory TreeStore.
type memTree struct {
	tree []models.Category
	cats []store.Category
}

func (m *memTree) LoadTree(context.Context) ([]models.Category, error) {
	return m.tree, nil
}

func (m *memTree) ReplaceTree(_ context.Context, tree []models.Category) error {
	m.tree = tree
	return nil
}

func (m *memTree) UpsertCategory(_ context.Context, name string) (uint, error) {
	for _, c := range m.cats {
		if c.Name == name {
			return c.ID, nil
		}
	}
	c := store.Category{ID: uint(len(m.cats) + 1), Name: name}
	m.cats = append(m.cats, c)
	return c.ID, nil
}

func (m *memTree) Categories(context.Context) ([]store.Category, error) {
	return m.cats, nil
}

func (m *memTree) CountKeywords(context.Context) (int64, error) {
	var n int64
	for _, cat := range m.tree {
		for _, group := range cat.AdGroups {
			n += int64(len(group.Keywords))
		}
	}
	return n, nil
}

// stubVolumes serves fixed histories and empty ones for unknown
// keywords.
type stubVolumes struct {
	histories map[string]models.VolumeHistory
}

func (s *stubVolumes) GetMonthlyVolumesByYear(_ context.Context, kw string) (models.VolumeHistory, error) {
	if h, ok := s.histories[kw]; ok {
		return h, nil
	}
	return models.VolumeHistory{}, nil
}

// risingHistory peaks one month after the anchor in every past year.
func risingHistory() models.VolumeHistory {
	return models.VolumeHistory{
		2022: {0, 0, 0, 0, 100, 150, 100, 0, 0, 0, 0, 0},
		2023: {0, 0, 0, 0, 100, 150, 100, 0, 0, 0, 0, 0},
		2024: {0, 0, 0, 0, 120},
	}
}

func newTestServer(t *testing.T) (*Server, *memTree, *settings.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	set := settings.NewWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	enricher := volume.NewEnricher(&stubVolumes{histories: map[string]models.VolumeHistory{
		"portable grills": risingHistory(),
	}}, 2)
	pipe := pipeline.New(enricher, pipeline.WithForecaster(trend.NewAt(4)))

	st := &memTree{}
	srv := NewServerWith(&config.Config{}, st, set, pipe)
	return srv, st, set
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

func do(t *testing.T, s *Server, method, path string, body any) (int, envelope) {
	t.Helper()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %s %s response %q: %v", method, path, rec.Body.String(), err)
	}
	return rec.Code, env
}

func decodeData(t *testing.T, env envelope, dst any) {
	t.Helper()
	if err := json.Unmarshal(env.Data, dst); err != nil {
		t.Fatalf("decode data %s: %v", env.Data, err)
	}
}

func TestHealth(t *testing.T) {
	s, _, _ := newTestServer(t)

	code, env := do(t, s, http.MethodGet, "/health", nil)
	if code != http.StatusOK || !env.Success {
		t.Fatalf("health = %d, success %v", code, env.Success)
	}
}

func TestGetTree(t *testing.T) {
	s, st, _ := newTestServer(t)
	st.tree = []models.Category{{Name: "Camping", AdGroups: []models.AdGroup{
		{Name: "Grills", Keywords: []models.Keyword{{Text: "portable grills"}}},
	}}}

	code, env := do(t, s, http.MethodGet, "/api/v1/tree", nil)
	if code != http.StatusOK {
		t.Fatalf("code = %d: %s", code, env.Error)
	}

	var tree []models.Category
	decodeData(t, env, &tree)
	if len(tree) != 1 || tree[0].Name != "Camping" {
		t.Errorf("tree = %+v", tree)
	}
}

func TestReplaceTree(t *testing.T) {
	s, st, _ := newTestServer(t)

	code, env := do(t, s, http.MethodPut, "/api/v1/tree", TreeRequest{
		Categories: []models.Category{{Name: "Outdoors"}},
	})
	if code != http.StatusOK {
		t.Fatalf("code = %d: %s", code, env.Error)
	}
	if len(st.tree) != 1 || st.tree[0].Name != "Outdoors" {
		t.Errorf("stored tree = %+v", st.tree)
	}
}

func TestCreateCategory(t *testing.T) {
	s, st, _ := newTestServer(t)

	code, env := do(t, s, http.MethodPost, "/api/v1/categories", CreateCategoryRequest{Name: "Camping"})
	if code != http.StatusCreated {
		t.Fatalf("code = %d: %s", code, env.Error)
	}
	if len(st.cats) != 1 || st.cats[0].Name != "Camping" {
		t.Errorf("categories = %+v", st.cats)
	}

	code, _ = do(t, s, http.MethodPost, "/api/v1/categories", CreateCategoryRequest{Name: "  "})
	if code != http.StatusBadRequest {
		t.Errorf("blank name code = %d, want 400", code)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	s, _, _ := newTestServer(t)

	code, env := do(t, s, http.MethodGet, "/api/v1/settings", nil)
	if code != http.StatusOK {
		t.Fatalf("code = %d: %s", code, env.Error)
	}
	var got settings.Settings
	decodeData(t, env, &got)
	if got != settings.Defaults() {
		t.Errorf("initial settings = %+v, want defaults", got)
	}

	want := settings.Settings{NotificationThreshold: 25, MinHitsThreshold: 50}
	if code, env = do(t, s, http.MethodPut, "/api/v1/settings", want); code != http.StatusOK {
		t.Fatalf("put code = %d: %s", code, env.Error)
	}

	_, env = do(t, s, http.MethodGet, "/api/v1/settings", nil)
	decodeData(t, env, &got)
	if got != want {
		t.Errorf("settings = %+v, want %+v", got, want)
	}
}

func TestKeywordsRoundTrip(t *testing.T) {
	s, _, _ := newTestServer(t)

	code, env := do(t, s, http.MethodPut, "/api/v1/keywords", KeywordsRequest{
		Keywords: []string{"portable grills", "camping tents"},
	})
	if code != http.StatusOK {
		t.Fatalf("put code = %d: %s", code, env.Error)
	}

	_, env = do(t, s, http.MethodGet, "/api/v1/keywords", nil)
	var got []string
	decodeData(t, env, &got)
	if len(got) != 2 || got[0] != "portable grills" {
		t.Errorf("keywords = %v", got)
	}
}

func TestAnalyze(t *testing.T) {
	s, _, _ := newTestServer(t)

	code, env := do(t, s, http.MethodPost, "/api/v1/analyze", AnalyzeRequest{
		Keywords: []string{"portable grills"},
	})
	if code != http.StatusOK {
		t.Fatalf("code = %d: %s", code, env.Error)
	}

	var results []models.KeywordForecast
	decodeData(t, env, &results)
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1", len(results))
	}
	if results[0].Weighted.PctChangeMonth != 50 {
		t.Errorf("weighted = %v, want 50", results[0].Weighted.PctChangeMonth)
	}
}

func TestAnalyzeUsesTrackedKeywords(t *testing.T) {
	s, _, set := newTestServer(t)
	if err := set.SaveKeywords(context.Background(), []string{"portable grills"}); err != nil {
		t.Fatal(err)
	}

	code, env := do(t, s, http.MethodPost, "/api/v1/analyze", nil)
	if code != http.StatusOK {
		t.Fatalf("code = %d: %s", code, env.Error)
	}

	var results []models.KeywordForecast
	decodeData(t, env, &results)
	if len(results) != 1 || results[0].Keyword != "portable grills" {
		t.Errorf("results = %+v", results)
	}
}

func TestAnalyzeNoKeywords(t *testing.T) {
	s, _, _ := newTestServer(t)

	code, env := do(t, s, http.MethodPost, "/api/v1/analyze", nil)
	if code != http.StatusBadRequest {
		t.Fatalf("code = %d, want 400 (%s)", code, env.Error)
	}
}

func TestAnalyzeTree(t *testing.T) {
	s, st, _ := newTestServer(t)
	st.tree = []models.Category{{Name: "Camping", AdGroups: []models.AdGroup{
		{Name: "Grills", Keywords: []models.Keyword{{Text: "portable grills"}}},
	}}}

	code, env := do(t, s, http.MethodPost, "/api/v1/analyze/tree", nil)
	if code != http.StatusOK {
		t.Fatalf("code = %d: %s", code, env.Error)
	}

	var analyzed []models.AnalyzedCategory
	decodeData(t, env, &analyzed)
	if len(analyzed) != 1 || analyzed[0].Aggregate == nil {
		t.Fatalf("analyzed = %+v", analyzed)
	}
	if analyzed[0].Aggregate.PctChangeNextMonth != 50 {
		t.Errorf("aggregate pct = %v, want 50", analyzed[0].Aggregate.PctChangeNextMonth)
	}
}

func TestAnalyzeTreeEmpty(t *testing.T) {
	s, _, _ := newTestServer(t)

	code, _ := do(t, s, http.MethodPost, "/api/v1/analyze/tree", nil)
	if code != http.StatusBadRequest {
		t.Errorf("code = %d, want 400", code)
	}
}

func TestAlertsPreview(t *testing.T) {
	s, _, set := newTestServer(t)
	if err := set.SaveKeywords(context.Background(), []string{"portable grills"}); err != nil {
		t.Fatal(err)
	}

	code, env := do(t, s, http.MethodGet, "/api/v1/alerts", nil)
	if code != http.StatusOK {
		t.Fatalf("code = %d: %s", code, env.Error)
	}

	var data struct {
		Alerts           []models.Alert `json:"alerts"`
		KeywordsAnalyzed int            `json:"keywords_analyzed"`
	}
	decodeData(t, env, &data)
	if data.KeywordsAnalyzed != 1 {
		t.Errorf("keywords analyzed = %d, want 1", data.KeywordsAnalyzed)
	}
	if len(data.Alerts) != 1 {
		t.Fatalf("alerts = %+v, want 1", data.Alerts)
	}
	if data.Alerts[0].PctChangeMonth != 50 {
		t.Errorf("alert pct = %v, want 50", data.Alerts[0].PctChangeMonth)
	}
}

func TestAlertsPreviewNoKeywords(t *testing.T) {
	s, _, _ := newTestServer(t)

	code, env := do(t, s, http.MethodGet, "/api/v1/alerts", nil)
	if code != http.StatusOK {
		t.Fatalf("code = %d: %s", code, env.Error)
	}

	var alerts []models.Alert
	decodeData(t, env, &alerts)
	if len(alerts) != 0 {
		t.Errorf("alerts = %+v, want none", alerts)
	}
}

func TestScanNotConfigured(t *testing.T) {
	s, _, _ := newTestServer(t)

	code, env := do(t, s, http.MethodPost, "/api/v1/scan", ScanRequest{URL: "https://example.com"})
	if code != http.StatusInternalServerError {
		t.Fatalf("code = %d, want 500", code)
	}
	if !strings.Contains(env.Error, "scan stages not configured") {
		t.Errorf("error = %q", env.Error)
	}
}

func TestGetConfigRedactsCredentials(t *testing.T) {
	s, _, _ := newTestServer(t)
	s.cfg.LLM.OpenAIKey = "sk-super-secret"
	s.cfg.LLM.Model = "gpt-4o-mini"

	code, env := do(t, s, http.MethodGet, "/api/v1/config", nil)
	if code != http.StatusOK {
		t.Fatalf("code = %d: %s", code, env.Error)
	}
	if strings.Contains(string(env.Data), "sk-super-secret") {
		t.Error("config response leaks the OpenAI key")
	}
	if !strings.Contains(string(env.Data), "gpt-4o-mini") {
		t.Error("config response should include the model")
	}
}

func TestWebSocketBroadcast(t *testing.T) {
	s, _, _ := newTestServer(t)
	go s.Hub().Run()

	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for s.Hub().ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if s.Hub().ClientCount() != 1 {
		t.Fatal("client never registered")
	}

	s.Hub().Broadcast(WSMessage{
		Type: "progress",
		Data: pipeline.Progress{Stage: pipeline.StageFetching, Message: "fetching"},
	})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal %q: %v", data, err)
	}
	if msg.Type != "progress" {
		t.Errorf("message type = %q, want progress", msg.Type)
	}
}
