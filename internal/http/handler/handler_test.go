package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"backend-antrian-bank/internal/config"
	"backend-antrian-bank/internal/models"
	"backend-antrian-bank/internal/queue"
	"backend-antrian-bank/internal/realtime"
	"backend-antrian-bank/internal/store"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	adminEmail    = "manager@bank.test"
	adminPassword = "correct horse"
)

type testEnv struct {
	app   *fiber.App
	store *store.MemoryStore
	token string
}

func newTestEnv(t *testing.T, qcfg queue.Config) *testEnv {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := &config.Config{
		App:   config.AppConfig{Name: "antrian-bank"},
		JWT:   config.JWTConfig{Secret: "handler-secret", TTL: time.Hour},
		Admin: config.AdminConfig{Email: adminEmail, PasswordHash: string(hash)},
	}

	if qcfg.Generator == nil {
		qcfg.Generator = queue.NewGenerator(func(int) int { return 32 })
	}
	st := store.NewMemoryStore()
	svc := queue.NewService(st, qcfg, nil)
	hub := realtime.NewHub(st.ListOrderedByPosition, nil)

	app := fiber.New()
	New(svc, hub, cfg, nil).Register(app)

	token, err := config.GenerateToken(adminEmail, config.RoleAdmin, cfg.JWT.Secret, time.Hour)
	require.NoError(t, err)

	return &testEnv{app: app, store: st, token: token}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, token string) (int, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]interface{}{}
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func (e *testEnv) seed(t *testing.T, entries ...models.QueueEntry) {
	t.Helper()
	for i := range entries {
		if entries[i].Status == "" {
			entries[i].Status = models.StatusWaiting
		}
		entries[i].CreatedAt = time.Date(2026, 2, 2, 9, i, 0, 0, time.UTC)
		require.NoError(t, e.store.Insert(context.Background(), &entries[i]))
	}
}

func data(t *testing.T, body map[string]interface{}) map[string]interface{} {
	t.Helper()
	d, ok := body["data"].(map[string]interface{})
	require.True(t, ok, "data is not an object: %v", body)
	return d
}

/*
|--------------------------------------------------------------------------
| Customer surface
|--------------------------------------------------------------------------
*/

func TestHealth(t *testing.T) {
	env := newTestEnv(t, queue.Config{})

	status, body := env.do(t, http.MethodGet, "/", nil, "")

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "antrian-bank API running", body["message"])
}

func TestJoinAndTrack(t *testing.T) {
	env := newTestEnv(t, queue.Config{})

	status, body := env.do(t, http.MethodPost, "/api/queue/join", models.JoinQueueRequest{
		Name: "Ada Obi", Phone: "08031234567", ServiceType: "withdrawal", Branch: "Ikeja",
	}, "")

	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, true, body["success"])
	joined := data(t, body)
	assert.Equal(t, "W42", joined["queue_number"])
	assert.Equal(t, "waiting", joined["status"])
	assert.Equal(t, float64(42), joined["position"])
	assert.Equal(t, float64(126), joined["estimated_wait_time"])

	status, body = env.do(t, http.MethodGet, "/api/queue/track/w42", nil, "")

	require.Equal(t, http.StatusOK, status)
	tracked := data(t, body)
	assert.Equal(t, joined["id"], tracked["id"])
	assert.Equal(t, float64(41), tracked["total_ahead"])
	assert.Equal(t, float64(0), tracked["progress"])
}

func TestJoin_Validation(t *testing.T) {
	env := newTestEnv(t, queue.Config{})

	status, body := env.do(t, http.MethodPost, "/api/queue/join", models.JoinQueueRequest{Name: "Ada"}, "")

	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["error"], "required")
}

func TestJoin_BranchClosed(t *testing.T) {
	env := newTestEnv(t, queue.Config{IsOpen: func(time.Time) bool { return false }})

	status, _ := env.do(t, http.MethodPost, "/api/queue/join", models.JoinQueueRequest{
		Name: "Ada", Phone: "0803", ServiceType: "deposit",
	}, "")

	assert.Equal(t, http.StatusForbidden, status)
}

func TestTrack_NotFound(t *testing.T) {
	env := newTestEnv(t, queue.Config{})

	status, body := env.do(t, http.MethodGet, "/api/queue/track/Z99", nil, "")

	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Queue number not found", body["error"])
}

func TestCustomerPrioritize(t *testing.T) {
	env := newTestEnv(t, queue.Config{})
	env.seed(t, models.QueueEntry{ID: "a", QueueNumber: "D20", Position: 20, EstimatedWaitTime: 30})

	status, body := env.do(t, http.MethodPost, "/api/queue/D20/prioritize", nil, "")

	require.Equal(t, http.StatusOK, status)
	entry := data(t, body)
	assert.Equal(t, float64(17), entry["position"])
	assert.Equal(t, float64(20), entry["estimated_wait_time"])
}

/*
|--------------------------------------------------------------------------
| Auth
|--------------------------------------------------------------------------
*/

func TestLogin(t *testing.T) {
	env := newTestEnv(t, queue.Config{})

	status, body := env.do(t, http.MethodPost, "/api/auth/login", models.LoginRequest{Email: adminEmail, Password: adminPassword}, "")

	require.Equal(t, http.StatusOK, status)
	token, _ := data(t, body)["token"].(string)
	require.NotEmpty(t, token)

	status, _ = env.do(t, http.MethodGet, "/api/admin/queue", nil, token)
	assert.Equal(t, http.StatusOK, status)
}

func TestLogin_Rejected(t *testing.T) {
	env := newTestEnv(t, queue.Config{})

	status, _ := env.do(t, http.MethodPost, "/api/auth/login", models.LoginRequest{Email: adminEmail, Password: "nope"}, "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = env.do(t, http.MethodPost, "/api/auth/login", models.LoginRequest{Email: "other@bank.test", Password: adminPassword}, "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = env.do(t, http.MethodPost, "/api/auth/login", models.LoginRequest{Email: adminEmail}, "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAdminRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t, queue.Config{})

	status, _ := env.do(t, http.MethodGet, "/api/admin/queue", nil, "")

	assert.Equal(t, http.StatusUnauthorized, status)
}

/*
|--------------------------------------------------------------------------
| Admin surface
|--------------------------------------------------------------------------
*/

func TestUpdateStatus(t *testing.T) {
	env := newTestEnv(t, queue.Config{})
	env.seed(t, models.QueueEntry{ID: "a", QueueNumber: "D20", Position: 20, EstimatedWaitTime: 60})

	status, body := env.do(t, http.MethodPut, "/api/admin/queue/D20/status", models.UpdateStatusRequest{Status: "serving"}, env.token)

	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Status successfully updated to serving", body["message"])
	entry := data(t, body)
	assert.Equal(t, float64(1), entry["position"])
	assert.Equal(t, float64(5), entry["estimated_wait_time"])

	status, _ = env.do(t, http.MethodPut, "/api/admin/queue/D20/status", models.UpdateStatusRequest{Status: "waiting"}, env.token)
	assert.Equal(t, http.StatusConflict, status)

	status, _ = env.do(t, http.MethodPut, "/api/admin/queue/D20/status", models.UpdateStatusRequest{Status: "asleep"}, env.token)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = env.do(t, http.MethodPut, "/api/admin/queue/X11/status", models.UpdateStatusRequest{Status: "serving"}, env.token)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAdjustTime(t *testing.T) {
	env := newTestEnv(t, queue.Config{})
	env.seed(t, models.QueueEntry{ID: "a", QueueNumber: "D20", Position: 20, EstimatedWaitTime: 30})

	priority, wait := 17.0, 20
	status, body := env.do(t, http.MethodPut, "/api/admin/queue/D20/time",
		models.AdjustTimeRequest{Priority: &priority, EstimatedWaitTime: &wait}, env.token)

	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Queue position and estimated time updated", body["message"])
	entry := data(t, body)
	assert.Equal(t, float64(17), entry["position"])
	assert.Equal(t, float64(20), entry["estimated_wait_time"])

	status, _ = env.do(t, http.MethodPut, "/api/admin/queue/D20/time", map[string]interface{}{}, env.token)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestNudgeWait(t *testing.T) {
	env := newTestEnv(t, queue.Config{})
	env.seed(t, models.QueueEntry{ID: "a", QueueNumber: "D20", Position: 20, EstimatedWaitTime: 3})

	status, body := env.do(t, http.MethodPost, "/api/admin/queue/D20/nudge", models.NudgeWaitRequest{Minutes: -5}, env.token)

	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), data(t, body)["estimated_wait_time"])

	status, _ = env.do(t, http.MethodPost, "/api/admin/queue/D20/nudge", models.NudgeWaitRequest{Minutes: math.MaxInt}, env.token)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestMoveAndList(t *testing.T) {
	env := newTestEnv(t, queue.Config{})
	env.seed(t,
		models.QueueEntry{ID: "a", QueueNumber: "D10", Name: "Amaka", ServiceType: models.ServiceDeposit, Position: 10},
		models.QueueEntry{ID: "b", QueueNumber: "L20", Name: "Bola", ServiceType: models.ServiceLoan, Position: 20},
	)

	status, body := env.do(t, http.MethodPost, "/api/admin/queue/b/move", models.MoveRequest{Direction: "up"}, env.token)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["moved"])

	status, body = env.do(t, http.MethodPost, "/api/admin/queue/b/move", models.MoveRequest{Direction: "up"}, env.token)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["moved"])
	assert.Equal(t, "Entry is already at the top of the queue", body["message"])

	status, _ = env.do(t, http.MethodPost, "/api/admin/queue/b/move", models.MoveRequest{Direction: "left"}, env.token)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = env.do(t, http.MethodPost, "/api/admin/queue/zzz/move", models.MoveRequest{Direction: "down"}, env.token)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Queue entry not found", body["error"])

	status, body = env.do(t, http.MethodGet, "/api/admin/queue", nil, env.token)
	require.Equal(t, http.StatusOK, status)
	rows := body["data"].([]interface{})
	require.Len(t, rows, 2)
	assert.Equal(t, "L20", rows[0].(map[string]interface{})["queue_number"])
	assert.Equal(t, float64(9), rows[0].(map[string]interface{})["total_ahead"])

	status, body = env.do(t, http.MethodGet, "/api/admin/queue?service_type=deposit&search=ama", nil, env.token)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), body["total"])
}

func TestServeAndStats(t *testing.T) {
	env := newTestEnv(t, queue.Config{})
	env.seed(t,
		models.QueueEntry{ID: "a", QueueNumber: "D10", ServiceType: models.ServiceDeposit, Position: 10, EstimatedWaitTime: 30},
		models.QueueEntry{ID: "b", QueueNumber: "D20", ServiceType: models.ServiceDeposit, Position: 20, EstimatedWaitTime: 60},
	)

	status, body := env.do(t, http.MethodPost, "/api/admin/queue/a/serve", nil, env.token)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Now serving D10", body["message"])

	status, body = env.do(t, http.MethodPost, "/api/admin/queue/zzz/serve", nil, env.token)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Queue entry not found", body["error"])

	status, body = env.do(t, http.MethodGet, "/api/admin/stats", nil, env.token)
	require.Equal(t, http.StatusOK, status)
	stats := data(t, body)
	assert.Equal(t, float64(2), stats["total_customers"])
	assert.Equal(t, float64(33), stats["avg_wait_time"])
	assert.Equal(t, float64(1), stats["service_types"])
	byStatus := stats["by_status"].(map[string]interface{})
	assert.Equal(t, float64(1), byStatus["serving"])
	assert.Equal(t, float64(1), byStatus["waiting"])
}

func TestWebSocketRequiresUpgrade(t *testing.T) {
	env := newTestEnv(t, queue.Config{})

	resp, err := env.app.Test(httptest.NewRequest(http.MethodGet, "/ws/queue", nil))

	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}

func TestBranchInfo(t *testing.T) {
	env := newTestEnv(t, queue.Config{IsOpen: func(time.Time) bool { return false }})

	status, body := env.do(t, http.MethodGet, "/api/branch", nil, "")

	require.Equal(t, http.StatusOK, status)
	info := data(t, body)
	assert.Equal(t, false, info["is_open"])
	services := info["services"].([]interface{})
	require.Len(t, services, len(models.ServiceTypes))
	first := services[0].(map[string]interface{})
	assert.Equal(t, "account", first["type"])
	assert.Equal(t, "A", first["prefix"])
}
