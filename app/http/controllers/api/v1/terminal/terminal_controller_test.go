package terminal_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"medical/app/http/controllers/api/v1/medical"
	"medical/app/http/controllers/api/v1/terminal"
	terminalModel "medical/app/models/terminal"
	"medical/app/repositories"
	"medical/pkg/database"
	"medical/pkg/database/migrations"
	"medical/pkg/queue"
	"medical/routes"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.Open(sqlite.Open(filepath.Join(t.TempDir(), "terminal.db")), gormlogger.Discard)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(migrations.RegisterTables()...))
	return db
}

func newRouter(t *testing.T, db *gorm.DB, q *queue.QueueService) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	routes.RegisterMedicalRoutes(r,
		medical.NewMedicalControllerWith(db, nil, 5*time.Second),
		terminal.NewTerminalControllerWith(db, q, "bt_client/", 1),
	)
	return r
}

func newQueue(t *testing.T) *queue.QueueService {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return queue.New(client, queue.Options{Prefix: "test:terminal"})
}

func perform(t *testing.T, r *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func TestSendEnqueuesRawCommand(t *testing.T) {
	q := newQueue(t)
	r := newRouter(t, newTestDB(t), q)

	w, env := perform(t, r, http.MethodPost, "/thirdpart/terminal/send", `{"topic":"bt_client/T1","content":"hello","qos":2}`)
	require.Equal(t, http.StatusOK, w.Code)

	var data struct {
		ID      string `json:"id"`
		Topic   string `json:"topic"`
		QoS     int    `json:"qos"`
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "bt_client/T1", data.Topic)
	assert.Equal(t, 2, data.QoS)
	assert.Equal(t, "pending", data.Status)
	assert.Equal(t, "send topic: bt_client/T1, message : hello", data.Message)

	cmd, err := q.PopCommand(context.Background())
	require.NoError(t, err)
	assert.Equal(t, data.ID, cmd.ID)
	payload, err := cmd.Payload()
	require.NoError(t, err)
	assert.Equal(t, "hello", string(payload))

	w, env = perform(t, r, http.MethodGet, "/thirdpart/terminal/commands/"+data.ID+"/status", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"status":"pending"`)
}

func TestSendDefaultQoS(t *testing.T) {
	q := newQueue(t)
	r := newRouter(t, newTestDB(t), q)

	_, env := perform(t, r, http.MethodPost, "/thirdpart/terminal/send", `{"topic":"bt_client/T1","content":"hi"}`)
	assert.Contains(t, string(env.Data), `"qos":1`)
}

func TestSendValidation(t *testing.T) {
	r := newRouter(t, newTestDB(t), newQueue(t))

	w, env := perform(t, r, http.MethodPost, "/thirdpart/terminal/send", `{"topic":"bt_client/T1","content":"hi","qos":3}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "qos: qos 只能是 0、1、2", env.Message)
	assert.Equal(t, "null", string(env.Data))

	w, env = perform(t, r, http.MethodPost, "/thirdpart/terminal/send", `{"content":"hi"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "topic: 主题不能为空", env.Message)

	w, env = perform(t, r, http.MethodPost, "/thirdpart/terminal/send", `{"topic":"bt_client/T1","content":"hi","qos":"high"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "qos: qos 必须是整数", env.Message)
}

func TestSendWithoutQueue(t *testing.T) {
	r := newRouter(t, newTestDB(t), nil)

	w, env := perform(t, r, http.MethodPost, "/thirdpart/terminal/send", `{"topic":"bt_client/T1","content":"hi"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, 500, env.Code)
	assert.Equal(t, "null", string(env.Data))
}

func TestUnknownCommandStatus(t *testing.T) {
	r := newRouter(t, newTestDB(t), newQueue(t))

	w, _ := perform(t, r, http.MethodGet, "/thirdpart/terminal/commands/nope/status", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWindowTerminalsAndShow(t *testing.T) {
	db := newTestDB(t)
	r := newRouter(t, db, nil)

	repo := repositories.NewTerminalRepository(db)
	t1 := &terminalModel.Terminal{TerminalID: "T1", ExtraID2: "W1", OnlineState: terminalModel.StatePowerOn}
	require.NoError(t, repo.Create(context.Background(), t1))
	require.NoError(t, repo.Create(context.Background(), &terminalModel.Terminal{TerminalID: "T2", ExtraID2: "W2"}))

	_, env := perform(t, r, http.MethodGet, "/thirdpart/terminal/window/W1", "")
	var list []terminalModel.Terminal
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "T1", list[0].TerminalID)
	assert.True(t, list[0].IsOnline())

	w, env := perform(t, r, http.MethodGet, "/thirdpart/terminal/"+t1.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"terminalId":"T1"`)

	w, _ = perform(t, r, http.MethodGet, "/thirdpart/terminal/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
