package event

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pillflow-service/internal/domain/customer"
	"pillflow-service/internal/domain/event"
	"pillflow-service/internal/domain/pack"
	"pillflow-service/internal/middleware"
	"pillflow-service/internal/pkg/clock"
	"pillflow-service/internal/pkg/response"
	"pillflow-service/internal/repository/mocks"
	service "pillflow-service/internal/service/event"
	packsvc "pillflow-service/internal/service/pack"
	"pillflow-service/internal/service/schedule"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	router *gin.Engine
	events *mocks.MockEventStore
	packs  *mocks.MockPackStore
	clock  *clock.Fixed
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &fixture{
		events: mocks.NewMockEventStore(),
		packs:  mocks.NewMockPackStore(),
		clock:  clock.NewFixed(time.Date(2024, time.January, 8, 9, 0, 0, 0, time.UTC)),
	}
	customers := mocks.NewMockCustomerStore()
	customers.Seed(customer.Customer{ID: "cus-1", AccountID: "acc-1", FullName: "Ann"})
	f.packs.Seed(pack.Pack{
		ID: "pack-1", AccountID: "acc-1", PackName: "WP-001",
		CustomerID: sql.NullString{String: "cus-1", Valid: true}, Status: pack.StatusActive,
	})

	packs := packsvc.NewPackService(f.packs, customers, f.events, schedule.NewProjector(0, 0), f.clock, zap.NewNop())
	svc := service.NewEventService(f.events, customers, f.packs, packs, nil, nil, f.clock, zap.NewNop())
	h := NewEventHandler(svc, time.UTC)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		require.NoError(t, middleware.SetAccount(c, "acc-1", "jti"))
		c.Next()
	})
	for _, kind := range []event.Kind{event.KindCollection, event.KindCheck} {
		g := r.Group("/" + string(kind) + "s")
		g.POST("", h.Record(kind))
		g.GET("", h.List(kind))
		g.GET("/:id", h.Get(kind))
		g.PATCH("/:id/status", h.CorrectStatus(kind))
	}
	f.router = r
	return f
}

func (f *fixture) do(method, path string, body interface{}) (*httptest.ResponseRecorder, response.Response) {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	var resp response.Response
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func TestRecordCollection(t *testing.T) {
	f := newFixture(t)

	w, resp := f.do(http.MethodPost, "/collections", map[string]interface{}{
		"pack_code":  "WP-001",
		"operator":   "Alice",
		"pack_type":  "sachet",
		"pack_count": 2,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "collection", data["kind"])
	assert.Equal(t, "sachet", data["pack_type"])
	assert.EqualValues(t, 2, data["pack_count"])
	assert.Len(t, f.events.All(), 1)
	assert.Len(t, f.packs.ScheduleCalls, 1)
}

func TestRecordRejectsBadInput(t *testing.T) {
	f := newFixture(t)

	w, resp := f.do(http.MethodPost, "/collections", map[string]interface{}{
		"pack_code":  "WP-001",
		"operator":   "Alice",
		"pack_count": 0,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "pack_count", resp.Field)

	w, resp = f.do(http.MethodPost, "/checks", map[string]interface{}{"pack_code": "WP-001"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "operator", resp.Field)

	assert.Empty(t, f.events.All())
}

func TestRecordCheckAndVoid(t *testing.T) {
	f := newFixture(t)

	w, resp := f.do(http.MethodPost, "/checks", map[string]interface{}{
		"pack_code": "WP-001",
		"operator":  "Carol",
		"notes":     "ok",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	id := resp.Data.(map[string]interface{})["id"].(string)

	w, _ = f.do(http.MethodGet, "/collections/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, resp = f.do(http.MethodPatch, "/checks/"+id+"/status", map[string]string{"status": "voided"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "voided", resp.Data.(map[string]interface{})["status"])

	w, _ = f.do(http.MethodPatch, "/checks/"+id+"/status", map[string]string{"status": "lost"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListCollections(t *testing.T) {
	f := newFixture(t)

	for _, pt := range []string{"blister", "sachet", "other"} {
		w, _ := f.do(http.MethodPost, "/collections", map[string]interface{}{
			"pack_code": "WP-001", "operator": "A", "pack_type": pt,
		})
		require.Equal(t, http.StatusCreated, w.Code)
		f.clock.Advance(time.Hour)
	}

	w, resp := f.do(http.MethodGet, "/collections?pack_types=blister,sachet", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, resp.Data.(map[string]interface{})["total"])

	w, resp = f.do(http.MethodGet, "/collections?from=2024-01-08T10:00:00Z", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, resp.Data.(map[string]interface{})["total"])

	w, _ = f.do(http.MethodGet, "/collections?from=yesterday", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitList([]string{"a, b", "c", ""}))
	assert.Nil(t, splitList(nil))
}
