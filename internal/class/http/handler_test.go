package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/class-booking-backend/internal/access"
	"github.com/nekogravitycat/class-booking-backend/internal/auth"
	"github.com/nekogravitycat/class-booking-backend/internal/class"
	"github.com/nekogravitycat/class-booking-backend/internal/pkg/request"
)

type mockService struct {
	AddFunc    func(ctx context.Context, p *access.Principal, req class.CreateRequest) (*class.Class, error)
	ListFunc   func(ctx context.Context) ([]*class.Summary, error)
	RemoveFunc func(ctx context.Context, p *access.Principal, id string) (int64, error)
}

func (m *mockService) Add(ctx context.Context, p *access.Principal, req class.CreateRequest) (*class.Class, error) {
	return m.AddFunc(ctx, p, req)
}

func (m *mockService) GetByID(context.Context, string) (*class.Class, error) {
	return nil, class.ErrNotFound
}

func (m *mockService) List(ctx context.Context) ([]*class.Summary, error) {
	return m.ListFunc(ctx)
}

func (m *mockService) Remove(ctx context.Context, p *access.Principal, id string) (int64, error) {
	return m.RemoveFunc(ctx, p, id)
}

var admin = &access.Principal{ID: "a1", Name: "root", Role: access.RoleAdmin}

func setupRouter(svc class.Service) *gin.Engine {
	return setupRouterAs(svc, admin)
}

func setupRouterAs(svc class.Service, p *access.Principal) *gin.Engine {
	gin.SetMode(gin.TestMode)
	request.RegisterValidators()
	r := gin.New()
	actAs := func(c *gin.Context) {
		auth.SetPrincipal(c, p)
		c.Next()
	}
	RegisterRoutes(r.Group("/v1"), NewHandler(svc), actAs)
	return r
}

func TestHandler_List(t *testing.T) {
	svc := &mockService{
		ListFunc: func(context.Context) ([]*class.Summary, error) {
			return []*class.Summary{{
				Class:          class.Class{ID: "c1", Name: "Yoga", Capacity: 3, Price: decimal.RequireFromString("12.5")},
				ConfirmedCount: 2,
			}}, nil
		},
	}

	w := httptest.NewRecorder()
	setupRouter(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/classes", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Items []ClassResponse `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Items, 1)
	assert.Equal(t, 2, body.Items[0].CurrentBookings)
	assert.Equal(t, 1, body.Items[0].SeatsLeft)
	assert.Contains(t, w.Body.String(), `"price":"12.5"`)
}

func TestHandler_Create(t *testing.T) {
	var got class.CreateRequest
	svc := &mockService{
		AddFunc: func(_ context.Context, p *access.Principal, req class.CreateRequest) (*class.Class, error) {
			assert.Equal(t, admin, p)
			got = req
			return &class.Class{ID: "c1", Name: req.Name, Capacity: req.Capacity, Price: req.Price}, nil
		},
	}

	body := `{"name":"Yoga","time":"Mon 07:00","capacity":10,"price":9.99,"trainer":"Dana"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/classes", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	setupRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 10, got.Capacity)
	assert.True(t, decimal.RequireFromString("9.99").Equal(got.Price))
}

func TestHandler_CreateValidation(t *testing.T) {
	svc := &mockService{
		AddFunc: func(context.Context, *access.Principal, class.CreateRequest) (*class.Class, error) {
			t.Fatal("service must not be called")
			return nil, nil
		},
	}

	cases := map[string]string{
		"blank name":       `{"name":"  ","time":"Mon","capacity":1,"price":1,"trainer":"x"}`,
		"missing capacity": `{"name":"Yoga","time":"Mon","price":1,"trainer":"x"}`,
		"negative price":   `{"name":"Yoga","time":"Mon","capacity":1,"price":-1,"trainer":"x"}`,
		"missing price":    `{"name":"Yoga","time":"Mon","capacity":1,"trainer":"x"}`,
		"null price":       `{"name":"Yoga","time":"Mon","capacity":1,"price":null,"trainer":"x"}`,
		"malformed json":   `{"name":`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/v1/classes", strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			setupRouter(svc).ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), `"kind":"validation"`)
		})
	}
}

func TestHandler_Delete(t *testing.T) {
	const id = "2b1f8a8e-4c1e-4f7a-9a51-3f0e2d6c9b11"
	svc := &mockService{
		RemoveFunc: func(_ context.Context, _ *access.Principal, got string) (int64, error) {
			if got != id {
				return 0, class.ErrNotFound
			}
			return 3, nil
		},
	}
	router := setupRouter(svc)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/v1/classes/"+id, nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"cancelled_bookings":3`)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/v1/classes/6f9d6a52-0b8e-4db4-8f38-0c5a1f7e2d40", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/v1/classes/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_ForbiddenFromService(t *testing.T) {
	svc := &mockService{
		AddFunc: func(context.Context, *access.Principal, class.CreateRequest) (*class.Class, error) {
			return nil, access.ErrForbidden
		},
	}

	body := `{"name":"Yoga","time":"Mon","capacity":1,"price":"5.00","trainer":"x"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/classes", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	setupRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), `"kind":"forbidden"`)
}

func TestHandler_CreateChecksRoleBeforeBody(t *testing.T) {
	svc := &mockService{
		AddFunc: func(context.Context, *access.Principal, class.CreateRequest) (*class.Class, error) {
			t.Fatal("service must not be called")
			return nil, nil
		},
	}
	member := &access.Principal{ID: "u1", Name: "alice", Role: access.RoleUser}

	for _, body := range []string{`{"name":`, `{"name":"Yoga","time":"Mon","capacity":1,"price":1,"trainer":"x"}`} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/classes", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		setupRouterAs(svc, member).ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code, body)
	}
}
