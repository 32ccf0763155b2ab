package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"jobfair/pkg/auth"
	apperrors "jobfair/pkg/errors"
	"jobfair/pkg/logger"
	"jobfair/pkg/middleware"
	"jobfair/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type mockCompanyService struct {
	createFunc  func(ctx context.Context, company *model.Company) error
	getByIDFunc func(ctx context.Context, id string) (*model.Company, error)
	getAllFunc  func(ctx context.Context, limit int, offset int64) ([]*model.Company, int64, error)
}

func (m *mockCompanyService) Create(ctx context.Context, company *model.Company) error {
	return m.createFunc(ctx, company)
}

func (m *mockCompanyService) GetByID(ctx context.Context, id string) (*model.Company, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockCompanyService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Company, int64, error) {
	return m.getAllFunc(ctx, limit, offset)
}

type stubActorLoader map[string]model.Actor

func (s stubActorLoader) LoadActor(ctx context.Context, userID string) (model.Actor, error) {
	actor, ok := s[userID]
	if !ok {
		return model.Actor{}, apperrors.Unauthorized("User not found")
	}
	return actor, nil
}

func setup(t *testing.T, svc *mockCompanyService) (*httprouter.Router, map[string]string) {
	t.Helper()
	tokens := auth.NewTokenManager("test-secret", time.Hour, "jobfair")
	actors := stubActorLoader{
		"admin-id": {UserID: "admin-id", Role: model.RoleAdmin},
		"user-id":  {UserID: "user-id", Role: model.RoleUser},
	}

	router := httprouter.New()
	NewCompanyHandler(svc, middleware.NewAuthenticator(tokens, actors, logger.Discard()), logger.Discard()).RegisterRoutes(router)

	issued := map[string]string{}
	for id, actor := range actors {
		token, _, err := tokens.Issue(id, actor.Role)
		if err != nil {
			t.Fatalf("Issue() error = %v", err)
		}
		issued[actor.Role] = token
	}
	return router, issued
}

func TestCreate_RoleGate(t *testing.T) {
	created := 0
	svc := &mockCompanyService{
		createFunc: func(ctx context.Context, company *model.Company) error {
			created++
			company.ID = "6277a1f0c2a4b3d1e0f00001"
			return nil
		},
	}
	router, tokens := setup(t, svc)

	tests := []struct {
		name       string
		token      string
		wantStatus int
	}{
		{name: "anonymous", token: "", wantStatus: http.StatusUnauthorized},
		{name: "user", token: tokens[model.RoleUser], wantStatus: http.StatusForbidden},
		{name: "admin", token: tokens[model.RoleAdmin], wantStatus: http.StatusCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/companies", strings.NewReader(`{"name":"Acme"}`))
			req.Header.Set("Content-Type", "application/json")
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (%s)", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}

	if created != 1 {
		t.Errorf("service called %d times, want 1", created)
	}
}

func TestGetAll_Public(t *testing.T) {
	svc := &mockCompanyService{
		getAllFunc: func(ctx context.Context, limit int, offset int64) ([]*model.Company, int64, error) {
			return []*model.Company{{ID: "1", Name: "Acme"}}, 1, nil
		},
	}
	router, _ := setup(t, svc)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/companies", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["success"] != true || body["total_count"] != float64(1) {
		t.Errorf("unexpected body %v", body)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	svc := &mockCompanyService{
		getByIDFunc: func(ctx context.Context, id string) (*model.Company, error) {
			return nil, apperrors.NotFoundWithID("Company", id)
		},
	}
	router, _ := setup(t, svc)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/companies/6277a1f0c2a4b3d1e0f000ff", nil))

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d", w.Code)
	}
}
