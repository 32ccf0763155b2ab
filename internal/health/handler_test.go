package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"jobfair/pkg/logger"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type pingerFunc func(ctx context.Context, rp *readpref.ReadPref) error

func (f pingerFunc) Ping(ctx context.Context, rp *readpref.ReadPref) error {
	return f(ctx, rp)
}

func TestHealthAndReady(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		pingErr    error
		wantStatus int
	}{
		{name: "liveness ignores database", path: "/health", pingErr: errors.New("down"), wantStatus: http.StatusOK},
		{name: "ready", path: "/ready", wantStatus: http.StatusOK},
		{name: "not ready", path: "/ready", pingErr: errors.New("down"), wantStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := pingerFunc(func(ctx context.Context, rp *readpref.ReadPref) error {
				if _, ok := ctx.Deadline(); !ok {
					t.Error("ping must carry a deadline")
				}
				return tt.pingErr
			})
			router := httprouter.New()
			NewHandler(db, logger.Discard()).RegisterRoutes(router)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}
