package handler

import (
	"net/http"

	"jobfair/internal/companies/service"
	httputil "jobfair/pkg/http"
	"jobfair/pkg/logger"
	"jobfair/pkg/middleware"
	"jobfair/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type CompanyHandler struct {
	service service.CompanyService
	auth    *middleware.Authenticator
	log     *logger.Logger
}

func NewCompanyHandler(service service.CompanyService, auth *middleware.Authenticator, log *logger.Logger) *CompanyHandler {
	return &CompanyHandler{
		service: service,
		auth:    auth,
		log:     log,
	}
}

func (h *CompanyHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var company model.Company
	if err := httputil.DecodeJSON(r, &company); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := h.service.Create(r.Context(), &company); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, company); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *CompanyHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	company, err := h.service.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, company); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *CompanyHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	companies, total, err := h.service.GetAll(r.Context(), limit, offset)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	if err := httputil.WritePaginated(w, companies, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "GetAll", "operation", "WritePaginated", "error", err)
	}
}

func (h *CompanyHandler) RegisterRoutes(router *httprouter.Router) {
	adminOnly := middleware.RequireRole(model.RoleAdmin)

	router.POST("/api/v1/companies", h.auth.Protect(adminOnly(h.Create)))
	router.GET("/api/v1/companies", h.GetAll)
	router.GET("/api/v1/companies/:id", h.GetByID)
}

func (h *CompanyHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}
