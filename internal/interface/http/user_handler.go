package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	userapp "github.com/calcount/calcount-api/internal/application"
	"github.com/calcount/calcount-api/internal/domain/entity"
	"github.com/calcount/calcount-api/internal/interface/middleware"
	"github.com/calcount/calcount-api/pkg/response"
)

type UserHandler struct {
	Svc    *userapp.Service
	Logger *logrus.Logger
}

func NewUserHandler(svc *userapp.Service, logger *logrus.Logger) *UserHandler {
	return &UserHandler{Svc: svc, Logger: logger}
}

// principal aborts with 401 when Auth did not run.
func principal(c *gin.Context) (middleware.Principal, bool) {
	p, ok := middleware.CurrentPrincipal(c)
	if !ok {
		response.Error[any](c, http.StatusUnauthorized, "unauthorized", response.ErrorBody{Code: "unauthorized"})
	}
	return p, ok
}

// GetWeightLog GET /api/user/weight-log
func (h *UserHandler) GetWeightLog(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	entries, err := h.Svc.GetWeightLog(c.Request.Context(), p.UserID)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	if entries == nil {
		entries = []entity.WeightLogEntry{}
	}
	response.Success(c, http.StatusOK, entries, "weight log", nil)
}

// AddWeightLogEntry POST /api/user/weight-log
func (h *UserHandler) AddWeightLogEntry(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req weightEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	e := entity.WeightLogEntry{Weight: req.Weight, Date: req.Date}
	if err := h.Svc.AddWeightLogEntry(c.Request.Context(), p.UserID, e); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusCreated, e, "Weight log entry added successfully", nil)
}

// Search GET /api/users/search?username=
func (h *UserHandler) Search(c *gin.Context) {
	users, err := h.Svc.SearchByUsername(c.Request.Context(), c.Query("username"))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toUserDetailsList(users), "users", map[string]any{"count": len(users)})
}

// Usernames GET /api/users/usernames
func (h *UserHandler) Usernames(c *gin.Context) {
	names, err := h.Svc.ListUsernames(c.Request.Context())
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, names, "usernames", nil)
}

// GetByID GET /api/users/id/:id
func (h *UserHandler) GetByID(c *gin.Context) {
	u, err := h.Svc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toUserDetails(u), "user", nil)
}

// GetByUsername GET /api/users/:username
func (h *UserHandler) GetByUsername(c *gin.Context) {
	u, err := h.Svc.GetByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toUserDetails(u), "user", nil)
}
