package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	userapp "github.com/calcount/calcount-api/internal/application"
	"github.com/calcount/calcount-api/pkg/response"
)

type FriendHandler struct {
	Svc    *userapp.FriendService
	Logger *logrus.Logger
}

func NewFriendHandler(svc *userapp.FriendService, logger *logrus.Logger) *FriendHandler {
	return &FriendHandler{Svc: svc, Logger: logger}
}

// List GET /api/friends
func (h *FriendHandler) List(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	ids, err := h.Svc.ListFriends(c.Request.Context(), p.UserID)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, nonNil(ids), "friends", nil)
}

// WeightLogs GET /api/friends/weight-logs
func (h *FriendHandler) WeightLogs(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	data, err := h.Svc.ListFriendsWeightData(c.Request.Context(), p.UserID)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, data, "friend weight logs", nil)
}

// SendRequest POST /api/friends/requests/:id
func (h *FriendHandler) SendRequest(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	if err := h.Svc.SendFriendRequest(c.Request.Context(), p.UserID, c.Param("id")); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success[any](c, http.StatusOK, nil, "Friend request sent successfully", nil)
}

// AcceptRequest PUT /api/friends/requests?_id=
func (h *FriendHandler) AcceptRequest(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	requesterID := strings.TrimSpace(c.Query("_id"))
	if requesterID == "" {
		response.Error[any](c, http.StatusBadRequest, "invalid payload",
			response.ErrorBody{Code: "invalid_payload", Details: map[string]string{"_id": "is required"}})
		return
	}
	if err := h.Svc.AcceptFriendRequest(c.Request.Context(), p.UserID, requesterID); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success[any](c, http.StatusOK, nil, "Friend request accepted successfully", nil)
}

// Received GET /api/friends/requests/received
func (h *FriendHandler) Received(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	ids, err := h.Svc.ListFriendRequests(c.Request.Context(), p.UserID)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, nonNil(ids), "received friend requests", nil)
}

// Sent GET /api/friends/requests/sent
func (h *FriendHandler) Sent(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	ids, err := h.Svc.ListSentRequests(c.Request.Context(), p.UserID)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, nonNil(ids), "sent friend requests", nil)
}

// Remove DELETE /api/friends/:id
func (h *FriendHandler) Remove(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	if err := h.Svc.RemoveFriend(c.Request.Context(), p.UserID, c.Param("id")); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success[any](c, http.StatusOK, nil, "Friend removed successfully", nil)
}
