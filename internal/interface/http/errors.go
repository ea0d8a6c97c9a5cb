package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/calcount/calcount-api/internal/application"
	"github.com/calcount/calcount-api/pkg/response"
	"github.com/calcount/calcount-api/pkg/validation"
)

type errorMapping struct {
	target error
	status int
	code   string
}

// Order matters: exact cases come before the families they belong to.
var errorMappings = []errorMapping{
	{application.ErrBothNotFound, http.StatusNotFound, "both_not_found"},
	{application.ErrUserNotFound, http.StatusNotFound, "user_not_found"},
	{application.ErrReceiverNotFound, http.StatusNotFound, "receiver_not_found"},
	{application.ErrRequesterNotFound, http.StatusNotFound, "requester_not_found"},
	{application.ErrFriendNotFound, http.StatusNotFound, "friend_not_found"},
	{application.ErrNotFound, http.StatusNotFound, "not_found"},
	{application.ErrSelfRequest, http.StatusBadRequest, "self_request"},
	{application.ErrEmptyEntry, http.StatusBadRequest, "empty_entry"},
	{application.ErrInvalidWeight, http.StatusBadRequest, "invalid_weight"},
	{application.ErrAlreadyFriends, http.StatusConflict, "already_friends"},
	{application.ErrRequestAlreadySent, http.StatusConflict, "request_already_sent"},
	{application.ErrRequestPendingFromOther, http.StatusConflict, "request_pending_from_other"},
	{application.ErrDuplicateRequest, http.StatusConflict, "duplicate_request"},
	{application.ErrNoRequestFound, http.StatusConflict, "no_request_found"},
	{application.ErrNotFriends, http.StatusConflict, "not_friends"},
	{application.ErrUsernameTaken, http.StatusConflict, "username_taken"},
	{application.ErrEmailTaken, http.StatusConflict, "email_taken"},
	{application.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
	{application.ErrInvalidToken, http.StatusUnauthorized, "invalid_token"},
	{application.ErrSessionNotFound, http.StatusUnauthorized, "session_not_found"},
}

// writeError maps a service error to its status and stable code. Anything
// unclassified is logged and reported as a generic 500.
func writeError(c *gin.Context, logger *logrus.Logger, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			response.Error[any](c, m.status, m.target.Error(), response.ErrorBody{Code: m.code})
			return
		}
	}
	if logger != nil {
		logger.WithError(err).
			WithField("request_id", c.GetString("request_id")).
			WithField("route", c.FullPath()).
			Error("unhandled error")
	}
	response.Error[any](c, http.StatusInternalServerError, "an unexpected error occurred", response.ErrorBody{Code: "internal_error"})
}

func writeBindError(c *gin.Context, err error) {
	response.Error[any](c, http.StatusBadRequest, "invalid payload",
		response.ErrorBody{Code: "invalid_payload", Details: validation.ToDetails(err)})
}
