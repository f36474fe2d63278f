package handlers

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"

	"skillswap-server/internal/middleware"
	"skillswap-server/internal/services"
	"skillswap-server/internal/utils"
)

// respondError translates a service error into the JSON error envelope.
// Anything unrecognised is logged and reported as a 500 without details.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		utils.BadRequest(c, verr.Error())
	case errors.Is(err, services.ErrNotFound):
		utils.NotFound(c, err.Error())
	case errors.Is(err, services.ErrDuplicateApplication):
		utils.Conflict(c, "You have already applied to this listing")
	case errors.Is(err, services.ErrUnauthorized):
		utils.Forbidden(c, "You are not allowed to perform this action")
	case errors.Is(err, services.ErrAlreadyCompleted),
		errors.Is(err, services.ErrNotAcceptedYet),
		errors.Is(err, services.ErrInvalidTransition):
		utils.Conflict(c, err.Error())
	default:
		logger.Error("request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err,
		)
		utils.InternalServerError(c, "Internal server error")
	}
}

// currentUser reads the authenticated user id, answering 401 when it is absent.
func currentUser(c *gin.Context) (string, bool) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
	}
	return userID, ok
}
