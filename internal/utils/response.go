package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ResponseData is the envelope every /api route answers with. Status mirrors
// the HTTP code; Data carries the listing, response, conversation or page on
// success and Error carries the user-facing reason on failure.
type ResponseData struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func send(c *gin.Context, body ResponseData) {
	c.JSON(body.Status, body)
}

// Success answers reads and state changes such as accepting a response or marking a notification read.
func Success(c *gin.Context, message string, data any) {
	send(c, ResponseData{Status: http.StatusOK, Message: message, Data: data})
}

// Created answers a new listing, application or message.
func Created(c *gin.Context, message string, data any) {
	send(c, ResponseData{Status: http.StatusCreated, Message: message, Data: data})
}

// Error aborts the handler chain with a failure envelope.
func Error(c *gin.Context, statusCode int, errorMessage string) {
	c.AbortWithStatusJSON(statusCode, ResponseData{
		Status:  statusCode,
		Message: "An error occurred",
		Error:   errorMessage,
	})
}

// BadRequest rejects malformed bodies, ids and query strings.
func BadRequest(c *gin.Context, errorMessage string) {
	Error(c, http.StatusBadRequest, errorMessage)
}

// Unauthorized is for a missing or invalid bearer token.
func Unauthorized(c *gin.Context, errorMessage string) {
	Error(c, http.StatusUnauthorized, errorMessage)
}

// Forbidden is for an authenticated user acting on a swap they are not part of.
func Forbidden(c *gin.Context, errorMessage string) {
	Error(c, http.StatusForbidden, errorMessage)
}

func NotFound(c *gin.Context, errorMessage string) {
	Error(c, http.StatusNotFound, errorMessage)
}

// Conflict covers duplicate applications and transitions the current status does not allow.
func Conflict(c *gin.Context, errorMessage string) {
	Error(c, http.StatusConflict, errorMessage)
}

func InternalServerError(c *gin.Context, errorMessage string) {
	Error(c, http.StatusInternalServerError, errorMessage)
}
