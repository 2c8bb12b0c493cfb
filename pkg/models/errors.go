package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

// Common error codes - HTTP focused but protocol-aware
const (
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeConflict           = "CONFLICT"
	ErrCodeInternal           = "INTERNAL_ERROR"
	ErrCodeBadRequest         = "BAD_REQUEST"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"

	// Protocol-specific error codes
	ErrCodeStreamProtocol = "STREAM_PROTOCOL_ERROR"
)

// Common errors
var (
	ErrEventNotFound = errors.New("event not found")
	ErrNotFound      = errors.New("resource not found")
	ErrInvalidInput  = errors.New("invalid input")

	// Stream protocol errors
	ErrStreamClosed       = errors.New("subscription closed")
	ErrMalformedMessage   = errors.New("malformed stream message")
	ErrUnknownMessageType = errors.New("unknown stream message type")
)

// AppError carries a coded error across the HTTP and websocket surfaces
type AppError struct {
	Code          string                 `json:"code"`
	Message       string                 `json:"message"`
	StatusCode    int                    `json:"status_code,omitempty"`
	Details       map[string]interface{} `json:"details,omitempty"`
	Protocol      string                 `json:"protocol,omitempty"` // http, websocket
	WebSocketCode int                    `json:"websocket_code,omitempty"`
}

func (e *AppError) Error() string {
	if e.Protocol != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Protocol, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ToHTTPError converts to HTTP-compatible error response
func (e *AppError) ToHTTPError() *APIResponse {
	return &APIResponse{
		Success:   false,
		Error:     e.Message,
		Message:   e.Message,
		Timestamp: time.Now(),
	}
}

// ToWebSocketError returns WebSocket close code and message
func (e *AppError) ToWebSocketError() (int, string) {
	if e.WebSocketCode != 0 {
		return e.WebSocketCode, e.Message
	}

	switch e.Code {
	case ErrCodeNotFound:
		return websocket.CloseNormalClosure, "resource not found"
	default:
		return websocket.CloseInternalServerErr, e.Message
	}
}

// NewHTTPError builds an HTTP-protocol AppError
func NewHTTPError(code, message string, statusCode int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Protocol:   "http",
		Details:    map[string]interface{}{"original_error": err.Error()},
	}
}

// NewWebSocketError builds a websocket-protocol AppError
func NewWebSocketError(wsCode int, code, message string, err error) *AppError {
	return &AppError{
		Code:          code,
		Message:       message,
		WebSocketCode: wsCode,
		Protocol:      "websocket",
		Details:       map[string]interface{}{"original_error": err.Error()},
	}
}
