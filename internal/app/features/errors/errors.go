// internal/app/features/errors/errors.go
package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/dalemusser/animelist/internal/app/system/socialgraph"
	"go.uber.org/zap"
)

// MessageServerError is the body message of every 500 response.
const MessageServerError = "Internal Server Error"

// messageBody is the JSON shape of every message-only response.
type messageBody struct {
	Message string `json:"message"`
}

// WriteJSON writes v as JSON with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteMessage writes {"message": msg} with the given status.
func WriteMessage(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, messageBody{Message: msg})
}

// StatusFor maps a social graph rejection to its HTTP status. ok is false for
// errors that are not rejections.
func StatusFor(err error) (status int, ok bool) {
	switch {
	case stderrors.Is(err, socialgraph.ErrSelfAction),
		stderrors.Is(err, socialgraph.ErrDuplicateRequest),
		stderrors.Is(err, socialgraph.ErrNoChange):
		return http.StatusBadRequest, true
	case stderrors.Is(err, socialgraph.ErrForbidden):
		return http.StatusForbidden, true
	case stderrors.Is(err, socialgraph.ErrNotFound):
		return http.StatusNotFound, true
	}
	return 0, false
}

// ErrorLogger writes error responses and logs the ones worth logging.
type ErrorLogger struct {
	log *zap.Logger
}

// NewErrorLogger creates an ErrorLogger.
func NewErrorLogger(logger *zap.Logger) *ErrorLogger {
	return &ErrorLogger{log: logger}
}

func (el *ErrorLogger) fields(r *http.Request, err error) []zap.Field {
	return []zap.Field{
		zap.Error(err),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
	}
}

// LogServerError logs err and responds 500 with the generic message.
func (el *ErrorLogger) LogServerError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	el.log.Error(msg, el.fields(r, err)...)
	WriteMessage(w, http.StatusInternalServerError, MessageServerError)
}

// LogBadRequest logs at debug level and responds 400 with userMsg.
func (el *ErrorLogger) LogBadRequest(w http.ResponseWriter, r *http.Request, msg string, err error, userMsg string) {
	el.log.Debug(msg, el.fields(r, err)...)
	WriteMessage(w, http.StatusBadRequest, userMsg)
}

// LogForbidden logs at info level and responds 403 with userMsg.
func (el *ErrorLogger) LogForbidden(w http.ResponseWriter, r *http.Request, msg string, userMsg string) {
	el.log.Info(msg, zap.String("method", r.Method), zap.String("path", r.URL.Path))
	WriteMessage(w, http.StatusForbidden, userMsg)
}

// Respond writes the response for an error returned by the social graph
// service: rejections carry their own message and status, anything else is
// logged as a server error.
func (el *ErrorLogger) Respond(w http.ResponseWriter, r *http.Request, op string, err error) {
	if status, ok := StatusFor(err); ok {
		WriteMessage(w, status, err.Error())
		return
	}
	el.LogServerError(w, r, op+" failed", err)
}
