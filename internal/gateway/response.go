package gateway

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/bizmatters/agent-builder/workflow-orchestrator/internal/models"
)

const msgpackContentType = "application/msgpack"

// wantsMsgpack reports whether the client asked for the binary encoding.
func wantsMsgpack(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), msgpackContentType)
}

// render writes v as JSON, or as msgpack when the Accept header asks for it.
func render(c *gin.Context, status int, v any) {
	if !wantsMsgpack(c) {
		c.JSON(status, v)
		return
	}
	data, err := msgpack.Marshal(v)
	if err != nil {
		log.Printf(`{"level":"error","message":"Failed to encode msgpack response","path":"%s","error":"%v"}`, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: "Failed to encode response",
			Code:  models.ErrCodeInternalError,
		})
		return
	}
	c.Data(status, msgpackContentType, data)
}

// statusFor maps an error to its HTTP status and error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, models.ErrCodeNotFound
	case errors.Is(err, models.ErrSessionClosed):
		return http.StatusGone, models.ErrCodeSessionClosed
	case errors.Is(err, models.ErrSuperseded):
		return http.StatusConflict, models.ErrCodeSuperseded
	case errors.Is(err, models.ErrClosed):
		return http.StatusConflict, models.ErrCodeInvalidRequest
	}

	switch models.KindOf(err) {
	case models.KindValidation:
		return http.StatusBadRequest, models.ErrCodeValidationFailed
	case models.KindSemantic:
		return http.StatusUnprocessableEntity, models.ErrCodeUpstreamRejected
	case models.KindTransport, models.KindPollTerminal:
		return http.StatusBadGateway, models.ErrCodeUpstreamFailed
	}
	return http.StatusInternalServerError, models.ErrCodeInternalError
}

// respondError translates err into an ErrorResponse.
func respondError(c *gin.Context, err error) {
	status, code := statusFor(err)

	resp := models.ErrorResponse{
		Error: models.MessageOf(err),
		Code:  code,
	}
	var se *models.StepError
	if errors.As(err, &se) {
		resp.Details = map[string]string{
			"step": se.Step,
			"kind": se.Kind.String(),
		}
	}

	if status >= http.StatusInternalServerError {
		log.Printf(`{"level":"error","message":"Request failed","path":"%s","code":"%s","error":"%v"}`, c.Request.URL.Path, code, err)
	}
	_ = c.Error(err)
	render(c, status, resp)
}

// badRequest rejects a malformed request body.
func badRequest(c *gin.Context, message string) {
	render(c, http.StatusBadRequest, models.ErrorResponse{
		Error: message,
		Code:  models.ErrCodeInvalidRequest,
	})
}
