package types

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/go-github/v81/github"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
)

// Error code constants for agent-facing errors.
const (
	ErrCodeConfiguration = "CONFIGURATION_ERROR"
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeUpstream      = "UPSTREAM_ERROR"
	ErrCodeProcess       = "PROCESS_ERROR"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// MCPError represents a structured error returned to AI agents.
type MCPError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Tool    string `json:"tool"`
	Detail  string `json:"detail,omitempty"`
}

func (e *MCPError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("[%s] %s: %s (%s)", e.Code, e.Tool, e.Message, e.Detail)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Tool, e.Message)
}

// Text renders the error the way tool callers see it. It does not include the
// tool name, so the same condition reads identically across tools.
func (e *MCPError) Text() string {
	msg := strings.TrimSpace(e.Message)
	if d := strings.TrimSpace(e.Detail); d != "" {
		msg = msg + ": " + d
	}
	return fmt.Sprintf("Error [%s]: %s", e.Code, msg)
}

// NewConfigError returns a CONFIGURATION_ERROR.
func NewConfigError(message, detail string) *MCPError {
	return &MCPError{Code: ErrCodeConfiguration, Message: message, Detail: detail}
}

// NewInputError returns an INVALID_INPUT error.
func NewInputError(format string, args ...any) *MCPError {
	return &MCPError{Code: ErrCodeInvalidInput, Message: fmt.Sprintf(format, args...)}
}

// NewNotFoundError returns a NOT_FOUND error.
func NewNotFoundError(format string, args ...any) *MCPError {
	return &MCPError{Code: ErrCodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// NewProcessError returns a PROCESS_ERROR carrying the captured stderr verbatim.
func NewProcessError(prefix, stderr string) *MCPError {
	return &MCPError{Code: ErrCodeProcess, Message: prefix + ": " + strings.TrimSpace(stderr)}
}

// Classify maps err onto the error taxonomy. Errors that are already an
// *MCPError are returned as-is; everything unrecognised becomes
// INTERNAL_ERROR prefixed with operation.
func Classify(err error, operation string) *MCPError {
	if err == nil {
		return nil
	}

	var mcpErr *MCPError
	if errors.As(err, &mcpErr) {
		return mcpErr
	}

	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return &MCPError{
			Code:    ErrCodeUpstream,
			Message: fmt.Sprintf("GitHub API Error: %s (%d)", rateErr.Message, statusCode(rateErr.Response)),
			Detail:  "rate limit resets at " + rateErr.Rate.Reset.UTC().Format("2006-01-02T15:04:05Z"),
		}
	}

	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) {
		code := statusCode(ghErr.Response)
		if code == http.StatusNotFound {
			return &MCPError{Code: ErrCodeNotFound, Message: fmt.Sprintf("GitHub API Error: %s (%d)", ghErr.Message, code)}
		}
		return &MCPError{Code: ErrCodeUpstream, Message: fmt.Sprintf("GitHub API Error: %s (%d)", ghErr.Message, code)}
	}

	var apiStatus apierrors.APIStatus
	if errors.As(err, &apiStatus) {
		status := apiStatus.Status()
		e := &MCPError{
			Code:    ErrCodeUpstream,
			Message: fmt.Sprintf("Kubernetes API Error: %s (%d)", status.Reason, status.Code),
			Detail:  status.Message,
		}
		switch {
		case apierrors.IsNotFound(err):
			e.Code = ErrCodeNotFound
		case apierrors.IsInvalid(err), apierrors.IsBadRequest(err):
			e.Code = ErrCodeInvalidInput
		}
		return e
	}

	return &MCPError{Code: ErrCodeInternalError, Message: fmt.Sprintf("Error %s: %v", operation, err)}
}

// IsNotFound reports whether err is an upstream "does not exist" condition.
func IsNotFound(err error) bool {
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) {
		return statusCode(ghErr.Response) == http.StatusNotFound
	}
	return apierrors.IsNotFound(err)
}

func statusCode(resp *http.Response) int {
	if resp == nil {
		return 0
	}
	return resp.StatusCode
}
