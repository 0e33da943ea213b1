package web

// errors.go maps technical failures to messages a payroll operator can act
// on. Technical details are logged with the request ID; clients only ever see
// the mapped message and its support code.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

var (
	errMissingFile      = errors.New("missing file part")
	errMissingConfig    = errors.New("missing email config part")
	errConfigJSON       = errors.New("email config is not valid json")
	errFileTooLarge     = errors.New("csv file too large")
	errRateLimited      = errors.New("rate limit exceeded")
	errMethodNotAllowed = errors.New("method not allowed")
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns is matched case-insensitively against the error text. First
// match wins, so specific patterns come before general ones.
var errorPatterns = []errorPattern{
	{
		pattern: "csv file too large",
		msg: UserMessage{
			Message: "CSV file is too large",
			Action:  "Split the payroll into smaller files",
			Code:    "FILE001",
		},
	},
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "CSV file is too large",
			Action:  "Split the payroll into smaller files",
			Code:    "FILE001",
		},
	},
	{
		pattern: "missing file part",
		msg: UserMessage{
			Message: "Missing file or email config",
			Action:  "Attach the payroll CSV as the file field",
			Code:    "FILE004",
		},
	},
	{
		pattern: "csv file is empty or invalid",
		msg: UserMessage{
			Message: "CSV file is empty or invalid",
			Action:  "Check the file has a header row and at least one employee",
			Code:    "FILE005",
		},
	},
	{
		pattern: "missing email config part",
		msg: UserMessage{
			Message: "Missing file or email config",
			Action:  "Send the SMTP settings as the emailConfig field",
			Code:    "CFG001",
		},
	},
	{
		pattern: "email config is not valid json",
		msg: UserMessage{
			Message: "Email config is not valid JSON",
			Action:  "Send host, port, user, password and from as a JSON object",
			Code:    "CFG002",
		},
	},
	{
		pattern: "invalid email config",
		msg: UserMessage{
			Message: "Email config is incomplete",
			Action:  "Fill in every SMTP setting",
			Code:    "CFG002",
		},
	},
	{
		pattern: "unknown dispatch profile",
		msg: UserMessage{
			Message: "Unknown dispatch profile",
			Action:  "Use one of the profiles listed at /api/profiles",
			Code:    "CFG002",
		},
	},
	{
		pattern: "too many payslip runs",
		msg: UserMessage{
			Message: "Another payslip run is in progress",
			Action:  "Wait for it to finish and try again",
			Code:    "RUN001",
		},
	},
	{
		pattern: "server is shutting down",
		msg: UserMessage{
			Message: "Server is shutting down",
			Action:  "Try again once the server is back",
			Code:    "RUN002",
		},
	},
	{
		pattern: "method not allowed",
		msg: UserMessage{
			Message: "Method not allowed",
			Action:  "Check the API route and HTTP method",
			Code:    "REQ001",
		},
	},
	{
		pattern: "rate limit exceeded",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Wait a minute before retrying",
			Code:    "RATE001",
		},
	},
}

var defaultMessage = UserMessage{
	Message: "Failed to process payslips",
	Action:  "Try again; contact support if it keeps happening",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-facing message. Unknown
// errors map to the generic ERR000 message.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}
	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// ErrorResponse is the JSON body for non-stream API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// respondError logs err with the request ID and writes the mapped message as
// JSON.
func respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	userMsg := MapError(err)

	slog.Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
		"request_id", middleware.GetReqID(r.Context()),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   userMsg.Message,
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
