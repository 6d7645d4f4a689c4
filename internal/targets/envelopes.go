package targets

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"axle-upload/internal/apperrors"
)

// The targets disagree on how failure is signaled: a string business code, a
// numeric business code, or a bare boolean body. Each helper builds the
// matching envelope check for one target.

type stringCodeEnvelope struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

// checkStringCode validates a {code:"200", msg} envelope. Any non-"200" code
// is a failure regardless of HTTP status.
func checkStringCode(target string) func(int, []byte) *apperrors.UpstreamError {
	return func(status int, body []byte) *apperrors.UpstreamError {
		if status != http.StatusOK {
			return &apperrors.UpstreamError{Target: target, Status: status, Message: snippet(body)}
		}
		var env stringCodeEnvelope
		if err := json.Unmarshal(body, &env); err != nil {
			return &apperrors.UpstreamError{Target: target, Status: status, Message: fmt.Sprintf("malformed envelope: %v", err)}
		}
		if env.Code != "200" {
			return &apperrors.UpstreamError{Target: target, Status: status, Code: env.Code, Message: env.Msg}
		}
		return nil
	}
}

type numericCodeEnvelope struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// checkNumericCode validates a {code:200, msg} envelope.
func checkNumericCode(target string) func(int, []byte) *apperrors.UpstreamError {
	return func(status int, body []byte) *apperrors.UpstreamError {
		if status != http.StatusOK {
			return &apperrors.UpstreamError{Target: target, Status: status, Message: snippet(body)}
		}
		var env numericCodeEnvelope
		if err := json.Unmarshal(body, &env); err != nil {
			return &apperrors.UpstreamError{Target: target, Status: status, Message: fmt.Sprintf("malformed envelope: %v", err)}
		}
		if env.Code != 200 {
			return &apperrors.UpstreamError{Target: target, Status: status, Code: fmt.Sprintf("%d", env.Code), Message: env.Msg}
		}
		return nil
	}
}

// checkBoolBody validates a bare JSON boolean body; anything but true fails.
func checkBoolBody(target string) func(int, []byte) *apperrors.UpstreamError {
	return func(status int, body []byte) *apperrors.UpstreamError {
		if status != http.StatusOK {
			return &apperrors.UpstreamError{Target: target, Status: status, Message: snippet(body)}
		}
		if !bytes.Equal(bytes.TrimSpace(body), []byte("true")) {
			return &apperrors.UpstreamError{Target: target, Status: status, Code: "false", Message: snippet(body)}
		}
		return nil
	}
}

func snippet(body []byte) string {
	const max = 200
	s := string(bytes.TrimSpace(body))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
