package sender

import (
	"errors"
	"net/http"
	"regexp"

	"github.com/m3rciful/leadbot/core/netutil"
)

// StatusCoder is implemented by API errors that carry an HTTP status.
type StatusCoder interface {
	HTTPStatus() int
}

// Tokens that may appear in transport errors: Telegram bot tokens in URLs
// and bearer credentials echoed by proxies.
var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`),
	regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9+/=._-]+`),
}

// classifyError returns a short err_code for logs and metrics.
func classifyError(err error) string {
	if class := netutil.Classify(err); class != "" {
		return class
	}
	var coder StatusCoder
	if !errors.As(err, &coder) {
		return "unknown"
	}
	switch status := coder.HTTPStatus(); {
	case status == http.StatusTooManyRequests:
		return "http_429"
	case status >= 500:
		return "http_5xx"
	case status >= 400:
		return "http_4xx"
	}
	return "unknown"
}

// sanitizeErrorMessage strips credentials from err before it is logged.
func sanitizeErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	for _, re := range secretPatterns {
		msg = re.ReplaceAllString(msg, "<redacted>")
	}
	return msg
}
