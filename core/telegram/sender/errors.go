package sender

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"
)

var (
	tokenRe      = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)
	statusSuffix = regexp.MustCompile(`\((\d{3})\)\s*$`)
)

// Classify maps an outbound error to a short kind for logs: timeout, dns,
// dial, tls, flood, http_4xx, http_5xx or unknown.
func Classify(err error) string {
	if err == nil {
		return ""
	}
	if kind := transportKind(err); kind != "" {
		return kind
	}
	if _, ok := floodWait(err); ok {
		return "flood"
	}
	var alert tls.AlertError
	if errors.As(err, &alert) {
		return "tls"
	}
	switch status := statusOf(err); {
	case status >= 500:
		return "http_5xx"
	case status >= 400:
		return "http_4xx"
	}
	return "unknown"
}

// transportKind recognises network-level failures, unwrapping *url.Error
// and read/write *net.OpError layers.
func transportKind(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	var dns *net.DNSError
	if errors.As(err, &dns) {
		if dns.IsTimeout {
			return "timeout"
		}
		return "dns"
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return "timeout"
	}
	var op *net.OpError
	if errors.As(err, &op) {
		if op.Op == "dial" {
			return "dial"
		}
		if op.Err != nil && op.Err != err {
			return transportKind(op.Err)
		}
	}
	var ue *url.Error
	if errors.As(err, &ue) && ue.Err != nil && ue.Err != err {
		return transportKind(ue.Err)
	}
	return ""
}

// statusOf finds the HTTP-like status of an API error, falling back to the
// "(NNN)" suffix telebot appends to error texts.
func statusOf(err error) int {
	var api *tele.Error
	if errors.As(err, &api) {
		return api.Code
	}
	if _, ok := floodWait(err); ok {
		return http.StatusTooManyRequests
	}
	var group tele.GroupError
	if errors.As(err, &group) {
		return http.StatusBadRequest
	}
	if m := statusSuffix.FindStringSubmatch(strings.TrimSpace(err.Error())); m != nil {
		code, _ := strconv.Atoi(m[1])
		return code
	}
	return 0
}

// Redact returns the error text with Telegram bot tokens masked.
func Redact(err error) string {
	if err == nil {
		return ""
	}
	return tokenRe.ReplaceAllString(err.Error(), "bot<redacted>")
}

// Describe is Classify and Redact together, for recording failed deliveries.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	return Classify(err) + ": " + Redact(err)
}

// floodWait extracts the retry delay Telegram asks for after a 429.
func floodWait(err error) (time.Duration, bool) {
	var flood tele.FloodError
	if errors.As(err, &flood) {
		return time.Duration(flood.RetryAfter) * time.Second, true
	}
	return 0, false
}
