package telegram

import (
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/serikovn/nexpr-update/core/telegram/netutil"
)

// clientTuning holds the timeouts of the Bot API HTTP client.
type clientTuning struct {
	dial, keepAlive, tlsHandshake time.Duration
	responseHeader, idle, overall time.Duration
	retries                       int
	backoff                       time.Duration
}

var apiTuning = clientTuning{
	dial:           5 * time.Second,
	keepAlive:      30 * time.Second,
	tlsHandshake:   5 * time.Second,
	responseHeader: 5 * time.Second,
	idle:           30 * time.Second,
	overall:        30 * time.Second,
	retries:        3,
	backoff:        2 * time.Second,
}

var errBodyNotReplayable = errors.New("telegram: request body cannot be replayed")

// BuildHTTPClient returns the client used for Bot API calls. Requests failing
// with transient network errors are replayed with a linear backoff.
func BuildHTTPClient() *http.Client {
	t := apiTuning
	base := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: t.dial, KeepAlive: t.keepAlive}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       t.idle,
		TLSHandshakeTimeout:   t.tlsHandshake,
		ResponseHeaderTimeout: t.responseHeader,
		ExpectContinueTimeout: time.Second,
	}
	return &http.Client{
		Timeout:   t.overall,
		Transport: &retryTransport{base: base, retries: t.retries, backoff: t.backoff},
	}
}

type retryTransport struct {
	base    http.RoundTripper
	retries int
	backoff time.Duration
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	resp, err := base.RoundTrip(req)
	for attempt := 1; err != nil && attempt <= t.retries && netutil.ShouldRetry(err); attempt++ {
		if werr := t.wait(req, attempt); werr != nil {
			return nil, werr
		}
		again, rerr := replay(req)
		if rerr != nil {
			return nil, errors.Join(err, rerr)
		}
		resp, err = base.RoundTrip(again)
	}
	return resp, err
}

func (t *retryTransport) wait(req *http.Request, attempt int) error {
	d := t.backoff * time.Duration(attempt)
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-req.Context().Done():
		return req.Context().Err()
	case <-timer.C:
		return nil
	}
}

// replay clones req with a fresh body.
func replay(req *http.Request) (*http.Request, error) {
	out := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return out, nil
	}
	if req.GetBody == nil {
		return nil, errBodyNotReplayable
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	out.Body = body
	return out, nil
}
