package netutil

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"syscall"
	"testing"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestShouldRetry(t *testing.T) {
	retry := []error{
		timeoutErr{},
		&net.OpError{Op: "dial", Err: errors.New("no route to host")},
		&url.Error{Op: "Post", URL: "https://api.telegram.org", Err: syscall.ECONNRESET},
		fmt.Errorf("send: %w", syscall.ECONNREFUSED),
	}
	for _, err := range retry {
		if !ShouldRetry(err) {
			t.Fatalf("ShouldRetry(%v) = false", err)
		}
	}

	keep := []error{
		nil,
		errors.New("telegram: message is too long (400)"),
		context.Canceled,
		&net.OpError{Op: "read", Err: errors.New("tls: bad record MAC")},
	}
	for _, err := range keep {
		if ShouldRetry(err) {
			t.Fatalf("ShouldRetry(%v) = true", err)
		}
	}
}
