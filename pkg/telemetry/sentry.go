// Package telemetry reports unexpected server errors to Sentry.
//
// Reporting is disabled until Init is called with a non-empty DSN; CaptureError
// is then a no-op, so handlers may call it unconditionally.
package telemetry

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
)

var enabled atomic.Bool

// Init configures the Sentry client. An empty dsn disables reporting.
func Init(dsn, environment, release string) error {
	if dsn == "" {
		enabled.Store(false)
		return nil
	}
	if environment == "" {
		environment = "development"
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		Release:          release,
		AttachStacktrace: true,
		Tags: map[string]string{
			"service": "cinestream",
		},
		BeforeSend: scrub,
	})
	if err != nil {
		return fmt.Errorf("sentry init: %w", err)
	}
	enabled.Store(true)
	return nil
}

func Enabled() bool { return enabled.Load() }

// CaptureError sends err with the given tags.
func CaptureError(err error, tags map[string]string) {
	if err == nil || !enabled.Load() {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		sentry.CaptureException(err)
	})
}

// Flush blocks until buffered events are sent or the timeout passes.
func Flush(timeout time.Duration) {
	if enabled.Load() {
		sentry.Flush(timeout)
	}
}

// scrub drops request headers and cookies, which may carry bearer tokens.
func scrub(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	if event.Request != nil {
		event.Request.Headers = nil
		event.Request.Cookies = ""
		event.Request.QueryString = ""
	}
	event.User = sentry.User{ID: event.User.ID}
	return event
}
