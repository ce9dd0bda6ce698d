// Package telemetry sends anonymous usage events. It is opt-in, carries no
// task content or project identifiers, and must never block a command or
// write to its output.
package telemetry

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/posthog/posthog-go"
)

// stateFileName holds the anonymous id, relative to the config directory.
const stateFileName = "telemetry.json"

// Event names. Only command names and error kinds are reported, never
// arguments or task content.
const (
	EventCommandRun = "command_run"
	EventConnect    = "connect_completed"
)

// Client is the telemetry surface commands use.
type Client interface {
	// Track enqueues an event. No-op when telemetry is disabled.
	Track(event string, properties map[string]any)
	// Close flushes pending events; bounded by the SDK's own timeouts.
	Close() error
}

// state persists the anonymous identity across invocations.
type state struct {
	AnonymousID string `json:"anonymous_id"`
}

// loadAnonymousID reads or creates the anonymous id. Never fails: on any
// error a fresh (unpersisted) id is used for this process.
func loadAnonymousID(configDir string) string {
	path := filepath.Join(configDir, stateFileName)
	if raw, err := os.ReadFile(path); err == nil {
		var st state
		if json.Unmarshal(raw, &st) == nil && st.AnonymousID != "" {
			return st.AnonymousID
		}
	}
	st := state{AnonymousID: uuid.NewString()}
	if raw, err := json.Marshal(st); err == nil {
		_ = os.WriteFile(path, raw, 0o644)
	}
	return st.AnonymousID
}

// posthogClient wraps the PostHog SDK.
type posthogClient struct {
	client  enqueuer
	anonID  string
	version string
}

// enqueuer is the slice of the PostHog client used here; tests stub it.
type enqueuer interface {
	io.Closer
	Enqueue(msg posthog.Message) error
}

// New builds a telemetry client. Returns a noop client when disabled or
// when no API key is compiled in.
func New(enabled bool, apiKey, version, configDir string) Client {
	if !enabled || apiKey == "" {
		return NoopClient{}
	}
	ph, err := posthog.NewWithConfig(apiKey, posthog.Config{
		BatchSize: 10,
		Interval:  time.Second,
		Logger:    quietLogger{},
	})
	if err != nil {
		return NoopClient{}
	}
	return &posthogClient{
		client:  ph,
		anonID:  loadAnonymousID(configDir),
		version: version,
	}
}

func newWithEnqueuer(enq enqueuer, anonID, version string) *posthogClient {
	return &posthogClient{client: enq, anonID: anonID, version: version}
}

func (c *posthogClient) Track(event string, properties map[string]any) {
	props := posthog.NewProperties()
	for k, v := range properties {
		props.Set(k, v)
	}
	props.Set("os", runtime.GOOS)
	props.Set("arch", runtime.GOARCH)
	props.Set("cli_version", c.version)
	// No person profiles: events stay anonymous.
	props.Set("$process_person_profile", false)

	_ = c.client.Enqueue(posthog.Capture{
		DistinctId: c.anonID,
		Event:      event,
		Properties: props,
	})
}

func (c *posthogClient) Close() error {
	return c.client.Close()
}

// NoopClient drops everything. Used whenever telemetry is off.
type NoopClient struct{}

func (NoopClient) Track(string, map[string]any) {}
func (NoopClient) Close() error                 { return nil }

// quietLogger keeps SDK transport noise out of command output.
type quietLogger struct{}

func (quietLogger) Debugf(string, ...interface{}) {}
func (quietLogger) Logf(string, ...interface{})   {}
func (quietLogger) Warnf(string, ...interface{})  {}
func (quietLogger) Errorf(string, ...interface{}) {}
