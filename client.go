// Package astradb implements a client for JSON-over-HTTP document/table
// data APIs, together with the DevOps API used for database lifecycle
// management.
package astradb

import (
	"net/http"

	"github.com/datastax/astra-db-go/daejsonx"
	"go.uber.org/zap"
)

type ClientOptions struct {
	Logger    *zap.Logger
	Transport http.RoundTripper
	UserAgent string

	// Timeouts overrides the process-wide timeout defaults for every
	// operation issued through this client.
	Timeouts *TimeoutOptions

	// Coercion controls how arbitrary-precision integers are written to the
	// wire, keyed by document path. With no entry they encode as plain JSON
	// numbers, which can silently lose precision.
	Coercion daejsonx.CoercionPolicy

	// DisableEvents turns off lifecycle event emission entirely.
	DisableEvents bool
}

// Client is the root object of the SDK. It owns the access token, the
// resolved timeout defaults and the top of the event hierarchy.
type Client struct {
	logger     *zap.Logger
	transport  http.RoundTripper
	userAgent  string
	token      string
	timeouts   TimeoutDescriptor
	coercion   daejsonx.CoercionPolicy
	emitter    *EventEmitter
	monitoring bool
}

func NewClient(token string, opts *ClientOptions) *Client {
	if opts == nil {
		opts = &ClientOptions{}
	}

	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = "astra-db-go"
	}

	logger := loggerOrNop(opts.Logger)

	return &Client{
		logger:     logger,
		transport:  transport,
		userAgent:  userAgent,
		token:      token,
		timeouts:   MergeTimeouts(DefaultTimeouts(), opts.Timeouts),
		coercion:   opts.Coercion,
		emitter:    newEventEmitter(nil, logger),
		monitoring: !opts.DisableEvents,
	}
}

func (c *Client) Emitter() *EventEmitter {
	return c.emitter
}

// On registers a listener at the top of the event hierarchy; it observes
// events from every database and collection derived from this client.
func (c *Client) On(name EventName, fn EventListener) func() {
	return c.emitter.On(name, fn)
}
