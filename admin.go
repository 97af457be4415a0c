package astradb

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/datastax/astra-db-go/daadminx"
	"github.com/datastax/astra-db-go/zaputils"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"
)

const DefaultDevOpsEndpoint = "https://api.astra.datastax.com/v2"

const (
	DatabaseStatusActive       = "ACTIVE"
	DatabaseStatusInitializing = "INITIALIZING"
	DatabaseStatusPending      = "PENDING"
	DatabaseStatusMaintenance  = "MAINTENANCE"
	DatabaseStatusTerminating  = "TERMINATING"
	DatabaseStatusTerminated   = "TERMINATED"
	DatabaseStatusError        = "ERROR"
)

type AdminOptions struct {
	// Endpoint of the DevOps API; defaults to DefaultDevOpsEndpoint.
	Endpoint string

	// Token overrides the client-level token for admin calls.
	Token string

	Timeouts *TimeoutOptions
}

// AstraAdmin is a handle on the DevOps API for database lifecycle
// operations. It is a child node of the client in the event hierarchy.
type AstraAdmin struct {
	client     *Client
	logger     *zap.Logger
	emitter    *EventEmitter
	admin      daadminx.Admin
	timeouts   TimeoutDescriptor
	monitoring bool
}

func (c *Client) Admin(opts *AdminOptions) *AstraAdmin {
	if opts == nil {
		opts = &AdminOptions{}
	}

	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = DefaultDevOpsEndpoint
	}

	token := opts.Token
	if token == "" {
		token = c.token
	}

	return &AstraAdmin{
		client:  c,
		logger:  c.logger,
		emitter: newEventEmitter(c.emitter, c.logger),
		admin: daadminx.Admin{
			Logger:    c.logger,
			Transport: c.transport,
			UserAgent: c.userAgent,
			Endpoint:  endpoint,
			Token:     token,
		},
		timeouts:   MergeTimeouts(c.timeouts, opts.Timeouts),
		monitoring: c.monitoring,
	}
}

func (a *AstraAdmin) On(name EventName, fn EventListener) func() {
	return a.emitter.On(name, fn)
}

// request issues one DevOps call under the shared operation deadline,
// emitting the started/failed events. Success events are the caller's
// responsibility so long-running operations can mark themselves as such.
func (a *AstraAdmin) request(ctx context.Context, reqInfo *daadminx.RequestInfo, tm *TimeoutManager) (*daadminx.Response, error) {
	timeout, mkTimeoutErr := tm.Advance()
	started := time.Now()

	if timeout <= 0 {
		err := mkTimeoutErr()
		a.emitFailed(reqInfo, time.Since(started), err)
		return nil, err
	}

	if a.monitoring {
		a.emitter.Emit(&AdminCommandStartedEvent{
			baseEvent: newBaseEvent(EventAdminCommandStarted),
			Method:    reqInfo.Method,
			Path:      reqInfo.Path,
			Timeout:   timeout,
		})
	}

	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := a.admin.Execute(attemptCtx, reqInfo)
	if err != nil {
		if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			err = mkTimeoutErr()
		}

		a.emitFailed(reqInfo, time.Since(started), err)
		return nil, err
	}

	if a.monitoring {
		if warnings := adminWarnings(resp.Data); len(warnings) > 0 {
			a.emitter.Emit(&AdminCommandWarningsEvent{
				baseEvent: newBaseEvent(EventAdminCommandWarnings),
				Method:    reqInfo.Method,
				Path:      reqInfo.Path,
				Warnings:  warnings,
			})
		}
	}

	return resp, nil
}

func (a *AstraAdmin) requestAndNotify(ctx context.Context, reqInfo *daadminx.RequestInfo, tm *TimeoutManager) (*daadminx.Response, error) {
	started := time.Now()

	resp, err := a.request(ctx, reqInfo, tm)
	if err != nil {
		return nil, err
	}

	a.emitSucceeded(reqInfo, time.Since(started), false)
	return resp, nil
}

func (a *AstraAdmin) emitFailed(reqInfo *daadminx.RequestInfo, duration time.Duration, err error) {
	if !a.monitoring {
		return
	}

	a.emitter.Emit(&AdminCommandFailedEvent{
		baseEvent: newBaseEvent(EventAdminCommandFailed),
		Method:    reqInfo.Method,
		Path:      reqInfo.Path,
		Duration:  duration,
		Err:       err,
	})
}

func (a *AstraAdmin) emitSucceeded(reqInfo *daadminx.RequestInfo, duration time.Duration, wasLongRunning bool) {
	if !a.monitoring {
		return
	}

	a.emitter.Emit(&AdminCommandSucceededEvent{
		baseEvent:      newBaseEvent(EventAdminCommandSucceeded),
		Method:         reqInfo.Method,
		Path:           reqInfo.Path,
		WasLongRunning: wasLongRunning,
		Duration:       duration,
	})
}

type longRunningOptions struct {
	id           string
	extractID    func(*daadminx.Response) (string, error)
	targetState  string
	legalStates  []string
	pollInterval time.Duration
	blocking     bool
	category     TimeoutCategory
	override     *TimeoutOptions
}

// executeLongRunning issues the initiating request and then polls the
// resource's status endpoint until it reaches the target state. The whole
// loop shares one timeout manager with the initiating call; the only
// cancellation primitive besides the context is that shared deadline.
func (a *AstraAdmin) executeLongRunning(ctx context.Context, reqInfo *daadminx.RequestInfo, lr longRunningOptions) (string, error) {
	tm := MultipartTimeoutManager(lr.category, a.timeouts, lr.override)
	started := time.Now()

	resp, err := a.request(ctx, reqInfo, tm)
	if err != nil {
		return "", err
	}

	id := lr.id
	if id == "" && lr.extractID != nil {
		id, err = lr.extractID(resp)
		if err != nil {
			a.emitFailed(reqInfo, time.Since(started), err)
			return "", err
		}
	}

	if !lr.blocking {
		a.emitSucceeded(reqInfo, time.Since(started), false)
		return id, nil
	}

	state := stateFromBody(resp.Data)
	statusPath := "/databases/" + id

	bo := backoff.WithContext(backoff.NewConstantBackOff(lr.pollInterval), ctx)

	for state != lr.targetState {
		if state != "" && !slices.Contains(lr.legalStates, state) {
			err := daadminx.UnexpectedStateError{
				ResourceID:    id,
				ActualState:   state,
				AllowedStates: append(slices.Clone(lr.legalStates), lr.targetState),
			}
			a.emitFailed(reqInfo, time.Since(started), err)
			return "", err
		}

		timeout, mkTimeoutErr := tm.Advance()
		if timeout <= 0 {
			err := mkTimeoutErr()
			a.emitFailed(reqInfo, time.Since(started), err)
			return "", err
		}

		// A fetch made only to learn the initial state is not a poll; the
		// event fires once per observed non-terminal state.
		if a.monitoring && state != "" {
			a.emitter.Emit(&AdminCommandPollingEvent{
				baseEvent: newBaseEvent(EventAdminCommandPolling),
				Method:    "GET",
				Path:      statusPath,
				Interval:  lr.pollInterval,
			})
		}

		wait := bo.NextBackOff()
		if wait == backoff.Stop {
			err := ctx.Err()
			a.emitFailed(reqInfo, time.Since(started), err)
			return "", err
		}
		if err := contextSleep(ctx, wait); err != nil {
			a.emitFailed(reqInfo, time.Since(started), err)
			return "", err
		}

		a.logger.Debug("polling long-running operation",
			zaputils.DatabaseID("databaseId", id),
			zap.String("state", state))

		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		state, _, err = a.admin.GetDatabaseState(attemptCtx, id)
		cancel()
		if err != nil {
			if lr.targetState == DatabaseStatusTerminated && isNotFound(err) {
				// A terminated database disappears from the API; that is
				// the terminal state we're waiting for.
				state = DatabaseStatusTerminated
				continue
			}

			if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
				err = mkTimeoutErr()
			}
			a.emitFailed(reqInfo, time.Since(started), err)
			return "", err
		}
	}

	a.emitSucceeded(reqInfo, time.Since(started), true)
	return id, nil
}

type DatabaseCloudInfo struct {
	Name          string `json:"name"`
	Keyspace      string `json:"keyspace,omitempty"`
	Region        string `json:"region"`
	CloudProvider string `json:"cloudProvider"`
}

type DatabaseInfo struct {
	ID     string            `json:"id"`
	Status string            `json:"status"`
	Info   DatabaseCloudInfo `json:"info"`
}

type DatabaseConfig struct {
	Name          string `json:"name"`
	Keyspace      string `json:"keyspace,omitempty"`
	Region        string `json:"region"`
	CloudProvider string `json:"cloudProvider"`
}

type CreateDatabaseOptions struct {
	// Blocking controls whether the call waits for the database to become
	// ACTIVE; defaults to true.
	Blocking *bool

	PollInterval time.Duration
	Timeout      *TimeoutOptions
}

// CreateDatabase provisions a database and, unless blocking is disabled,
// polls its status until it becomes ACTIVE. Returns the new database id.
func (a *AstraAdmin) CreateDatabase(ctx context.Context, config DatabaseConfig, opts *CreateDatabaseOptions) (string, error) {
	if opts == nil {
		opts = &CreateDatabaseOptions{}
	}

	if config.Keyspace == "" {
		config.Keyspace = DefaultKeyspace
	}

	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = 10 * time.Second
	}

	return a.executeLongRunning(ctx, &daadminx.RequestInfo{
		Method: "POST",
		Path:   "/databases",
		Body:   config,
	}, longRunningOptions{
		extractID:    extractDatabaseID,
		targetState:  DatabaseStatusActive,
		legalStates:  []string{DatabaseStatusInitializing, DatabaseStatusPending},
		pollInterval: pollInterval,
		blocking:     opts.Blocking == nil || *opts.Blocking,
		category:     TimeoutCategoryDatabaseAdmin,
		override:     opts.Timeout,
	})
}

type DropDatabaseOptions struct {
	Blocking     *bool
	PollInterval time.Duration
	Timeout      *TimeoutOptions
}

func (a *AstraAdmin) DropDatabase(ctx context.Context, databaseID string, opts *DropDatabaseOptions) error {
	if opts == nil {
		opts = &DropDatabaseOptions{}
	}

	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = 10 * time.Second
	}

	_, err := a.executeLongRunning(ctx, &daadminx.RequestInfo{
		Method: "POST",
		Path:   "/databases/" + databaseID + "/terminate",
	}, longRunningOptions{
		id:           databaseID,
		targetState:  DatabaseStatusTerminated,
		legalStates:  []string{DatabaseStatusTerminating, DatabaseStatusActive},
		pollInterval: pollInterval,
		blocking:     opts.Blocking == nil || *opts.Blocking,
		category:     TimeoutCategoryDatabaseAdmin,
		override:     opts.Timeout,
	})
	return err
}

type KeyspaceAdminOptions struct {
	Blocking     *bool
	PollInterval time.Duration
	Timeout      *TimeoutOptions
}

func (a *AstraAdmin) CreateKeyspace(ctx context.Context, databaseID, keyspace string, opts *KeyspaceAdminOptions) error {
	return a.keyspaceOp(ctx, "POST", databaseID, keyspace, opts)
}

func (a *AstraAdmin) DropKeyspace(ctx context.Context, databaseID, keyspace string, opts *KeyspaceAdminOptions) error {
	return a.keyspaceOp(ctx, "DELETE", databaseID, keyspace, opts)
}

func (a *AstraAdmin) keyspaceOp(ctx context.Context, method, databaseID, keyspace string, opts *KeyspaceAdminOptions) error {
	if opts == nil {
		opts = &KeyspaceAdminOptions{}
	}

	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = time.Second
	}

	_, err := a.executeLongRunning(ctx, &daadminx.RequestInfo{
		Method: method,
		Path:   "/databases/" + databaseID + "/keyspaces/" + keyspace,
	}, longRunningOptions{
		id:           databaseID,
		targetState:  DatabaseStatusActive,
		legalStates:  []string{DatabaseStatusMaintenance},
		pollInterval: pollInterval,
		blocking:     opts.Blocking == nil || *opts.Blocking,
		category:     TimeoutCategoryKeyspaceAdmin,
		override:     opts.Timeout,
	})
	return err
}

type GetDatabaseInfoOptions struct {
	Timeout *TimeoutOptions
}

func (a *AstraAdmin) GetDatabaseInfo(ctx context.Context, databaseID string, opts *GetDatabaseInfoOptions) (*DatabaseInfo, error) {
	if opts == nil {
		opts = &GetDatabaseInfoOptions{}
	}

	tm := SingleTimeoutManager(TimeoutCategoryDatabaseAdmin, a.timeouts, opts.Timeout)
	resp, err := a.requestAndNotify(ctx, &daadminx.RequestInfo{
		Method: "GET",
		Path:   "/databases/" + databaseID,
	}, tm)
	if err != nil {
		return nil, err
	}

	var info DatabaseInfo
	if err := json.Unmarshal(resp.Data, &info); err != nil {
		return nil, err
	}

	return &info, nil
}

type ListDatabasesOptions struct {
	Include       string `url:"include,omitempty"`
	Provider      string `url:"provider,omitempty"`
	Limit         int    `url:"limit,omitempty"`
	StartingAfter string `url:"starting_after,omitempty"`

	Timeout *TimeoutOptions `url:"-"`
}

func (a *AstraAdmin) ListDatabases(ctx context.Context, opts *ListDatabasesOptions) ([]DatabaseInfo, error) {
	if opts == nil {
		opts = &ListDatabasesOptions{}
	}

	tm := SingleTimeoutManager(TimeoutCategoryDatabaseAdmin, a.timeouts, opts.Timeout)
	resp, err := a.requestAndNotify(ctx, &daadminx.RequestInfo{
		Method: "GET",
		Path:   "/databases",
		Query:  opts,
	}, tm)
	if err != nil {
		return nil, err
	}

	var infos []DatabaseInfo
	if err := json.Unmarshal(resp.Data, &infos); err != nil {
		return nil, err
	}

	return infos, nil
}

func extractDatabaseID(resp *daadminx.Response) (string, error) {
	if loc := resp.Headers.Get("Location"); loc != "" {
		parts := strings.Split(strings.TrimSuffix(loc, "/"), "/")
		return parts[len(parts)-1], nil
	}

	var body struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(resp.Data, &body); err == nil && body.ID != "" {
		return body.ID, nil
	}

	return "", errors.New("could not resolve database id from create response")
}

func stateFromBody(data []byte) string {
	var body struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	return body.Status
}

func adminWarnings(data []byte) []string {
	var body struct {
		Warnings []string `json:"warnings"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return nil
	}
	return body.Warnings
}

func isNotFound(err error) bool {
	var serverErr daadminx.ServerError
	return errors.As(err, &serverErr) && serverErr.StatusCode == 404
}
