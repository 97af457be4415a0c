package astradb

import (
	"context"
	"errors"
	"time"

	"github.com/datastax/astra-db-go/dacmdx"
	"github.com/datastax/astra-db-go/zaputils"
	"go.uber.org/zap"
)

// commandRunner wraps the bare command executor with the per-attempt
// deadline budget and lifecycle event emission. It is the single funnel
// every Data API command goes through.
type commandRunner struct {
	logger     *zap.Logger
	emitter    *EventEmitter
	executor   dacmdx.Executor
	keyspace   string
	collection string
	monitoring bool
}

func (cr commandRunner) run(ctx context.Context, command map[string]interface{}, tm *TimeoutManager) (*dacmdx.RawResponse, error) {
	timeout, mkTimeoutErr := tm.Advance()
	started := time.Now()

	if timeout <= 0 {
		// The operation budget is already spent; fail fast without
		// attempting the HTTP call.
		err := mkTimeoutErr()
		cr.emitFailed(command, time.Since(started), err)
		return nil, err
	}

	if cr.monitoring {
		ev := &CommandStartedEvent{
			baseEvent:  newBaseEvent(EventCommandStarted),
			Command:    command,
			Keyspace:   cr.keyspace,
			Collection: cr.collection,
			Timeout:    timeout,
		}
		cr.emitter.Emit(ev)
	}

	cr.logger.Debug("executing command",
		zaputils.CommandName("command", commandName(command)),
		zaputils.KeyspaceName("keyspace", cr.keyspace),
		zaputils.CollectionName("collection", cr.collection))

	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := cr.executor.Execute(attemptCtx, command, &dacmdx.ExecuteOptions{
		Keyspace:   cr.keyspace,
		Collection: cr.collection,
	})
	if err != nil {
		if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			err = mkTimeoutErr()
		}

		cr.emitFailed(command, time.Since(started), err)
		return nil, err
	}

	if cr.monitoring {
		if warnings := warningsFromStatus(resp.Status); len(warnings) > 0 {
			cr.emitter.Emit(&CommandWarningsEvent{
				baseEvent:  newBaseEvent(EventCommandWarnings),
				Command:    command,
				Keyspace:   cr.keyspace,
				Collection: cr.collection,
				Warnings:   warnings,
			})
		}

		cr.emitter.Emit(&CommandSucceededEvent{
			baseEvent:  newBaseEvent(EventCommandSucceeded),
			Command:    command,
			Keyspace:   cr.keyspace,
			Collection: cr.collection,
			Duration:   time.Since(started),
			Response:   resp,
		})
	}

	return resp, nil
}

func (cr commandRunner) emitFailed(command map[string]interface{}, duration time.Duration, err error) {
	if !cr.monitoring {
		return
	}

	cr.emitter.Emit(&CommandFailedEvent{
		baseEvent:  newBaseEvent(EventCommandFailed),
		Command:    command,
		Keyspace:   cr.keyspace,
		Collection: cr.collection,
		Duration:   duration,
		Err:        err,
	})
}

func warningsFromStatus(status map[string]interface{}) []dacmdx.ErrorDescriptor {
	rawWarnings, ok := status["warnings"].([]interface{})
	if !ok {
		return nil
	}

	var warnings []dacmdx.ErrorDescriptor
	for _, raw := range rawWarnings {
		switch tv := raw.(type) {
		case string:
			warnings = append(warnings, dacmdx.ErrorDescriptor{Message: tv})
		case map[string]interface{}:
			desc := dacmdx.ErrorDescriptor{}
			desc.ErrorCode, _ = tv["errorCode"].(string)
			desc.Message, _ = tv["message"].(string)
			warnings = append(warnings, desc)
		}
	}

	return warnings
}
