package astradb

import (
	"context"

	"github.com/datastax/astra-db-go/zaputils"
	"go.uber.org/zap"
)

// Document is a single record as carried over the wire, with the extended
// type set ($date, $uuid, $objectId, big integers) already revived.
type Document = map[string]interface{}

type (
	Filter     = map[string]interface{}
	Sort       = map[string]interface{}
	Projection = map[string]interface{}
	Update     = map[string]interface{}
)

type CollectionOptions struct {
	// EmbeddingAPIKey is forwarded verbatim on every request against this
	// collection, for server-side embedding providers.
	EmbeddingAPIKey string

	Timeouts *TimeoutOptions
}

// Collection is a handle on one collection; the leaf node of the event
// hierarchy.
type Collection struct {
	db       *Database
	logger   *zap.Logger
	emitter  *EventEmitter
	name     string
	timeouts TimeoutDescriptor
	runner   commandRunner
}

func (db *Database) Collection(name string, opts *CollectionOptions) *Collection {
	if opts == nil {
		opts = &CollectionOptions{}
	}

	emitter := newEventEmitter(db.emitter, db.logger)

	db.logger.Debug("created collection handle",
		zaputils.FQCollectionName("collection", db.endpoint, db.keyspace, name))

	return &Collection{
		db:       db,
		logger:   db.logger,
		emitter:  emitter,
		name:     name,
		timeouts: MergeTimeouts(db.timeouts, opts.Timeouts),
		runner:   db.runner(emitter, name, opts.EmbeddingAPIKey),
	}
}

func (c *Collection) Name() string {
	return c.name
}

func (c *Collection) Keyspace() string {
	return c.db.keyspace
}

func (c *Collection) On(name EventName, fn EventListener) func() {
	return c.emitter.On(name, fn)
}

type InsertOneResult struct {
	InsertedID interface{}
}

type InsertOneOptions struct {
	Timeout *TimeoutOptions
}

func (c *Collection) InsertOne(ctx context.Context, document Document, opts *InsertOneOptions) (*InsertOneResult, error) {
	if opts == nil {
		opts = &InsertOneOptions{}
	}

	tm := SingleTimeoutManager(TimeoutCategoryGeneralMethod, c.timeouts, opts.Timeout)
	resp, err := c.runner.run(ctx, map[string]interface{}{
		"insertOne": map[string]interface{}{"document": document},
	}, tm)
	if err != nil {
		return nil, err
	}

	ids := idsFromStatus(resp.Status)
	result := &InsertOneResult{}
	if len(ids) > 0 {
		result.InsertedID = ids[0]
	}

	return result, nil
}

type FindOneOptions struct {
	Sort              Sort
	Projection        Projection
	IncludeSimilarity bool
	Timeout           *TimeoutOptions
}

// FindOne returns the first matching document, or nil when nothing matches.
func (c *Collection) FindOne(ctx context.Context, filter Filter, opts *FindOneOptions) (Document, error) {
	if opts == nil {
		opts = &FindOneOptions{}
	}

	payload := map[string]interface{}{
		"filter": orEmptyFilter(filter),
	}
	if opts.Sort != nil {
		payload["sort"] = opts.Sort
	}
	if opts.Projection != nil {
		payload["projection"] = opts.Projection
	}
	if opts.IncludeSimilarity {
		payload["options"] = map[string]interface{}{"includeSimilarity": true}
	}

	tm := SingleTimeoutManager(TimeoutCategoryGeneralMethod, c.timeouts, opts.Timeout)
	resp, err := c.runner.run(ctx, map[string]interface{}{"findOne": payload}, tm)
	if err != nil {
		return nil, err
	}

	doc, _ := resp.Data["document"].(map[string]interface{})
	return doc, nil
}

type DropOptions struct {
	Timeout *TimeoutOptions
}

func (c *Collection) Drop(ctx context.Context, opts *DropOptions) error {
	var dropOpts *DropCollectionOptions
	if opts != nil {
		dropOpts = &DropCollectionOptions{Timeout: opts.Timeout}
	}
	return c.db.DropCollection(ctx, c.name, dropOpts)
}

func orEmptyFilter(filter Filter) Filter {
	if filter == nil {
		return Filter{}
	}
	return filter
}

func idsFromStatus(status map[string]interface{}) []interface{} {
	ids, _ := status["insertedIds"].([]interface{})
	return ids
}

func statusInt(status map[string]interface{}, key string) int64 {
	switch tv := status[key].(type) {
	case int64:
		return tv
	case float64:
		return int64(tv)
	}
	return 0
}

func statusBool(status map[string]interface{}, key string) bool {
	b, _ := status[key].(bool)
	return b
}

func statusString(status map[string]interface{}, key string) (string, bool) {
	s, ok := status[key].(string)
	return s, ok
}
