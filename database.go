package astradb

import (
	"context"
	"strings"

	"github.com/datastax/astra-db-go/dacmdx"
	"go.uber.org/zap"
)

const (
	DefaultKeyspace   = "default_keyspace"
	dataAPIPathSuffix = "/api/json/v1"
)

type DatabaseOptions struct {
	// Keyspace scopes all commands issued through this handle; defaults to
	// DefaultKeyspace.
	Keyspace string

	// Token overrides the client-level token for this database.
	Token string

	Timeouts *TimeoutOptions
}

// Database is a handle on one Data API database, scoped to a keyspace.
// It is a child node of the client in the event hierarchy.
type Database struct {
	client   *Client
	logger   *zap.Logger
	emitter  *EventEmitter
	endpoint string
	keyspace string
	token    string
	timeouts TimeoutDescriptor
}

func (c *Client) Database(endpoint string, opts *DatabaseOptions) *Database {
	if opts == nil {
		opts = &DatabaseOptions{}
	}

	keyspace := opts.Keyspace
	if keyspace == "" {
		keyspace = DefaultKeyspace
	}

	token := opts.Token
	if token == "" {
		token = c.token
	}

	if !strings.Contains(endpoint, "/api/json") {
		endpoint = strings.TrimSuffix(endpoint, "/") + dataAPIPathSuffix
	}

	return &Database{
		client:   c,
		logger:   c.logger,
		emitter:  newEventEmitter(c.emitter, c.logger),
		endpoint: endpoint,
		keyspace: keyspace,
		token:    token,
		timeouts: MergeTimeouts(c.timeouts, opts.Timeouts),
	}
}

func (db *Database) Keyspace() string {
	return db.keyspace
}

func (db *Database) Endpoint() string {
	return db.endpoint
}

func (db *Database) On(name EventName, fn EventListener) func() {
	return db.emitter.On(name, fn)
}

func (db *Database) runner(emitter *EventEmitter, collection, embeddingAPIKey string) commandRunner {
	return commandRunner{
		logger:  db.logger,
		emitter: emitter,
		executor: dacmdx.Executor{
			Logger:          db.logger,
			Transport:       db.client.transport,
			UserAgent:       db.client.userAgent,
			Endpoint:        db.endpoint,
			Token:           db.token,
			EmbeddingAPIKey: embeddingAPIKey,
			Coercion:        db.client.coercion,
		},
		keyspace:   db.keyspace,
		collection: collection,
		monitoring: db.client.monitoring,
	}
}

type CommandOptions struct {
	// Collection targets the command at a collection rather than at the
	// keyspace itself.
	Collection string
	Timeout    *TimeoutOptions
}

// Command issues a raw command object as-is; an escape hatch for operations
// the typed surface does not cover.
func (db *Database) Command(ctx context.Context, command map[string]interface{}, opts *CommandOptions) (*dacmdx.RawResponse, error) {
	if opts == nil {
		opts = &CommandOptions{}
	}

	tm := SingleTimeoutManager(TimeoutCategoryGeneralMethod, db.timeouts, opts.Timeout)
	return db.runner(db.emitter, opts.Collection, "").run(ctx, command, tm)
}

type VectorOptions struct {
	Dimension int    `json:"dimension,omitempty"`
	Metric    string `json:"metric,omitempty"`
}

type IndexingOptions struct {
	Allow []string `json:"allow,omitempty"`
	Deny  []string `json:"deny,omitempty"`
}

type DefaultIDOptions struct {
	Type string `json:"type"`
}

type CreateCollectionOptions struct {
	Vector    *VectorOptions
	Indexing  *IndexingOptions
	DefaultID *DefaultIDOptions
	Timeout   *TimeoutOptions

	// CollectionOptions configures the returned handle.
	CollectionOptions *CollectionOptions
}

func (db *Database) CreateCollection(ctx context.Context, name string, opts *CreateCollectionOptions) (*Collection, error) {
	if opts == nil {
		opts = &CreateCollectionOptions{}
	}

	payload := map[string]interface{}{
		"name": name,
	}

	collOpts := map[string]interface{}{}
	if opts.Vector != nil {
		vector := map[string]interface{}{}
		if opts.Vector.Dimension > 0 {
			vector["dimension"] = opts.Vector.Dimension
		}
		if opts.Vector.Metric != "" {
			vector["metric"] = opts.Vector.Metric
		}
		collOpts["vector"] = vector
	}
	if opts.Indexing != nil {
		indexing := map[string]interface{}{}
		if len(opts.Indexing.Allow) > 0 {
			indexing["allow"] = toAnySlice(opts.Indexing.Allow)
		}
		if len(opts.Indexing.Deny) > 0 {
			indexing["deny"] = toAnySlice(opts.Indexing.Deny)
		}
		collOpts["indexing"] = indexing
	}
	if opts.DefaultID != nil {
		collOpts["defaultId"] = map[string]interface{}{"type": opts.DefaultID.Type}
	}
	if len(collOpts) > 0 {
		payload["options"] = collOpts
	}

	tm := SingleTimeoutManager(TimeoutCategoryCollectionAdmin, db.timeouts, opts.Timeout)
	_, err := db.runner(db.emitter, "", "").run(ctx, map[string]interface{}{
		"createCollection": payload,
	}, tm)
	if err != nil {
		return nil, err
	}

	return db.Collection(name, opts.CollectionOptions), nil
}

type DropCollectionOptions struct {
	Timeout *TimeoutOptions
}

func (db *Database) DropCollection(ctx context.Context, name string, opts *DropCollectionOptions) error {
	if opts == nil {
		opts = &DropCollectionOptions{}
	}

	tm := SingleTimeoutManager(TimeoutCategoryCollectionAdmin, db.timeouts, opts.Timeout)
	_, err := db.runner(db.emitter, "", "").run(ctx, map[string]interface{}{
		"deleteCollection": map[string]interface{}{"name": name},
	}, tm)
	return err
}

type CollectionDescriptor struct {
	Name    string
	Options map[string]interface{}
}

type ListCollectionsOptions struct {
	Timeout *TimeoutOptions
}

func (db *Database) ListCollections(ctx context.Context, opts *ListCollectionsOptions) ([]CollectionDescriptor, error) {
	if opts == nil {
		opts = &ListCollectionsOptions{}
	}

	tm := SingleTimeoutManager(TimeoutCategoryCollectionAdmin, db.timeouts, opts.Timeout)
	resp, err := db.runner(db.emitter, "", "").run(ctx, map[string]interface{}{
		"findCollections": map[string]interface{}{
			"options": map[string]interface{}{"explain": true},
		},
	}, tm)
	if err != nil {
		return nil, err
	}

	rawColls, _ := resp.Status["collections"].([]interface{})
	descriptors := make([]CollectionDescriptor, 0, len(rawColls))
	for _, raw := range rawColls {
		obj, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}

		desc := CollectionDescriptor{}
		desc.Name, _ = obj["name"].(string)
		desc.Options, _ = obj["options"].(map[string]interface{})
		descriptors = append(descriptors, desc)
	}

	return descriptors, nil
}

func (db *Database) ListCollectionNames(ctx context.Context, opts *ListCollectionsOptions) ([]string, error) {
	if opts == nil {
		opts = &ListCollectionsOptions{}
	}

	tm := SingleTimeoutManager(TimeoutCategoryCollectionAdmin, db.timeouts, opts.Timeout)
	resp, err := db.runner(db.emitter, "", "").run(ctx, map[string]interface{}{
		"findCollections": map[string]interface{}{},
	}, tm)
	if err != nil {
		return nil, err
	}

	rawColls, _ := resp.Status["collections"].([]interface{})
	names := make([]string, 0, len(rawColls))
	for _, raw := range rawColls {
		if name, ok := raw.(string); ok {
			names = append(names, name)
		}
	}

	return names, nil
}

func toAnySlice(vals []string) []interface{} {
	out := make([]interface{}, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out
}
