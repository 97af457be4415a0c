package astradb

import (
	"context"

	"go.uber.org/zap"
)

type CursorState string

const (
	CursorUninitialized CursorState = "uninitialized"
	CursorStarted       CursorState = "started"
	CursorClosed        CursorState = "closed"
)

type FindOptions struct {
	Sort              Sort
	Projection        Projection
	Limit             int
	Skip              int
	BatchSize         int
	IncludeSimilarity bool
	Timeout           *TimeoutOptions
}

// FindCursor is a lazy, paginated sequence of query results. Nothing is
// fetched until the first read; from then on pages are pulled on demand
// into an internal buffer and handed out one document at a time.
//
// A cursor is not safe for concurrent consumption; use Clone to obtain an
// independent copy.
type FindCursor[T any] struct {
	runner          commandRunner
	logger          *zap.Logger
	timeouts        TimeoutDescriptor
	timeoutOverride *TimeoutOptions

	filter            Filter
	sort              Sort
	projection        Projection
	limit             int
	skip              int
	batchSize         int
	includeSimilarity bool
	mapping           func(Document) (T, error)

	state     CursorState
	buffer    []Document
	pageState string
	exhausted bool
	consumed  int
	tm        *TimeoutManager
	confErr   error
}

// Find returns a cursor over every document matching the filter. The query
// is not issued until the cursor is first read from.
func (c *Collection) Find(filter Filter, opts *FindOptions) *FindCursor[Document] {
	if opts == nil {
		opts = &FindOptions{}
	}

	return &FindCursor[Document]{
		runner:            c.runner,
		logger:            c.logger,
		timeouts:          c.timeouts,
		timeoutOverride:   opts.Timeout,
		filter:            orEmptyFilter(filter),
		sort:              opts.Sort,
		projection:        opts.Projection,
		limit:             opts.Limit,
		skip:              opts.Skip,
		batchSize:         opts.BatchSize,
		includeSimilarity: opts.IncludeSimilarity,
		mapping: func(doc Document) (Document, error) {
			return doc, nil
		},
		state: CursorUninitialized,
	}
}

func (c *FindCursor[T]) State() CursorState {
	return c.state
}

// Buffered reports how many documents are held in the buffer and readable
// without a network call.
func (c *FindCursor[T]) Buffered() int {
	return len(c.buffer)
}

// Consumed reports how many documents the cursor has pulled off the server
// so far.
func (c *FindCursor[T]) Consumed() int {
	return c.consumed
}

func (c *FindCursor[T]) configure(op string, apply func()) *FindCursor[T] {
	if c.state != CursorUninitialized {
		c.confErr = CursorStateError{Operation: op, State: c.state}
		return c
	}

	apply()
	return c
}

// Filter replaces the cursor's filter. Like every configuration method it
// is only legal before the cursor has started; a later call poisons the
// cursor with a state error surfaced on the next read.
func (c *FindCursor[T]) Filter(filter Filter) *FindCursor[T] {
	return c.configure("Filter", func() { c.filter = orEmptyFilter(filter) })
}

func (c *FindCursor[T]) Sort(sort Sort) *FindCursor[T] {
	return c.configure("Sort", func() { c.sort = sort })
}

func (c *FindCursor[T]) Project(projection Projection) *FindCursor[T] {
	return c.configure("Project", func() { c.projection = projection })
}

func (c *FindCursor[T]) Limit(limit int) *FindCursor[T] {
	return c.configure("Limit", func() { c.limit = limit })
}

func (c *FindCursor[T]) Skip(skip int) *FindCursor[T] {
	return c.configure("Skip", func() { c.skip = skip })
}

func (c *FindCursor[T]) BatchSize(batchSize int) *FindCursor[T] {
	return c.configure("BatchSize", func() { c.batchSize = batchSize })
}

func (c *FindCursor[T]) IncludeSimilarity(include bool) *FindCursor[T] {
	return c.configure("IncludeSimilarity", func() { c.includeSimilarity = include })
}

// MapCursor derives a cursor whose documents are passed through fn after
// any mapping already configured on c. Only legal before c has started.
func MapCursor[T any, U any](c *FindCursor[T], fn func(T) (U, error)) *FindCursor[U] {
	prev := c.mapping
	mapped := &FindCursor[U]{
		runner:            c.runner,
		logger:            c.logger,
		timeouts:          c.timeouts,
		timeoutOverride:   c.timeoutOverride,
		filter:            c.filter,
		sort:              c.sort,
		projection:        c.projection,
		limit:             c.limit,
		skip:              c.skip,
		batchSize:         c.batchSize,
		includeSimilarity: c.includeSimilarity,
		mapping: func(doc Document) (U, error) {
			mid, err := prev(doc)
			if err != nil {
				var zero U
				return zero, err
			}
			return fn(mid)
		},
		state:   CursorUninitialized,
		confErr: c.confErr,
	}

	if c.state != CursorUninitialized {
		mapped.confErr = CursorStateError{Operation: "MapCursor", State: c.state}
	}

	return mapped
}

// Clone returns a fresh uninitialized cursor with the same configuration.
// The mapping function is deliberately not carried over; the clone yields
// raw documents.
func (c *FindCursor[T]) Clone() *FindCursor[Document] {
	return &FindCursor[Document]{
		runner:            c.runner,
		logger:            c.logger,
		timeouts:          c.timeouts,
		timeoutOverride:   c.timeoutOverride,
		filter:            c.filter,
		sort:              c.sort,
		projection:        c.projection,
		limit:             c.limit,
		skip:              c.skip,
		batchSize:         c.batchSize,
		includeSimilarity: c.includeSimilarity,
		mapping: func(doc Document) (Document, error) {
			return doc, nil
		},
		state: CursorUninitialized,
	}
}

// Rewind resets the cursor to uninitialized, clearing the buffer and the
// pagination token but preserving all configuration, the mapping included.
func (c *FindCursor[T]) Rewind() {
	c.state = CursorUninitialized
	c.buffer = nil
	c.pageState = ""
	c.exhausted = false
	c.consumed = 0
	c.tm = nil
}

// Close permanently ends iteration; only Rewind makes the cursor readable
// again.
func (c *FindCursor[T]) Close() {
	c.state = CursorClosed
	c.buffer = nil
}

// Next returns the next document, blocking through empty pages until the
// server signals exhaustion. ok is false once the cursor is exhausted or
// closed. A mapping or transport failure closes the cursor.
func (c *FindCursor[T]) Next(ctx context.Context) (T, bool, error) {
	return c.next(ctx, true)
}

// TryNext is Next, except an empty page returns immediately with ok false
// instead of fetching further pages.
func (c *FindCursor[T]) TryNext(ctx context.Context) (T, bool, error) {
	return c.next(ctx, false)
}

func (c *FindCursor[T]) next(ctx context.Context, blocking bool) (T, bool, error) {
	var zero T

	doc, ok, err := c.nextDocument(ctx, false, blocking)
	if err != nil || !ok {
		return zero, false, err
	}

	mapped, err := c.mapping(doc)
	if err != nil {
		c.Close()
		return zero, false, err
	}

	return mapped, true, nil
}

// HasNext reports whether another document can be read. It may fetch a page
// but never consumes a document.
func (c *FindCursor[T]) HasNext(ctx context.Context) (bool, error) {
	_, ok, err := c.nextDocument(ctx, true, true)
	return ok, err
}

// nextDocument is the core read primitive. With peek set the front document
// is returned but kept in the buffer and the mapping is not applied.
func (c *FindCursor[T]) nextDocument(ctx context.Context, peek bool, blocking bool) (Document, bool, error) {
	if c.confErr != nil {
		return nil, false, c.confErr
	}

	if c.state == CursorClosed {
		return nil, false, nil
	}
	c.state = CursorStarted

	for {
		if len(c.buffer) > 0 {
			doc := c.buffer[0]
			if !peek {
				c.buffer = c.buffer[1:]
			}
			return doc, true, nil
		}

		if c.exhausted {
			return nil, false, nil
		}

		if err := c.fetchNextPage(ctx); err != nil {
			c.Close()
			return nil, false, err
		}

		if len(c.buffer) == 0 && !blocking {
			return nil, false, nil
		}
	}
}

func (c *FindCursor[T]) fetchNextPage(ctx context.Context) error {
	if c.tm == nil {
		c.tm = MultipartTimeoutManager(TimeoutCategoryGeneralMethod, c.timeouts, c.timeoutOverride)
	}

	options := map[string]interface{}{}

	if c.limit > 0 {
		remaining := c.limit - c.consumed
		if remaining <= 0 {
			// The user limit is satisfied; exhaust locally without a call.
			c.exhausted = true
			return nil
		}

		effectiveLimit := remaining
		if c.batchSize > 0 && c.batchSize < effectiveLimit {
			effectiveLimit = c.batchSize
		}
		options["limit"] = effectiveLimit
	} else if c.batchSize > 0 {
		options["limit"] = c.batchSize
	}

	if c.skip > 0 && c.consumed == 0 && c.pageState == "" {
		options["skip"] = c.skip
	}
	if c.pageState != "" {
		options["pagingState"] = c.pageState
	}
	if c.includeSimilarity {
		options["includeSimilarity"] = true
	}

	payload := map[string]interface{}{
		"filter": c.filter,
	}
	if c.sort != nil {
		payload["sort"] = c.sort
	}
	if c.projection != nil {
		payload["projection"] = c.projection
	}
	if len(options) > 0 {
		payload["options"] = options
	}

	resp, err := c.runner.run(ctx, map[string]interface{}{"find": payload}, c.tm)
	if err != nil {
		return err
	}

	rawDocs, _ := resp.Data["documents"].([]interface{})
	buffer := make([]Document, 0, len(rawDocs))
	for _, raw := range rawDocs {
		if doc, ok := raw.(map[string]interface{}); ok {
			buffer = append(buffer, doc)
		}
	}

	c.buffer = buffer
	c.consumed += len(buffer)

	if next, ok := resp.Data["nextPageState"].(string); ok && next != "" {
		c.pageState = next
	} else {
		c.pageState = ""
		c.exhausted = true
	}

	return nil
}

// ReadBufferedDocuments synchronously drains up to max buffered documents
// (all of them when max <= 0). It never triggers a network call and never
// applies the mapping; the documents come back raw.
func (c *FindCursor[T]) ReadBufferedDocuments(max int) []Document {
	n := len(c.buffer)
	if max > 0 && max < n {
		n = max
	}

	out := make([]Document, n)
	copy(out, c.buffer[:n])
	c.buffer = c.buffer[n:]
	return out
}

// ToArray materializes every remaining document. The cursor is closed when
// it returns, success or not.
func (c *FindCursor[T]) ToArray(ctx context.Context) ([]T, error) {
	defer c.Close()

	docs := []T{}
	for {
		doc, ok, err := c.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return docs, nil
		}
		docs = append(docs, doc)
	}
}

// ForEach invokes fn for each remaining document until it returns false or
// an error. The cursor is closed when ForEach returns, early exit included.
func (c *FindCursor[T]) ForEach(ctx context.Context, fn func(T) (bool, error)) error {
	defer c.Close()

	for {
		doc, ok, err := c.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		keepGoing, err := fn(doc)
		if err != nil {
			return err
		}
		if !keepGoing {
			return nil
		}
	}
}
