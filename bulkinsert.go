package astradb

import (
	"context"
	"sync"

	"github.com/datastax/astra-db-go/dacmdx"
	"go.uber.org/atomic"
)

const (
	defaultInsertManyChunkSize   = 50
	defaultInsertManyConcurrency = 8
)

type InsertManyOptions struct {
	// Ordered inserts the chunks strictly sequentially and stops on the
	// first failure. Unordered (the default) runs chunks on a bounded
	// worker pool and reports every failure at once.
	Ordered bool

	ChunkSize   int
	Concurrency int
	Timeout     *TimeoutOptions
}

// InsertMany splits the documents into chunks and inserts them under one
// shared operation deadline. On any failure an InsertManyError is returned
// carrying every id that was durably inserted plus every error descriptor
// collected.
func (c *Collection) InsertMany(ctx context.Context, documents []Document, opts *InsertManyOptions) (*InsertManyResult, error) {
	if opts == nil {
		opts = &InsertManyOptions{}
	}

	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = defaultInsertManyChunkSize
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = defaultInsertManyConcurrency
	}

	var chunks [][]Document
	for i := 0; i < len(documents); i += chunkSize {
		end := i + chunkSize
		if end > len(documents) {
			end = len(documents)
		}
		chunks = append(chunks, documents[i:end])
	}

	tm := MultipartTimeoutManager(TimeoutCategoryGeneralMethod, c.timeouts, opts.Timeout)

	if opts.Ordered {
		return c.insertManyOrdered(ctx, chunks, tm)
	}
	return c.insertManyUnordered(ctx, chunks, concurrency, tm)
}

func (c *Collection) insertManyOrdered(ctx context.Context, chunks [][]Document, tm *TimeoutManager) (*InsertManyResult, error) {
	var insertedIDs []interface{}

	for _, chunk := range chunks {
		ids, desc, err := c.insertChunk(ctx, chunk, true, tm)
		insertedIDs = append(insertedIDs, ids...)

		if err != nil {
			return nil, InsertManyError{
				Cause: err,
				PartialResult: InsertManyResult{
					InsertedCount: len(insertedIDs),
					InsertedIDs:   insertedIDs,
				},
				ErrorDescriptors: []dacmdx.DetailedErrorDescriptor{desc},
			}
		}
	}

	return &InsertManyResult{
		InsertedCount: len(insertedIDs),
		InsertedIDs:   insertedIDs,
	}, nil
}

func (c *Collection) insertManyUnordered(ctx context.Context, chunks [][]Document, concurrency int, tm *TimeoutManager) (*InsertManyResult, error) {
	if concurrency > len(chunks) {
		concurrency = len(chunks)
	}
	if concurrency < 1 {
		concurrency = 1
	}

	chunkCh := make(chan []Document)
	insertedCount := atomic.NewInt64(0)

	var mu sync.Mutex
	var insertedIDs []interface{}
	var descriptors []dacmdx.DetailedErrorDescriptor
	var firstErr error

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for chunk := range chunkCh {
				ids, desc, err := c.insertChunk(ctx, chunk, false, tm)
				insertedCount.Add(int64(len(ids)))

				mu.Lock()
				insertedIDs = append(insertedIDs, ids...)
				if err != nil {
					descriptors = append(descriptors, desc)
					if firstErr == nil {
						firstErr = err
					}
				}
				mu.Unlock()
			}
		}()
	}

	for _, chunk := range chunks {
		chunkCh <- chunk
	}
	close(chunkCh)
	wg.Wait()

	if firstErr != nil {
		return nil, InsertManyError{
			Cause: firstErr,
			PartialResult: InsertManyResult{
				InsertedCount: int(insertedCount.Load()),
				InsertedIDs:   insertedIDs,
			},
			ErrorDescriptors: descriptors,
		}
	}

	return &InsertManyResult{
		InsertedCount: int(insertedCount.Load()),
		InsertedIDs:   insertedIDs,
	}, nil
}

// insertChunk runs one insertMany command. On failure it still reports any
// ids the server managed to insert before erroring; the exact boundary is
// best-effort, read off the response rather than assumed.
func (c *Collection) insertChunk(ctx context.Context, chunk []Document, ordered bool, tm *TimeoutManager) ([]interface{}, dacmdx.DetailedErrorDescriptor, error) {
	docs := make([]interface{}, len(chunk))
	for i, doc := range chunk {
		docs[i] = doc
	}

	command := map[string]interface{}{
		"insertMany": map[string]interface{}{
			"documents": docs,
			"options": map[string]interface{}{
				"ordered": ordered,
			},
		},
	}

	resp, err := c.runner.run(ctx, command, tm)
	if err != nil {
		descs := describeFailure(err, command)
		desc := descs[0]

		var partialIDs []interface{}
		if desc.RawResponse != nil {
			partialIDs = idsFromStatus(desc.RawResponse.Status)
		}

		return partialIDs, desc, err
	}

	return idsFromStatus(resp.Status), dacmdx.DetailedErrorDescriptor{}, nil
}
