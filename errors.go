package astradb

import (
	"errors"
	"fmt"
	"time"

	"github.com/datastax/astra-db-go/dacmdx"
)

var (
	ErrTimedOut         = errors.New("command timed out")
	ErrTooManyDocuments = errors.New("too many documents to count")
	ErrCursorState      = errors.New("illegal cursor state")
)

// TimeoutError names the category (or pair of categories) whose budget was
// responsible for the deadline that fired.
type TimeoutError struct {
	Categories []TimeoutCategory
	Budget     time.Duration
}

func (e TimeoutError) Error() string {
	if len(e.Categories) == 2 {
		return fmt.Sprintf("Command timed out after %dms (%s and %s simultaneously timed out)",
			e.Budget.Milliseconds(), e.Categories[0], e.Categories[1])
	}

	category := TimeoutCategoryRequest
	if len(e.Categories) > 0 {
		category = e.Categories[0]
	}
	return fmt.Sprintf("Command timed out after %dms (%s timed out)",
		e.Budget.Milliseconds(), category)
}

func (e TimeoutError) Unwrap() error {
	return ErrTimedOut
}

type CursorStateError struct {
	Operation string
	State     CursorState
}

func (e CursorStateError) Error() string {
	return fmt.Sprintf("cannot call %s on a cursor in state %q", e.Operation, e.State)
}

func (e CursorStateError) Unwrap() error {
	return ErrCursorState
}

type TooManyDocumentsError struct {
	UpperBound int
}

func (e TooManyDocumentsError) Error() string {
	return fmt.Sprintf("too many documents to count (more than %d)", e.UpperBound)
}

func (e TooManyDocumentsError) Unwrap() error {
	return ErrTooManyDocuments
}

// InsertManyResult reports what an InsertMany call durably accomplished.
type InsertManyResult struct {
	InsertedCount int
	InsertedIDs   []interface{}
}

// InsertManyError carries the partial result accumulated before the failure
// plus every detailed error descriptor collected across the chunk requests.
type InsertManyError struct {
	Cause            error
	PartialResult    InsertManyResult
	ErrorDescriptors []dacmdx.DetailedErrorDescriptor
}

func (e InsertManyError) Error() string {
	return fmt.Sprintf("insertMany partially failed (%d inserted): %s",
		e.PartialResult.InsertedCount, e.Cause)
}

func (e InsertManyError) Unwrap() error {
	return e.Cause
}

type UpdateManyResult struct {
	MatchedCount  int64
	ModifiedCount int64
	UpsertedID    interface{}
}

type UpdateManyError struct {
	Cause            error
	PartialResult    UpdateManyResult
	ErrorDescriptors []dacmdx.DetailedErrorDescriptor
}

func (e UpdateManyError) Error() string {
	return fmt.Sprintf("updateMany partially failed (%d modified): %s",
		e.PartialResult.ModifiedCount, e.Cause)
}

func (e UpdateManyError) Unwrap() error {
	return e.Cause
}

type DeleteManyResult struct {
	DeletedCount int64
}

type DeleteManyError struct {
	Cause            error
	PartialResult    DeleteManyResult
	ErrorDescriptors []dacmdx.DetailedErrorDescriptor
}

func (e DeleteManyError) Error() string {
	return fmt.Sprintf("deleteMany partially failed (%d deleted): %s",
		e.PartialResult.DeletedCount, e.Cause)
}

func (e DeleteManyError) Unwrap() error {
	return e.Cause
}
