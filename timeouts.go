package astradb

import (
	"time"
)

type TimeoutCategory string

const (
	TimeoutCategoryRequest         TimeoutCategory = "requestTimeoutMs"
	TimeoutCategoryGeneralMethod   TimeoutCategory = "generalMethodTimeoutMs"
	TimeoutCategoryDatabaseAdmin   TimeoutCategory = "databaseAdminTimeoutMs"
	TimeoutCategoryKeyspaceAdmin   TimeoutCategory = "keyspaceAdminTimeoutMs"
	TimeoutCategoryTableAdmin      TimeoutCategory = "tableAdminTimeoutMs"
	TimeoutCategoryCollectionAdmin TimeoutCategory = "collectionAdminTimeoutMs"
)

// TimeoutDescriptor is a fully-populated set of timeout budgets, one per
// category. Merging a partial override onto a base descriptor always yields
// another fully-populated descriptor.
type TimeoutDescriptor struct {
	RequestTimeout         time.Duration
	GeneralMethodTimeout   time.Duration
	DatabaseAdminTimeout   time.Duration
	KeyspaceAdminTimeout   time.Duration
	TableAdminTimeout      time.Duration
	CollectionAdminTimeout time.Duration
}

func DefaultTimeouts() TimeoutDescriptor {
	return TimeoutDescriptor{
		RequestTimeout:         10 * time.Second,
		GeneralMethodTimeout:   30 * time.Second,
		DatabaseAdminTimeout:   600 * time.Second,
		KeyspaceAdminTimeout:   30 * time.Second,
		TableAdminTimeout:      30 * time.Second,
		CollectionAdminTimeout: 60 * time.Second,
	}
}

func (d TimeoutDescriptor) forCategory(category TimeoutCategory) time.Duration {
	switch category {
	case TimeoutCategoryRequest:
		return d.RequestTimeout
	case TimeoutCategoryGeneralMethod:
		return d.GeneralMethodTimeout
	case TimeoutCategoryDatabaseAdmin:
		return d.DatabaseAdminTimeout
	case TimeoutCategoryKeyspaceAdmin:
		return d.KeyspaceAdminTimeout
	case TimeoutCategoryTableAdmin:
		return d.TableAdminTimeout
	case TimeoutCategoryCollectionAdmin:
		return d.CollectionAdminTimeout
	}
	return 0
}

// TimeoutOptions is a caller-supplied partial override. Timeout, when set,
// applies uniformly to every category; the per-category fields win over it.
type TimeoutOptions struct {
	Timeout                *time.Duration
	RequestTimeout         *time.Duration
	GeneralMethodTimeout   *time.Duration
	DatabaseAdminTimeout   *time.Duration
	KeyspaceAdminTimeout   *time.Duration
	TableAdminTimeout      *time.Duration
	CollectionAdminTimeout *time.Duration
}

func MergeTimeouts(base TimeoutDescriptor, override *TimeoutOptions) TimeoutDescriptor {
	if override == nil {
		return base
	}

	merged := base
	if override.Timeout != nil {
		merged = TimeoutDescriptor{
			RequestTimeout:         *override.Timeout,
			GeneralMethodTimeout:   *override.Timeout,
			DatabaseAdminTimeout:   *override.Timeout,
			KeyspaceAdminTimeout:   *override.Timeout,
			TableAdminTimeout:      *override.Timeout,
			CollectionAdminTimeout: *override.Timeout,
		}
	}

	if override.RequestTimeout != nil {
		merged.RequestTimeout = *override.RequestTimeout
	}
	if override.GeneralMethodTimeout != nil {
		merged.GeneralMethodTimeout = *override.GeneralMethodTimeout
	}
	if override.DatabaseAdminTimeout != nil {
		merged.DatabaseAdminTimeout = *override.DatabaseAdminTimeout
	}
	if override.KeyspaceAdminTimeout != nil {
		merged.KeyspaceAdminTimeout = *override.KeyspaceAdminTimeout
	}
	if override.TableAdminTimeout != nil {
		merged.TableAdminTimeout = *override.TableAdminTimeout
	}
	if override.CollectionAdminTimeout != nil {
		merged.CollectionAdminTimeout = *override.CollectionAdminTimeout
	}

	return merged
}

// TimeoutManager owns the resolved timeout budget of one logical operation.
// Advance returns the time allowed for the next HTTP attempt together with a
// factory producing the timeout error naming the responsible categories.
// Advance holds no mutable state; it is a pure function of elapsed wall-clock
// time, which makes concurrent calls from parallel chunk workers safe.
type TimeoutManager struct {
	timeouts TimeoutDescriptor
	started  time.Time
	now      func() time.Time
	advance  func(tm *TimeoutManager) (time.Duration, func() error)
}

// SingleTimeoutManager budgets an operation that issues exactly one HTTP
// request. The attempt gets min(requestTimeout, primary category); elapsed
// time does not matter as there is only one attempt.
func SingleTimeoutManager(category TimeoutCategory, base TimeoutDescriptor, override *TimeoutOptions) *TimeoutManager {
	return &TimeoutManager{
		timeouts: MergeTimeouts(base, override),
		started:  time.Now(),
		now:      time.Now,
		advance: func(tm *TimeoutManager) (time.Duration, func() error) {
			reqBudget := tm.timeouts.RequestTimeout
			priBudget := tm.timeouts.forCategory(category)

			switch {
			case priBudget == reqBudget:
				return reqBudget, timeoutErrorFactory(reqBudget, TimeoutCategoryRequest, category)
			case priBudget > 0 && priBudget < reqBudget:
				return priBudget, timeoutErrorFactory(priBudget, category)
			default:
				return reqBudget, timeoutErrorFactory(reqBudget, TimeoutCategoryRequest)
			}
		},
	}
}

// MultipartTimeoutManager budgets a sequence of HTTP requests sharing one
// logical operation deadline. Each Advance yields min(requestTimeout, time
// remaining until the primary budget elapses); once the primary budget is
// spent, every subsequent Advance yields a non-positive duration and the
// caller must fail fast without attempting the call.
func MultipartTimeoutManager(category TimeoutCategory, base TimeoutDescriptor, override *TimeoutOptions) *TimeoutManager {
	return &TimeoutManager{
		timeouts: MergeTimeouts(base, override),
		started:  time.Now(),
		now:      time.Now,
		advance: func(tm *TimeoutManager) (time.Duration, func() error) {
			reqBudget := tm.timeouts.RequestTimeout
			priBudget := tm.timeouts.forCategory(category)

			remaining := priBudget - tm.now().Sub(tm.started)
			if remaining <= reqBudget {
				return remaining, timeoutErrorFactory(priBudget, category)
			}

			return reqBudget, timeoutErrorFactory(reqBudget, TimeoutCategoryRequest)
		},
	}
}

// CustomTimeoutManager accepts a pre-resolved descriptor and a bespoke
// advance implementation, for contexts with their own deadline logic.
func CustomTimeoutManager(timeouts TimeoutDescriptor, advance func() (time.Duration, func() error)) *TimeoutManager {
	return &TimeoutManager{
		timeouts: timeouts,
		started:  time.Now(),
		now:      time.Now,
		advance: func(tm *TimeoutManager) (time.Duration, func() error) {
			return advance()
		},
	}
}

func (tm *TimeoutManager) Advance() (time.Duration, func() error) {
	return tm.advance(tm)
}

func (tm *TimeoutManager) Timeouts() TimeoutDescriptor {
	return tm.timeouts
}

func (tm *TimeoutManager) Started() time.Time {
	return tm.started
}

func timeoutErrorFactory(budget time.Duration, categories ...TimeoutCategory) func() error {
	return func() error {
		return TimeoutError{
			Categories: categories,
			Budget:     budget,
		}
	}
}
