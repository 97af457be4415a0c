package daejsonx

import (
	"errors"
	"fmt"
	"strings"
)

type Coercion string

const (
	CoercionUnset  Coercion = ""
	CoerceNumber   Coercion = "number"
	CoerceString   Coercion = "string"
	CoerceReject   Coercion = "reject"
	WildcardSegment         = "*"
)

// CoercionPolicy maps dotted document paths to the encoding used for
// arbitrary-precision integers found at that path. A path segment may be
// the "*" wildcard; the single entry "*" acts as the global default.
// When several entries match a path, the one with the most leading exact
// segments wins.
type CoercionPolicy map[string]Coercion

func (p CoercionPolicy) Resolve(path []string) Coercion {
	if p == nil {
		return CoercionUnset
	}

	if c, ok := p[strings.Join(path, ".")]; ok {
		return c
	}

	bestScore := -1
	best := CoercionUnset
	for pattern, c := range p {
		segs := strings.Split(pattern, ".")
		if len(segs) == 1 && segs[0] == WildcardSegment {
			if bestScore < 0 {
				bestScore = 0
				best = c
			}
			continue
		}

		if len(segs) != len(path) {
			continue
		}

		score := 1
		matched := true
		for i, seg := range segs {
			if seg == WildcardSegment {
				continue
			}
			if seg != path[i] {
				matched = false
				break
			}
			score++
		}
		if !matched {
			continue
		}

		if score > bestScore {
			bestScore = score
			best = c
		}
	}

	return best
}

var ErrBigNumberRejected = errors.New("big number rejected by coercion policy")

type BigNumberCoercionError struct {
	Path  string
	Value string
}

func (e BigNumberCoercionError) Error() string {
	return fmt.Sprintf("%s: value %s at path %s", ErrBigNumberRejected, e.Value, e.Path)
}

func (e BigNumberCoercionError) Unwrap() error {
	return ErrBigNumberRejected
}
