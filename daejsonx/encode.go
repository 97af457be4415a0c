package daejsonx

import (
	"encoding/json"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Encoder turns a domain value tree into the wire's JSON form. Dates become
// {"$date": epoch-ms}, UUIDs {"$uuid": "..."}, object ids {"$objectId": "..."}.
// Arbitrary-precision integers are encoded per the coercion policy; with no
// policy entry they encode as plain JSON numbers.
type Encoder struct {
	Coercion CoercionPolicy
}

func (e Encoder) Encode(v interface{}) ([]byte, error) {
	norm, err := e.encodeValue(v, nil)
	if err != nil {
		return nil, err
	}

	return json.Marshal(norm)
}

func (e Encoder) encodeValue(v interface{}, path []string) (interface{}, error) {
	switch tv := v.(type) {
	case time.Time:
		return map[string]interface{}{"$date": tv.UnixMilli()}, nil
	case *time.Time:
		if tv == nil {
			return nil, nil
		}
		return map[string]interface{}{"$date": tv.UnixMilli()}, nil
	case uuid.UUID:
		return map[string]interface{}{"$uuid": tv.String()}, nil
	case ObjectID:
		return map[string]interface{}{"$objectId": string(tv)}, nil
	case *big.Int:
		if tv == nil {
			return nil, nil
		}
		return e.encodeBigInt(tv, path)
	case big.Int:
		return e.encodeBigInt(&tv, path)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(tv))
		for k, child := range tv {
			enc, err := e.encodeValue(child, append(path, k))
			if err != nil {
				return nil, err
			}
			out[k] = enc
		}
		return out, nil
	case []interface{}:
		out := make([]interface{}, len(tv))
		for i, child := range tv {
			enc, err := e.encodeValue(child, path)
			if err != nil {
				return nil, err
			}
			out[i] = enc
		}
		return out, nil
	default:
		return v, nil
	}
}

func (e Encoder) encodeBigInt(v *big.Int, path []string) (interface{}, error) {
	switch e.Coercion.Resolve(path) {
	case CoerceString:
		return v.String(), nil
	case CoerceReject:
		return nil, BigNumberCoercionError{
			Path:  strings.Join(path, "."),
			Value: v.String(),
		}
	default:
		return json.Number(v.String()), nil
	}
}
