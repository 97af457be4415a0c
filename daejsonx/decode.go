package daejsonx

import (
	"bytes"
	"encoding/json"
	"math/big"
	"time"

	"github.com/google/uuid"
)

// Decode parses wire JSON and revives the extended type set: {"$date": ms}
// becomes a time.Time, {"$uuid": "..."} a uuid.UUID and {"$objectId": "..."}
// an ObjectID. Integral numbers decode losslessly, falling back to *big.Int
// when they exceed the int64 range.
func Decode(data []byte) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}

	return reviveValue(raw)
}

func DecodeObject(data []byte) (map[string]interface{}, error) {
	v, err := Decode(data)
	if err != nil {
		return nil, err
	}

	obj, _ := v.(map[string]interface{})
	return obj, nil
}

func reviveValue(v interface{}) (interface{}, error) {
	switch tv := v.(type) {
	case map[string]interface{}:
		if len(tv) == 1 {
			if revived, ok, err := reviveWrapper(tv); ok || err != nil {
				return revived, err
			}
		}

		for k, child := range tv {
			revived, err := reviveValue(child)
			if err != nil {
				return nil, err
			}
			tv[k] = revived
		}
		return tv, nil
	case []interface{}:
		for i, child := range tv {
			revived, err := reviveValue(child)
			if err != nil {
				return nil, err
			}
			tv[i] = revived
		}
		return tv, nil
	case json.Number:
		return reviveNumber(tv), nil
	default:
		return v, nil
	}
}

func reviveWrapper(obj map[string]interface{}) (interface{}, bool, error) {
	if dateVal, ok := obj["$date"]; ok {
		num, isNum := dateVal.(json.Number)
		if !isNum {
			return nil, false, nil
		}
		ms, err := num.Int64()
		if err != nil {
			return nil, false, err
		}
		return time.UnixMilli(ms).UTC(), true, nil
	}

	if uuidVal, ok := obj["$uuid"]; ok {
		str, isStr := uuidVal.(string)
		if !isStr {
			return nil, false, nil
		}
		parsed, err := uuid.Parse(str)
		if err != nil {
			return nil, false, err
		}
		return parsed, true, nil
	}

	if oidVal, ok := obj["$objectId"]; ok {
		str, isStr := oidVal.(string)
		if !isStr {
			return nil, false, nil
		}
		return ObjectID(str), true, nil
	}

	return nil, false, nil
}

func reviveNumber(num json.Number) interface{} {
	if !bytes.ContainsAny([]byte(num.String()), ".eE") {
		if i, err := num.Int64(); err == nil {
			return i
		}
		if bi, ok := new(big.Int).SetString(num.String(), 10); ok {
			return bi
		}
	}

	f, err := num.Float64()
	if err != nil {
		return num.String()
	}
	return f
}
