package zaputils

import (
	"fmt"

	"go.uber.org/zap"
)

func KeyspaceName(key string, val string) zap.Field {
	return zap.String(key, val)
}

func CollectionName(key string, val string) zap.Field {
	return zap.String(key, val)
}

func CommandName(key string, val string) zap.Field {
	return zap.String(key, val)
}

func DatabaseID(key string, val string) zap.Field {
	return zap.String(key, val)
}

type LoggableFqCollectionName struct {
	Endpoint       string
	KeyspaceName   string
	CollectionName string
}

func (e LoggableFqCollectionName) String() string {
	if e.CollectionName == "" {
		return fmt.Sprintf("%s/%s", e.Endpoint, e.KeyspaceName)
	}

	return fmt.Sprintf("%s/%s/%s", e.Endpoint, e.KeyspaceName, e.CollectionName)
}

func FQCollectionName(key string, endpoint, keyspace, collection string) zap.Field {
	return zap.Stringer(key, LoggableFqCollectionName{
		Endpoint:       endpoint,
		KeyspaceName:   keyspace,
		CollectionName: collection,
	})
}
