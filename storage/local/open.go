package local

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/jamii/core"
	inmemstore "github.com/trezcool/jamii/storage/local/inmem"
	"github.com/trezcool/jamii/storage/local/redisstore"
	"github.com/trezcool/jamii/storage/local/sqlstore"
)

// Open returns the durable storage backend named by conf.Driver.
func Open(ctx context.Context, conf core.StorageConfig) (core.Storage, error) {
	switch conf.Driver {
	case "memory", "":
		return inmemstore.New(), nil
	case sqlstore.DriverSQLite, sqlstore.DriverPostgres:
		return sqlstore.Open(ctx, conf.Driver, conf.DSN)
	case "redis":
		return redisstore.Open(ctx, conf.RedisAddr, conf.RedisPassword, "")
	default:
		return nil, errors.Errorf("unknown storage driver %q", conf.Driver)
	}
}
