// Package testutil holds the fixtures shared by package tests: an in-memory
// SQLite tree, a miniredis-backed cache and a fully wired AppContext.
package testutil

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/martinotbusiness97-crypto/martiloveconect/internal/cache"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/config"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/db"
	applog "github.com/martinotbusiness97-crypto/martiloveconect/internal/logger"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/tree"
)

var dbSeq atomic.Int64

// OpenDB opens an isolated in-memory SQLite database with the schema migrated.
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, dbSeq.Add(1))
	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		NowFunc:                func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := database.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(database))
	return database
}

// NewStore returns a SQL-backed tree with in-process change notification.
func NewStore(t *testing.T) *tree.SQLStore {
	t.Helper()
	log := applog.Discard()
	return tree.NewSQLStore(OpenDB(t), tree.NewLocalNotifier(log), log)
}

// NewRedis starts a miniredis server and a cache client bound to it.
func NewRedis(t *testing.T) (*miniredis.Miniredis, *cache.RedisCache) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(func() { mr.Close() })

	cfg := &config.Config{}
	cfg.Redis.Addr = mr.Addr()
	rc := cache.NewRedisCache(cfg)
	t.Cleanup(func() { _ = rc.Client.Close() })
	return mr, rc
}
