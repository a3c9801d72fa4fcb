// Package dbstore keeps the history catalog in a SQLite database through
// GORM. It is the alternative to the YAML file index for large histories.
package dbstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/yiblet/clipd/internal/clip"
	"github.com/yiblet/clipd/internal/logger"
	"github.com/yiblet/clipd/internal/remfs"
	"github.com/yiblet/clipd/internal/store"
)

const batchSize = 200

// SQLiteIndex is a SQLite-backed implementation of store.Index
type SQLiteIndex struct {
	db     *gorm.DB
	dbPath string
	log    logger.Logger
}

var _ store.Index = (*SQLiteIndex)(nil)

// New opens the index at the default location below rfs.
func New(rfs *remfs.RemFS, log logger.Logger) (*SQLiteIndex, error) {
	return NewSQLiteIndex(rfs.Path(remfs.IndexSQLite), log)
}

// NewSQLiteIndex opens or creates the database at dbPath. A file that is not
// a usable database is renamed to <name>.backup_<yyyymmddhhmmss> and a fresh
// database takes its place.
func NewSQLiteIndex(dbPath string, log logger.Logger) (*SQLiteIndex, error) {
	if log == nil {
		log = logger.NewNop()
	}

	db, err := open(dbPath)
	if err != nil {
		if _, statErr := os.Stat(dbPath); errors.Is(statErr, fs.ErrNotExist) {
			return nil, err
		}

		backup := dbPath + ".backup_" + time.Now().Format("20060102150405")
		if rerr := os.Rename(dbPath, backup); rerr != nil {
			return nil, fmt.Errorf("index database is unusable (%v) and could not be moved aside: %w", err, rerr)
		}
		log.Warn("index database is corrupt, starting empty",
			logger.String("path", dbPath),
			logger.String("backup", backup),
			logger.Error(err))

		db, err = open(dbPath)
		if err != nil {
			return nil, err
		}
	}

	idx := &SQLiteIndex{
		db:     db,
		dbPath: dbPath,
		log:    log,
	}

	if err := idx.initMeta(); err != nil {
		idx.Close()
		return nil, fmt.Errorf("failed to init meta: %w", err)
	}

	return idx, nil
}

func open(dbPath string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	fail := func(err error) (*gorm.DB, error) {
		if sqlDB, derr := db.DB(); derr == nil {
			sqlDB.Close()
		}
		return nil, err
	}

	// A single connection serializes writers instead of surfacing SQLITE_BUSY.
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}

	var check string
	if err := db.Raw("PRAGMA quick_check").Scan(&check).Error; err != nil {
		return fail(fmt.Errorf("failed to check database: %w", err))
	}
	if check != "ok" {
		return fail(fmt.Errorf("database integrity check failed: %s", check))
	}

	if err := db.AutoMigrate(&RecordModel{}, &MetaModel{}); err != nil {
		return fail(fmt.Errorf("failed to migrate schema: %w", err))
	}
	return db, nil
}

// initMeta records the schema version on first open.
func (x *SQLiteIndex) initMeta() error {
	meta := MetaModel{Key: "db_version", Value: SchemaVersion}
	return x.db.Where("key = ?", meta.Key).FirstOrCreate(&meta).Error
}

// Path returns the database file location.
func (x *SQLiteIndex) Path() string {
	return x.dbPath
}

// Load returns every stored record, newest first.
func (x *SQLiteIndex) Load(ctx context.Context) ([]clip.Record, error) {
	var models []RecordModel
	if err := x.db.WithContext(ctx).Order("position ASC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to load records: %w", err)
	}

	records := make([]clip.Record, 0, len(models))
	for i := range models {
		r, err := models[i].ToRecord()
		if err != nil {
			x.log.Debug("dropping malformed record",
				logger.Int64("id", models[i].ID),
				logger.Error(err))
			continue
		}
		records = append(records, r)
	}

	records = store.Filter(records)
	store.SortNewestFirst(records)
	return records, nil
}

// Save replaces all rows in a single transaction.
func (x *SQLiteIndex) Save(ctx context.Context, records []clip.Record) error {
	models := make([]RecordModel, 0, len(records))
	for i, r := range records {
		models = append(models, fromRecord(r, i))
	}

	err := x.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).
			Delete(&RecordModel{}).Error; err != nil {
			return err
		}
		if len(models) == 0 {
			return nil
		}
		return tx.CreateInBatches(models, batchSize).Error
	})
	if err != nil {
		return fmt.Errorf("failed to save records: %w", err)
	}
	return nil
}

// Close closes the database connection
func (x *SQLiteIndex) Close() error {
	sqlDB, err := x.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
