// Package gormstorage persists override tables in a relational database
// through GORM. It serves both the sqlite and postgres storage types.
package gormstorage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RoadSpeedAdjuster/extension/internal/network"
	"github.com/RoadSpeedAdjuster/extension/internal/overrides"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ScopeRow holds per-scope metadata. Scope names are stored unbounded since
// city names have no length limit.
type ScopeRow struct {
	Scope     string `gorm:"primaryKey"`
	Version   int
	LastSaved time.Time
	Meta      datatypes.JSONMap
}

func (ScopeRow) TableName() string { return "override_scopes" }

// RecordRow is one segment override.
type RecordRow struct {
	Scope         string `gorm:"primaryKey;autoIncrement:false"`
	SegmentID     uint64 `gorm:"primaryKey;autoIncrement:false"`
	OriginalValue float64
	CurrentValue  float64
	LastModified  time.Time
}

func (RecordRow) TableName() string { return "override_records" }

// Models lists the tables this backend migrates.
var Models = []any{&ScopeRow{}, &RecordRow{}}

// Backend stores tables in db.
type Backend struct {
	db *gorm.DB
}

// New migrates the override tables and returns a backend over db.
func New(db *gorm.DB) (*Backend, error) {
	if db == nil {
		return nil, errors.New("database not connected")
	}
	if err := db.AutoMigrate(Models...); err != nil {
		return nil, fmt.Errorf("failed to migrate override tables: %w", err)
	}
	return &Backend{db: db}, nil
}

// Load reads the table for scope. An unknown scope yields an empty table.
func (b *Backend) Load(ctx context.Context, scope string) (overrides.Table, error) {
	table := overrides.Table{Scope: scope, Version: overrides.TableVersion, Records: []overrides.Record{}}
	db := b.db.WithContext(ctx)

	var meta ScopeRow
	err := db.Where("scope = ?", scope).Take(&meta).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return table, nil
	case err != nil:
		return table, fmt.Errorf("failed to load scope %q: %w", scope, err)
	}
	table.Version = meta.Version
	table.LastSaved = meta.LastSaved

	var rows []RecordRow
	if err := db.Where("scope = ?", scope).Order("segment_id").Find(&rows).Error; err != nil {
		return table, fmt.Errorf("failed to load records for %q: %w", scope, err)
	}
	for _, r := range rows {
		table.Records = append(table.Records, overrides.Record{
			SegmentID:     network.SegmentID(r.SegmentID),
			OriginalValue: r.OriginalValue,
			CurrentValue:  r.CurrentValue,
			LastModified:  r.LastModified,
		})
	}
	return table, nil
}

// Save replaces the scope's records in a single transaction.
func (b *Backend) Save(ctx context.Context, table overrides.Table) error {
	rows := make([]RecordRow, 0, len(table.Records))
	for _, r := range table.Records {
		rows = append(rows, RecordRow{
			Scope:         table.Scope,
			SegmentID:     uint64(r.SegmentID),
			OriginalValue: r.OriginalValue,
			CurrentValue:  r.CurrentValue,
			LastModified:  r.LastModified,
		})
	}

	meta := ScopeRow{
		Scope:     table.Scope,
		Version:   table.Version,
		LastSaved: table.LastSaved,
		Meta: datatypes.JSONMap{
			"records":   len(rows),
			"sanitized": overrides.SanitizeScopeName(table.Scope),
		},
	}

	return b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&meta).Error; err != nil {
			return fmt.Errorf("failed to save scope %q: %w", table.Scope, err)
		}
		if err := tx.Where("scope = ?", table.Scope).Delete(&RecordRow{}).Error; err != nil {
			return fmt.Errorf("failed to clear records for %q: %w", table.Scope, err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(rows, 500).Error; err != nil {
			return fmt.Errorf("failed to save records for %q: %w", table.Scope, err)
		}
		return nil
	})
}

// Scopes lists every stored scope name.
func (b *Backend) Scopes(ctx context.Context) ([]string, error) {
	scopes := []string{}
	err := b.db.WithContext(ctx).Model(&ScopeRow{}).Order("scope").Pluck("scope", &scopes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list scopes: %w", err)
	}
	return scopes, nil
}

// Delete drops a scope and its records.
func (b *Backend) Delete(ctx context.Context, scope string) error {
	return b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("scope = ?", scope).Delete(&RecordRow{}).Error; err != nil {
			return err
		}
		return tx.Where("scope = ?", scope).Delete(&ScopeRow{}).Error
	})
}

// Close closes the connection pool.
func (b *Backend) Close() error {
	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
