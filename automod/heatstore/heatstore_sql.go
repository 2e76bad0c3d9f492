package heatstore

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/langwarden/langwarden/automod/heat"
)

type HeatRow struct {
	Name       string `gorm:"primaryKey"`
	Heat       float64
	LastAction time.Time
	StableID   string `gorm:"index"`
	UpdatedAt  time.Time
}

func (HeatRow) TableName() string {
	return "heat_records"
}

// SQLHeatStore keeps records in a gorm-managed table (sqlite or postgres).
type SQLHeatStore struct {
	DB *gorm.DB
}

func NewSQLHeatStore(db *gorm.DB) (*SQLHeatStore, error) {
	if err := db.AutoMigrate(&HeatRow{}); err != nil {
		return nil, err
	}
	return &SQLHeatStore{DB: db}, nil
}

func (s *SQLHeatStore) Load(ctx context.Context) ([]heat.Record, error) {
	var rows []HeatRow
	if err := s.DB.WithContext(ctx).Order("name").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]heat.Record, len(rows))
	for i, r := range rows {
		out[i] = heat.Record{
			Name:       r.Name,
			Heat:       r.Heat,
			LastAction: r.LastAction.UTC(),
			StableID:   r.StableID,
		}
	}
	return out, nil
}

func (s *SQLHeatStore) Save(ctx context.Context, recs []heat.Record) error {
	rows := make([]HeatRow, len(recs))
	for i, r := range recs {
		rows[i] = HeatRow{
			Name:       r.Name,
			Heat:       r.Heat,
			LastAction: r.LastAction.UTC(),
			StableID:   r.StableID,
		}
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&HeatRow{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, 200).Error
	})
}
