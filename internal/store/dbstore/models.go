package dbstore

import (
	"time"

	"github.com/yiblet/clipd/internal/clip"
)

// SchemaVersion is recorded in the meta table on first open.
const SchemaVersion = "1"

// RecordModel is one catalog entry. Position keeps the order the catalog
// was saved in.
type RecordModel struct {
	ID          int64     `gorm:"primaryKey;autoIncrement:false"`
	Position    int       `gorm:"not null;index"`
	Timestamp   time.Time `gorm:"not null;index"`
	Kind        string    `gorm:"size:16;not null"`
	ContentPath string    `gorm:"type:text;not null"`
	PreviewText string    `gorm:"type:text;not null"`
	IsFavorite  bool      `gorm:"not null;default:false"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

// TableName returns the table name for RecordModel
func (RecordModel) TableName() string {
	return "records"
}

func fromRecord(r clip.Record, position int) RecordModel {
	return RecordModel{
		ID:          r.ID,
		Position:    position,
		Timestamp:   r.Timestamp,
		Kind:        r.Kind.String(),
		ContentPath: r.ContentPath,
		PreviewText: r.PreviewText,
		IsFavorite:  r.IsFavorite,
	}
}

// ToRecord converts the GORM model to a clip.Record
func (m *RecordModel) ToRecord() (clip.Record, error) {
	kind, err := clip.ParseKind(m.Kind)
	if err != nil {
		return clip.Record{}, err
	}
	return clip.Record{
		ID:          m.ID,
		Timestamp:   m.Timestamp,
		Kind:        kind,
		ContentPath: m.ContentPath,
		PreviewText: m.PreviewText,
		IsFavorite:  m.IsFavorite,
	}, nil
}

// MetaModel holds key-value bookkeeping such as the schema version.
type MetaModel struct {
	Key       string    `gorm:"primaryKey;size:100"`
	Value     string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName returns the table name for MetaModel
func (MetaModel) TableName() string {
	return "meta"
}
