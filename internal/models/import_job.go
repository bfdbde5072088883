package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	coreServer "github.com/lee-tech/hrportal/internal/core/server"
)

// ImportStage tracks where a spreadsheet import is.
type ImportStage string

const (
	ImportStageIdle          ImportStage = "idle"
	ImportStagePreparing     ImportStage = "preparing"
	ImportStageCreatingRefs  ImportStage = "creating-refs"
	ImportStageCreatingUsers ImportStage = "creating-users"
	ImportStageCompleted     ImportStage = "completed"
	ImportStageFailed        ImportStage = "failed"
)

// StringList is stored as a JSON array column.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	data, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("unsupported StringList source %T", src)
	}
	if len(data) == 0 {
		*l = nil
		return nil
	}
	return json.Unmarshal(data, (*[]string)(l))
}

// ImportJob is the server-side progress record of one uploaded spreadsheet.
type ImportJob struct {
	ID         string      `gorm:"size:36;primaryKey" json:"id"`
	FileName   string      `gorm:"size:255" json:"file_name"`
	ArchiveKey string      `gorm:"size:512" json:"archive_key,omitempty"`
	Stage      ImportStage `gorm:"size:32;index" json:"stage"`
	Total      int         `json:"total"`
	Processed  int         `json:"processed"`
	Progress   int         `json:"progress"`
	Success    int         `json:"success"`
	Failed     int         `json:"failed"`
	Errors     StringList  `gorm:"type:text" json:"errors"`
	StartedBy  string      `gorm:"size:64" json:"started_by,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
	FinishedAt *time.Time  `json:"finished_at,omitempty"`
}

func init() {
	coreServer.RegisterMigration(func() interface{} { return &ImportJob{} })
}
