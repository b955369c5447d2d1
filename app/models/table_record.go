package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"backoffice/core/value"

	"gorm.io/gorm"
)

// IdField is the key under which a materialised record exposes its id
const IdField = "_id"

// TableRecord stores one row of a table tag as a JSON document
type TableRecord struct {
	Id         uint            `json:"id" gorm:"primarykey"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
	DeletedAt  gorm.DeletedAt  `json:"deleted_at" gorm:"index"`
	Tag        string          `json:"tag" gorm:"size:64;index;not null"`
	ExternalId string          `json:"external_id" gorm:"size:64;index"`
	Body       json.RawMessage `json:"body" gorm:"type:json"`
}

func (m *TableRecord) TableName() string {
	return "table_records"
}

func (m *TableRecord) GetId() uint {
	return m.Id
}

func (m *TableRecord) GetModelName() string {
	return "table_record"
}

// RecordKey is the id exposed to clients: the upstream id when known,
// otherwise the row id
func (m *TableRecord) RecordKey() string {
	if m.ExternalId != "" {
		return m.ExternalId
	}
	return strconv.FormatUint(uint64(m.Id), 10)
}

// Materialize decodes the body into a Value with "_id" set to RecordKey and,
// when the body has no createdAt, the row creation time as a Date
func (m *TableRecord) Materialize() (value.Value, error) {
	var doc value.Value
	if len(m.Body) == 0 {
		doc = value.NewMap()
	} else {
		parsed, err := value.Parse(m.Body)
		if err != nil {
			return value.Null(), fmt.Errorf("record %d: %w", m.Id, err)
		}
		doc = parsed
	}
	if doc.Kind() != value.KindMap {
		return value.Null(), fmt.Errorf("record %d: body is a %s, not an object", m.Id, doc.Kind())
	}

	doc.Set(IdField, value.String(m.RecordKey()))
	if _, ok := doc.Get("createdAt"); !ok && !m.CreatedAt.IsZero() {
		doc.Set("createdAt", value.Date(m.CreatedAt))
	}
	return doc, nil
}

// NewTableRecord builds a row from a document. An "_id" in the document
// becomes the ExternalId and is not stored in the body.
func NewTableRecord(tag string, doc value.Value) (*TableRecord, error) {
	if doc.Kind() != value.KindMap {
		return nil, fmt.Errorf("record must be a JSON object, got %s", doc.Kind())
	}

	body := doc.Clone()
	rec := &TableRecord{Tag: tag}
	if id, ok := body.Get(IdField); ok {
		if !id.IsNull() {
			rec.ExternalId = id.String()
		}
		body.Delete(IdField)
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	rec.Body = raw
	return rec, nil
}

// ExportFile records a CSV export saved to storage
type ExportFile struct {
	Id        string    `json:"id" gorm:"primarykey;size:36"`
	CreatedAt time.Time `json:"created_at"`
	Tag       string    `json:"tag" gorm:"size:64;index"`
	Query     string    `json:"query"`
	Rows      int       `json:"rows"`
	Filename  string    `json:"filename"`
	Path      string    `json:"path"`
	URL       string    `json:"url"`
	Size      int64     `json:"size"`
}

func (m *ExportFile) TableName() string {
	return "export_files"
}

// ListTableRequest are the query parameters of a table page request
type ListTableRequest struct {
	Query       string `query:"q"`
	Fields      string `query:"fields"`
	Page        int    `query:"page" binding:"omitempty,min=1"`
	RowsPerPage int    `query:"rows_per_page" binding:"omitempty,oneof=100 150 200"`
}

// TablePageResponse is one page of a filtered table
type TablePageResponse struct {
	Data       []value.Value `json:"data"`
	Pagination Pagination    `json:"pagination"`
	Query      string        `json:"query"`
	Fields     []string      `json:"fields"`
	Version    uint64        `json:"version"`
}

// Pagination mirrors types.Pagination with the extra navigation flags
type Pagination struct {
	Total       int  `json:"total"`
	Page        int  `json:"page"`
	PageSize    int  `json:"page_size"`
	TotalPages  int  `json:"total_pages"`
	HasPrevious bool `json:"has_previous"`
	HasNext     bool `json:"has_next"`
}

// TableSummary describes one tag in the table index
type TableSummary struct {
	Tag      string    `json:"tag"`
	Records  int       `json:"records"`
	Version  uint64    `json:"version"`
	LoadedAt time.Time `json:"loaded_at"`
	Fields   []string  `json:"fields"`
}

// ImportRequest are the form fields of a CSV import
type ImportRequest struct {
	Mode string `query:"mode" binding:"omitempty,oneof=append replace"`
}

// ImportResponse summarises a CSV import
type ImportResponse struct {
	Tag      string `json:"tag"`
	Mode     string `json:"mode"`
	Imported int    `json:"imported"`
	Total    int    `json:"total"`
}

// SyncResponse summarises an upstream sync
type SyncResponse struct {
	Tag      string `json:"tag"`
	Fetched  int    `json:"fetched"`
	Version  uint64 `json:"version"`
	Duration string `json:"duration"`
}
