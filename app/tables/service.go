package tables

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"backoffice/app/csvio"
	"backoffice/app/models"
	"backoffice/app/upstream"
	"backoffice/core/app/search"
	"backoffice/core/dataset"
	"backoffice/core/emitter"
	"backoffice/core/logger"
	"backoffice/core/pagination"
	"backoffice/core/storage"
	"backoffice/core/value"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	CreateRecordEvent = "tables.create"
	UpdateRecordEvent = "tables.update"
	DeleteRecordEvent = "tables.delete"
	ReplaceEvent      = "tables.replace"
	ImportEvent       = "tables.import"
	SyncEvent         = "tables.sync"

	ImportAppend  = "append"
	ImportReplace = "replace"

	exportField = "export"
	batchSize   = 500
)

var (
	ErrUnknownTag = errors.New("unknown table")
	ErrNotFound   = errors.New("record not found")
	ErrNoStorage  = errors.New("storage is not configured")
)

// RecordEvent is emitted after a single record changes
type RecordEvent struct {
	Tag string `json:"tag"`
	Id  string `json:"id"`
}

func (e RecordEvent) ActivityEntity() (string, string) {
	return e.Tag, e.Id
}

type TableService struct {
	DB       *gorm.DB
	Emitter  *emitter.Emitter
	Storage  *storage.ActiveStorage
	Logger   logger.Logger
	Datasets *dataset.Store
	Registry *search.SearchRegistry
	Upstream *upstream.Client

	// writes holds one mutex per tag; a write and the reload that follows
	// it run under the tag's mutex
	writes sync.Map
}

func NewTableService(db *gorm.DB, emitter *emitter.Emitter, storage *storage.ActiveStorage, log logger.Logger,
	datasets *dataset.Store, registry *search.SearchRegistry, client *upstream.Client) *TableService {
	return &TableService{
		DB:       db,
		Emitter:  emitter,
		Storage:  storage,
		Logger:   log,
		Datasets: datasets,
		Registry: registry,
		Upstream: client,
	}
}

func (s *TableService) checkTag(tag string) error {
	if !s.Registry.Has(tag) {
		return fmt.Errorf("%w: %s", ErrUnknownTag, tag)
	}
	return nil
}

// lock takes the tag's write mutex and returns its unlock
func (s *TableService) lock(tag string) func() {
	mu, _ := s.writes.LoadOrStore(tag, &sync.Mutex{})
	m := mu.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

// Reload rebuilds the tag's Dataset from the database
func (s *TableService) Reload(tag string) (*dataset.Snapshot, error) {
	defer s.lock(tag)()
	return s.reload(tag)
}

// reload must be called with the tag's write mutex held
func (s *TableService) reload(tag string) (*dataset.Snapshot, error) {
	var rows []models.TableRecord
	if err := s.DB.Where("tag = ?", tag).Order("id").Find(&rows).Error; err != nil {
		s.Logger.Error("failed to load table records",
			logger.String("tag", tag),
			logger.String("error", err.Error()))
		return nil, err
	}

	records := make([]value.Value, 0, len(rows))
	for i := range rows {
		doc, err := rows[i].Materialize()
		if err != nil {
			s.Logger.Warn("skipping unreadable record",
				logger.String("tag", tag),
				logger.Int("id", int(rows[i].Id)),
				logger.String("error", err.Error()))
			continue
		}
		records = append(records, doc)
	}
	return s.Datasets.Replace(tag, records), nil
}

// write runs fn and then reloads the tag, both under the tag's write mutex,
// so a reload never installs rows older than the last committed write
func (s *TableService) write(tag string, fn func() error) error {
	_, err := s.writeSnapshot(tag, fn)
	return err
}

func (s *TableService) writeSnapshot(tag string, fn func() error) (*dataset.Snapshot, error) {
	defer s.lock(tag)()
	if err := fn(); err != nil {
		return nil, err
	}
	return s.reload(tag)
}

// LoadAll reloads every tag that has rows in the database
func (s *TableService) LoadAll() error {
	var tags []string
	if err := s.DB.Model(&models.TableRecord{}).Distinct("tag").Pluck("tag", &tags).Error; err != nil {
		return err
	}
	var errs []error
	for _, tag := range tags {
		if !s.Registry.Has(tag) {
			continue
		}
		if _, err := s.Reload(tag); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", tag, err))
		}
	}
	return errors.Join(errs...)
}

// Tables summarises every known tag
func (s *TableService) Tables() []models.TableSummary {
	tags := s.Registry.Tags()
	out := make([]models.TableSummary, 0, len(tags))
	for _, tag := range tags {
		summary := models.TableSummary{Tag: tag, Fields: s.Registry.Fields(tag)}
		if snap, ok := s.Datasets.Snapshot(tag); ok {
			summary.Records = snap.Len()
			summary.Version = snap.Version
			summary.LoadedAt = snap.LoadedAt
		}
		out = append(out, summary)
	}
	return out
}

// Fields returns the search fields of a known tag
func (s *TableService) Fields(tag string) ([]string, error) {
	if err := s.checkTag(tag); err != nil {
		return nil, err
	}
	return s.Registry.Fields(tag), nil
}

// searchFields returns the explicit comma separated field list, or the tag's
// defaults when none is given
func (s *TableService) searchFields(tag, explicit string) []string {
	var fields []string
	for _, f := range strings.Split(explicit, ",") {
		if f = strings.TrimSpace(f); f != "" {
			fields = append(fields, f)
		}
	}
	if len(fields) == 0 {
		return s.Registry.Fields(tag)
	}
	return fields
}

// Filter returns the records of tag matching query
func (s *TableService) Filter(tag, query, fields string) ([]value.Value, []string, *dataset.Snapshot, error) {
	if err := s.checkTag(tag); err != nil {
		return nil, nil, nil, err
	}
	searchFields := s.searchFields(tag, fields)
	records, snap := s.Datasets.Filter(tag, query, searchFields)
	return records, searchFields, snap, nil
}

// List filters and pages a table. An out of range page is moved back to
// the last page.
func (s *TableService) List(tag string, req models.ListTableRequest) (*models.TablePageResponse, error) {
	records, fields, snap, err := s.Filter(tag, req.Query, req.Fields)
	if err != nil {
		return nil, err
	}

	pager := pagination.New(records)
	if req.RowsPerPage > 0 {
		pager.HandleRowsPerPageChange(req.RowsPerPage)
	}
	if req.Page > 0 {
		pager.Paginate(req.Page)
	}
	pager.Reclamp()

	data := pager.CurrentRecords()
	if data == nil {
		data = []value.Value{}
	}

	// the engine's HasNext compares with !=, which is true on an empty
	// table; the response flag must be false there
	hasNext := pager.CurrentPage() < pager.TotalPages()

	resp := &models.TablePageResponse{
		Data: data,
		Pagination: models.Pagination{
			Total:       len(records),
			Page:        pager.CurrentPage(),
			PageSize:    pager.RowsPerPage(),
			TotalPages:  pager.TotalPages(),
			HasPrevious: pager.HasPrev(),
			HasNext:     hasNext,
		},
		Query:  req.Query,
		Fields: fields,
	}
	if snap != nil {
		resp.Version = snap.Version
	}
	return resp, nil
}

func (s *TableService) find(tag, id string) (*models.TableRecord, error) {
	item := &models.TableRecord{}
	query := s.DB.Where("tag = ?", tag)
	if n, err := strconv.ParseUint(id, 10, 64); err == nil {
		query = query.Where("(id = ? OR external_id = ?)", n, id)
	} else {
		query = query.Where("external_id = ?", id)
	}
	if err := query.Order("id").First(item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return item, nil
}

// Get returns one materialised record
func (s *TableService) Get(tag, id string) (value.Value, error) {
	if err := s.checkTag(tag); err != nil {
		return value.Null(), err
	}
	item, err := s.find(tag, id)
	if err != nil {
		return value.Null(), err
	}
	return item.Materialize()
}

// Create stores a record and reloads the tag
func (s *TableService) Create(tag string, doc value.Value) (value.Value, error) {
	if err := s.checkTag(tag); err != nil {
		return value.Null(), err
	}
	item, err := models.NewTableRecord(tag, doc)
	if err != nil {
		return value.Null(), err
	}

	err = s.write(tag, func() error {
		if err := s.DB.Create(item).Error; err != nil {
			s.Logger.Error("failed to create table record",
				logger.String("tag", tag),
				logger.String("error", err.Error()))
			return err
		}
		return nil
	})
	if err != nil {
		return value.Null(), err
	}
	s.Emitter.Emit(CreateRecordEvent, RecordEvent{Tag: tag, Id: item.RecordKey()})
	return item.Materialize()
}

// Update replaces a record's body and reloads the tag. The record keeps its
// external id unless the body carries a new "_id".
func (s *TableService) Update(tag, id string, doc value.Value) (value.Value, error) {
	if err := s.checkTag(tag); err != nil {
		return value.Null(), err
	}
	next, err := models.NewTableRecord(tag, doc)
	if err != nil {
		return value.Null(), err
	}

	var item *models.TableRecord
	err = s.write(tag, func() error {
		var err error
		item, err = s.find(tag, id)
		if err != nil {
			s.Logger.Error("failed to find table record for update",
				logger.String("tag", tag),
				logger.String("id", id),
				logger.String("error", err.Error()))
			return err
		}

		item.Body = next.Body
		if next.ExternalId != "" {
			item.ExternalId = next.ExternalId
		}
		if err := s.DB.Save(item).Error; err != nil {
			s.Logger.Error("failed to update table record",
				logger.String("tag", tag),
				logger.String("id", id),
				logger.String("error", err.Error()))
			return err
		}
		return nil
	})
	if err != nil {
		return value.Null(), err
	}
	s.Emitter.Emit(UpdateRecordEvent, RecordEvent{Tag: tag, Id: item.RecordKey()})
	return item.Materialize()
}

// Delete soft-deletes a record and reloads the tag
func (s *TableService) Delete(tag, id string) error {
	if err := s.checkTag(tag); err != nil {
		return err
	}

	var item *models.TableRecord
	err := s.write(tag, func() error {
		var err error
		item, err = s.find(tag, id)
		if err != nil {
			return err
		}
		if err := s.DB.Delete(item).Error; err != nil {
			s.Logger.Error("failed to delete table record",
				logger.String("tag", tag),
				logger.String("id", id),
				logger.String("error", err.Error()))
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.Emitter.Emit(DeleteRecordEvent, RecordEvent{Tag: tag, Id: item.RecordKey()})
	return nil
}

func buildRows(tag string, docs []value.Value) ([]models.TableRecord, error) {
	rows := make([]models.TableRecord, 0, len(docs))
	for i, doc := range docs {
		row, err := models.NewTableRecord(tag, doc)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i+1, err)
		}
		rows = append(rows, *row)
	}
	return rows, nil
}

// Replace swaps the whole table for docs in one transaction
func (s *TableService) Replace(tag string, docs []value.Value) (*dataset.Snapshot, error) {
	snap, err := s.replace(tag, docs)
	if err != nil {
		return nil, err
	}
	s.Emitter.Emit(ReplaceEvent, RecordEvent{Tag: tag})
	return snap, nil
}

func (s *TableService) replace(tag string, docs []value.Value) (*dataset.Snapshot, error) {
	if err := s.checkTag(tag); err != nil {
		return nil, err
	}
	rows, err := buildRows(tag, docs)
	if err != nil {
		return nil, err
	}

	return s.writeSnapshot(tag, func() error {
		err := s.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Unscoped().Where("tag = ?", tag).Delete(&models.TableRecord{}).Error; err != nil {
				return err
			}
			if len(rows) == 0 {
				return nil
			}
			return tx.CreateInBatches(rows, batchSize).Error
		})
		if err != nil {
			s.Logger.Error("failed to replace table",
				logger.String("tag", tag),
				logger.Int("records", len(rows)),
				logger.String("error", err.Error()))
		}
		return err
	})
}

// appendRows adds docs to the table
func (s *TableService) appendRows(tag string, docs []value.Value) (*dataset.Snapshot, error) {
	if err := s.checkTag(tag); err != nil {
		return nil, err
	}
	rows, err := buildRows(tag, docs)
	if err != nil {
		return nil, err
	}
	return s.writeSnapshot(tag, func() error {
		if len(rows) == 0 {
			return nil
		}
		if err := s.DB.CreateInBatches(rows, batchSize).Error; err != nil {
			s.Logger.Error("failed to append table records",
				logger.String("tag", tag),
				logger.String("error", err.Error()))
			return err
		}
		return nil
	})
}

// Import loads a CSV into the table, appending or replacing
func (s *TableService) Import(tag string, r io.Reader, mode string) (*models.ImportResponse, error) {
	if err := s.checkTag(tag); err != nil {
		return nil, err
	}
	if mode == "" {
		mode = ImportAppend
	}

	docs, err := csvio.Read(r)
	if err != nil {
		return nil, err
	}

	var snap *dataset.Snapshot
	switch mode {
	case ImportReplace:
		snap, err = s.replace(tag, docs)
	case ImportAppend:
		snap, err = s.appendRows(tag, docs)
	default:
		return nil, fmt.Errorf("unknown import mode %q", mode)
	}
	if err != nil {
		return nil, err
	}

	s.Logger.Info("Imported CSV",
		logger.String("tag", tag),
		logger.String("mode", mode),
		logger.Int("records", len(docs)))
	s.Emitter.Emit(ImportEvent, RecordEvent{Tag: tag})

	return &models.ImportResponse{Tag: tag, Mode: mode, Imported: len(docs), Total: snap.Len()}, nil
}

// Export writes the filtered table as CSV and returns the row count
func (s *TableService) Export(w io.Writer, tag, query, fields string) (int, error) {
	records, _, _, err := s.Filter(tag, query, fields)
	if err != nil {
		return 0, err
	}
	return csvio.Write(w, records, nil)
}

// StoreExport saves the filtered table as a CSV file through storage and
// records it
func (s *TableService) StoreExport(ctx context.Context, tag, query, fields string) (*models.ExportFile, error) {
	if s.Storage == nil {
		return nil, ErrNoStorage
	}

	var buf bytes.Buffer
	rows, err := s.Export(&buf, tag, query, fields)
	if err != nil {
		return nil, err
	}

	s.Storage.RegisterAttachment(tag, storage.AttachmentConfig{
		Field:             exportField,
		Path:              "exports",
		AllowedExtensions: []string{".csv"},
		ContentType:       "text/csv",
	})
	att, err := s.Storage.Attach(ctx, tag, exportField, tag+" export.csv", buf.Bytes())
	if err != nil {
		s.Logger.Error("failed to store export",
			logger.String("tag", tag),
			logger.String("error", err.Error()))
		return nil, err
	}

	export := &models.ExportFile{
		Id:       uuid.NewString(),
		Tag:      tag,
		Query:    query,
		Rows:     rows,
		Filename: att.Filename,
		Path:     att.Path,
		URL:      att.URL,
		Size:     att.Size,
	}
	if err := s.DB.Create(export).Error; err != nil {
		_ = s.Storage.Delete(ctx, att.Path)
		return nil, err
	}
	return export, nil
}

// Sync replaces the table with the upstream Dataset
func (s *TableService) Sync(ctx context.Context, tag string) (*models.SyncResponse, error) {
	if err := s.checkTag(tag); err != nil {
		return nil, err
	}
	if s.Upstream == nil || !s.Upstream.Configured() {
		return nil, upstream.ErrNotConfigured
	}

	start := time.Now()
	docs, err := s.Upstream.Fetch(ctx, tag)
	if err != nil {
		s.Logger.Error("failed to fetch upstream table",
			logger.String("tag", tag),
			logger.String("error", err.Error()))
		return nil, err
	}

	snap, err := s.replace(tag, docs)
	if err != nil {
		return nil, err
	}
	s.Emitter.Emit(SyncEvent, RecordEvent{Tag: tag})

	return &models.SyncResponse{
		Tag:      tag,
		Fetched:  len(docs),
		Version:  snap.Version,
		Duration: time.Since(start).String(),
	}, nil
}

// SyncAll syncs each tag in turn and joins the failures
func (s *TableService) SyncAll(ctx context.Context, tags []string) error {
	if len(tags) == 0 {
		tags = s.Registry.Tags()
	}
	var errs []error
	for _, tag := range tags {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := s.Sync(ctx, tag); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", tag, err))
		}
	}
	return errors.Join(errs...)
}

// ListExports returns stored exports of tag, newest first
func (s *TableService) ListExports(tag string) ([]models.ExportFile, error) {
	var exports []models.ExportFile
	if err := s.DB.Where("tag = ?", tag).Order("created_at desc").Find(&exports).Error; err != nil {
		return nil, err
	}
	return exports, nil
}
