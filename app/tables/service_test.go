package tables

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"backoffice/app/models"
	"backoffice/app/upstream"
	"backoffice/core/app/search"
	"backoffice/core/database"
	"backoffice/core/dataset"
	"backoffice/core/emitter"
	"backoffice/core/logger"
	"backoffice/core/storage"
	"backoffice/core/value"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func parse(t *testing.T, raw string) value.Value {
	t.Helper()
	v, err := value.Parse([]byte(raw))
	require.NoError(t, err)
	return v
}

func parseList(t *testing.T, raw string) []value.Value {
	t.Helper()
	return parse(t, raw).Items()
}

type fixture struct {
	service *TableService
	events  *[]string
	dir     string
}

func newFixture(t *testing.T, client *upstream.Client) fixture {
	t.Helper()

	db, err := database.Open("sqlite", ":memory:", false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.DB.AutoMigrate(&models.TableRecord{}, &models.ExportFile{}))

	store, err := dataset.New(dataset.Options{CacheSize: 100})
	require.NoError(t, err)
	t.Cleanup(store.Close)

	dir := t.TempDir()
	files, err := storage.NewActiveStorage(storage.Config{Provider: "local", Path: dir, BaseURL: "/storage/exports"})
	require.NoError(t, err)

	em := emitter.New()
	var (
		mu     sync.Mutex
		events []string
	)
	for _, event := range []string{CreateRecordEvent, UpdateRecordEvent, DeleteRecordEvent, ReplaceEvent, ImportEvent, SyncEvent} {
		event := event
		em.On(event, func(data any) {
			mu.Lock()
			events = append(events, fmt.Sprintf("%s:%s", event, data.(RecordEvent).Tag))
			mu.Unlock()
		})
	}

	service := NewTableService(db.DB, em, files, logger.Nop(), store,
		search.NewSearchRegistry(search.FallbackLegacyKeys), client)
	return fixture{service: service, events: &events, dir: dir}
}

func seedRTO(t *testing.T, s *TableService, n int) {
	t.Helper()
	docs := make([]value.Value, 0, n)
	for i := 1; i <= n; i++ {
		docs = append(docs, parse(t, fmt.Sprintf(`{"_id":"rto-%d","rtoCode":"MH%02d","city":"Pune"}`, i, i)))
	}
	_, err := s.Replace("rto", docs)
	require.NoError(t, err)
}

func TestUnknownTag(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.service.List("nope", models.ListTableRequest{})
	assert.ErrorIs(t, err, ErrUnknownTag)

	_, err = f.service.Create("nope", value.NewMap())
	assert.ErrorIs(t, err, ErrUnknownTag)

	_, err = f.service.Fields("nope")
	assert.ErrorIs(t, err, ErrUnknownTag)
}

func TestCreateGetUpdateDelete(t *testing.T) {
	f := newFixture(t, nil)
	s := f.service

	created, err := s.Create("customers", parse(t, `{"name":"Asha Patil","mobile1":"9800000001"}`))
	require.NoError(t, err)
	id, _ := created.Get(models.IdField)
	require.Equal(t, "1", id.AsString())
	_, hasCreatedAt := created.Get("createdAt")
	assert.True(t, hasCreatedAt)

	snap, ok := s.Datasets.Snapshot("customers")
	require.True(t, ok)
	assert.Equal(t, 1, snap.Len())

	updated, err := s.Update("customers", "1", parse(t, `{"name":"Asha P","mobile1":"9800000001"}`))
	require.NoError(t, err)
	name, _ := updated.Get("name")
	assert.Equal(t, "Asha P", name.AsString())

	got, err := s.Get("customers", "1")
	require.NoError(t, err)
	name, _ = got.Get("name")
	assert.Equal(t, "Asha P", name.AsString())

	require.NoError(t, s.Delete("customers", "1"))
	assert.Empty(t, s.Datasets.Records("customers"))

	_, err = s.Get("customers", "1")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, []string{
		"tables.create:customers",
		"tables.update:customers",
		"tables.delete:customers",
	}, *f.events)
}

func TestExternalIds(t *testing.T) {
	s := newFixture(t, nil).service

	_, err := s.Create("rto", parse(t, `{"_id":"64f0a1","rtoCode":"MH12"}`))
	require.NoError(t, err)

	got, err := s.Get("rto", "64f0a1")
	require.NoError(t, err)
	id, _ := got.Get(models.IdField)
	assert.Equal(t, "64f0a1", id.AsString())

	// the upstream id survives an update whose body omits it
	_, err = s.Update("rto", "64f0a1", parse(t, `{"rtoCode":"MH14"}`))
	require.NoError(t, err)
	got, err = s.Get("rto", "64f0a1")
	require.NoError(t, err)
	code, _ := got.Get("rtoCode")
	assert.Equal(t, "MH14", code.AsString())

	// numeric row ids still resolve
	_, err = s.Get("rto", "1")
	assert.NoError(t, err)
}

func TestListFiltersAndPages(t *testing.T) {
	s := newFixture(t, nil).service
	seedRTO(t, s, 250)

	resp, err := s.List("rto", models.ListTableRequest{Page: 2})
	require.NoError(t, err)
	assert.Equal(t, 250, resp.Pagination.Total)
	assert.Equal(t, 3, resp.Pagination.TotalPages)
	assert.Equal(t, 2, resp.Pagination.Page)
	assert.Len(t, resp.Data, 100)
	assert.True(t, resp.Pagination.HasPrevious)
	assert.True(t, resp.Pagination.HasNext)
	assert.Equal(t, []string{"rtoCode", "rtoName", "city", "state"}, resp.Fields)

	first, _ := resp.Data[0].Get("rtoCode")
	assert.Equal(t, "MH101", first.AsString())

	resp, err = s.List("rto", models.ListTableRequest{Query: "mh1", RowsPerPage: 150})
	require.NoError(t, err)
	// MH10..MH19 and MH100..MH199
	assert.Equal(t, 110, resp.Pagination.Total)
	assert.Equal(t, 150, resp.Pagination.PageSize)
	assert.Equal(t, 1, resp.Pagination.TotalPages)
	assert.False(t, resp.Pagination.HasNext)
}

func TestListReclampsOutOfRangePage(t *testing.T) {
	s := newFixture(t, nil).service
	seedRTO(t, s, 120)

	resp, err := s.List("rto", models.ListTableRequest{Page: 9})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Pagination.Page)
	assert.Len(t, resp.Data, 20)

	resp, err = s.List("rto", models.ListTableRequest{Query: "no such code", Page: 3})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Pagination.Page)
	assert.Equal(t, 0, resp.Pagination.Total)
	assert.False(t, resp.Pagination.HasNext)
	assert.False(t, resp.Pagination.HasPrevious)
	assert.NotNil(t, resp.Data)
	assert.Empty(t, resp.Data)
}

func TestListExplicitFields(t *testing.T) {
	s := newFixture(t, nil).service
	_, err := s.Replace("rto", parseList(t, `[
		{"rtoCode":"MH12","city":"Pune"},
		{"rtoCode":"KA01","city":"Bengaluru","note":"pune office"}
	]`))
	require.NoError(t, err)

	resp, err := s.List("rto", models.ListTableRequest{Query: "pune"})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Pagination.Total)

	resp, err = s.List("rto", models.ListTableRequest{Query: "pune", Fields: "city, note"})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Pagination.Total)
	assert.Equal(t, []string{"city", "note"}, resp.Fields)
}

func TestReplaceBumpsVersion(t *testing.T) {
	f := newFixture(t, nil)
	s := f.service
	seedRTO(t, s, 3)
	first, _ := s.Datasets.Snapshot("rto")

	snap, err := s.Replace("rto", parseList(t, `[{"rtoCode":"GA07"}]`))
	require.NoError(t, err)
	assert.Greater(t, snap.Version, first.Version)
	assert.Equal(t, 1, snap.Len())

	var count int64
	require.NoError(t, s.DB.Unscoped().Model(&models.TableRecord{}).Where("tag = ?", "rto").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestImportAppendAndReplace(t *testing.T) {
	f := newFixture(t, nil)
	s := f.service

	csv := "rtoCode,city,active\nMH12,Pune,true\nMH14,Pimpri,false\n"
	resp, err := s.Import("rto", strings.NewReader(csv), "")
	require.NoError(t, err)
	assert.Equal(t, ImportAppend, resp.Mode)
	assert.Equal(t, 2, resp.Imported)
	assert.Equal(t, 2, resp.Total)

	resp, err = s.Import("rto", strings.NewReader(csv), ImportAppend)
	require.NoError(t, err)
	assert.Equal(t, 4, resp.Total)

	resp, err = s.Import("rto", strings.NewReader("rtoCode\nKA01\n"), ImportReplace)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Total)

	_, err = s.Import("rto", strings.NewReader(csv), "merge")
	assert.Error(t, err)

	records := s.Datasets.Records("rto")
	require.Len(t, records, 1)
	code, _ := records[0].Get("rtoCode")
	assert.Equal(t, "KA01", code.AsString())
}

func TestImportBooleansAreTyped(t *testing.T) {
	s := newFixture(t, nil).service
	_, err := s.Import("insurance_provider", strings.NewReader("provider_name,is_active\nAcme,true\n"), "")
	require.NoError(t, err)

	resp, err := s.List("insurance_provider", models.ListTableRequest{Query: "yes"})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Pagination.Total)
}

func TestExportWritesFilteredCSV(t *testing.T) {
	s := newFixture(t, nil).service
	_, err := s.Replace("rto", parseList(t, `[{"rtoCode":"MH12","city":"Pune"},{"rtoCode":"KA01","city":"Bengaluru"}]`))
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := s.Export(&buf, "rto", "pune", "")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Contains(t, buf.String(), "MH12")
	assert.NotContains(t, buf.String(), "KA01")
}

func TestStoreExport(t *testing.T) {
	f := newFixture(t, nil)
	s := f.service
	seedRTO(t, s, 2)

	export, err := s.StoreExport(context.Background(), "rto", "", "")
	require.NoError(t, err)
	assert.Len(t, export.Id, 36)
	assert.Equal(t, 2, export.Rows)
	assert.True(t, strings.HasPrefix(export.Path, "exports/rto/export/rto-export-"))

	data, err := os.ReadFile(filepath.Join(f.dir, filepath.FromSlash(export.Path)))
	require.NoError(t, err)
	assert.Contains(t, string(data), "MH01")

	exports, err := s.ListExports("rto")
	require.NoError(t, err)
	require.Len(t, exports, 1)
	assert.Equal(t, export.Id, exports[0].Id)
}

func TestSyncFromUpstream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/rto":
			_, _ = w.Write([]byte(`[{"_id":"a1","rtoCode":"MH12"},{"_id":"a2","rtoCode":"MH14"}]`))
		default:
			http.Error(w, "down", http.StatusServiceUnavailable)
		}
	}))
	t.Cleanup(srv.Close)

	f := newFixture(t, upstream.NewClient(upstream.Config{BaseURL: srv.URL}, nil))
	s := f.service

	resp, err := s.Sync(context.Background(), "rto")
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Fetched)

	got, err := s.Get("rto", "a2")
	require.NoError(t, err)
	code, _ := got.Get("rtoCode")
	assert.Equal(t, "MH14", code.AsString())

	err = s.SyncAll(context.Background(), []string{"rto", "booking"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "booking")
	assert.Len(t, s.Datasets.Records("rto"), 2)
	assert.Contains(t, *f.events, "tables.sync:rto")
}

func TestSyncWithoutUpstream(t *testing.T) {
	s := newFixture(t, nil).service
	_, err := s.Sync(context.Background(), "rto")
	assert.ErrorIs(t, err, upstream.ErrNotConfigured)
}

func TestLoadAll(t *testing.T) {
	s := newFixture(t, nil).service
	seedRTO(t, s, 3)
	_, err := s.Create("customers", parse(t, `{"name":"Kiran"}`))
	require.NoError(t, err)

	s.Datasets.Drop("rto")
	s.Datasets.Drop("customers")
	require.NoError(t, s.LoadAll())
	assert.Equal(t, map[string]int{"rto": 3, "customers": 1}, s.Datasets.Counts())

	var rto models.TableSummary
	for _, summary := range s.Tables() {
		if summary.Tag == "rto" {
			rto = summary
		}
	}
	assert.Equal(t, 3, rto.Records)
}

func TestReloadNeverInstallsStaleRows(t *testing.T) {
	s := newFixture(t, nil).service
	red := parse(t, `{"name":"Red"}`)
	blue := parse(t, `{"name":"Blue"}`)

	// hold the first reload right after it has read the table
	var armed atomic.Bool
	stalled := make(chan struct{})
	release := make(chan struct{})
	require.NoError(t, s.DB.Callback().Query().After("gorm:query").Register("test:hold_reload", func(tx *gorm.DB) {
		if tx.Statement.Table == "table_records" && armed.CompareAndSwap(true, false) {
			close(stalled)
			<-release
		}
	}))
	armed.Store(true)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := s.Create("color", red)
		assert.NoError(t, err)
	}()
	<-stalled
	go func() {
		defer wg.Done()
		_, err := s.Create("color", blue)
		assert.NoError(t, err)
	}()
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	var count int64
	require.NoError(t, s.DB.Model(&models.TableRecord{}).Where("tag = ?", "color").Count(&count).Error)
	assert.Equal(t, int64(2), count)
	assert.Len(t, s.Datasets.Records("color"), 2)
}

func TestConcurrentCreatesAllVisible(t *testing.T) {
	s := newFixture(t, nil).service
	docs := make([]value.Value, 20)
	for i := range docs {
		docs[i] = parse(t, fmt.Sprintf(`{"name":"Shade %d"}`, i))
	}

	var wg sync.WaitGroup
	for _, doc := range docs {
		wg.Add(1)
		go func(doc value.Value) {
			defer wg.Done()
			_, err := s.Create("color", doc)
			assert.NoError(t, err)
		}(doc)
	}
	wg.Wait()

	assert.Len(t, s.Datasets.Records("color"), len(docs))
	snap, ok := s.Datasets.Snapshot("color")
	require.True(t, ok)
	assert.Equal(t, uint64(len(docs)), snap.Version)
}
