package storage

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocalStorage(t *testing.T) (*ActiveStorage, string) {
	t.Helper()
	dir := t.TempDir()
	as, err := NewActiveStorage(Config{Provider: "local", Path: dir, BaseURL: "/storage/exports/"})
	require.NoError(t, err)
	as.RegisterAttachment("booking", AttachmentConfig{
		Field:             "export",
		Path:              "tables",
		AllowedExtensions: []string{".csv"},
		MaxFileSize:       1 << 10,
		ContentType:       "text/csv",
	})
	return as, dir
}

func TestAttachWritesFile(t *testing.T) {
	as, dir := newLocalStorage(t)

	att, err := as.Attach(context.Background(), "booking", "export", "Booking Export.csv", []byte("a,b\n1,2\n"))
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^booking-export-[0-9a-f]{8}\.csv$`), att.Filename)
	assert.Equal(t, "tables/booking/export/"+att.Filename, att.Path)
	assert.Equal(t, "/storage/exports/"+att.Path, att.URL)
	assert.Equal(t, int64(8), att.Size)
	assert.Equal(t, "text/csv", att.ContentType)

	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(att.Path)))
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(data))

	require.NoError(t, as.Delete(context.Background(), att.Path))
	_, err = os.Stat(filepath.Join(dir, filepath.FromSlash(att.Path)))
	assert.True(t, os.IsNotExist(err))
}

func TestAttachValidation(t *testing.T) {
	as, _ := newLocalStorage(t)
	ctx := context.Background()

	_, err := as.Attach(ctx, "booking", "export", "dump.exe", []byte("x"))
	assert.ErrorContains(t, err, "not allowed")

	_, err = as.Attach(ctx, "booking", "export", "big.csv", make([]byte, 2<<10))
	assert.ErrorContains(t, err, "exceeds")

	_, err = as.Attach(ctx, "rto", "export", "rto.csv", []byte("x"))
	assert.ErrorContains(t, err, "no attachment config")
}

func TestLocalProviderRejectsEscapingPaths(t *testing.T) {
	p, err := NewLocalProvider(LocalConfig{BasePath: t.TempDir()})
	require.NoError(t, err)
	assert.Error(t, p.Delete(context.Background(), "../../etc/passwd"))
}

func TestUnsupportedProvider(t *testing.T) {
	_, err := NewActiveStorage(Config{Provider: "ftp", Path: t.TempDir()})
	assert.ErrorContains(t, err, "unsupported storage provider")
}

func TestProviderURLs(t *testing.T) {
	r2 := &r2Provider{endpoint: "https://acc.r2.cloudflarestorage.com", bucket: "exports"}
	assert.Equal(t, "https://acc.r2.cloudflarestorage.com/exports/a.csv", r2.GetURL("a.csv"))
	r2.baseURL = "https://files.example.com/"
	assert.Equal(t, "https://files.example.com/a.csv", r2.GetURL("a.csv"))
	r2.cdn = "https://cdn.example.com"
	assert.Equal(t, "https://cdn.example.com/a.csv", r2.GetURL("a.csv"))

	s3p := &s3Provider{endpoint: "s3.amazonaws.com", bucket: "exports"}
	assert.Equal(t, "https://s3.amazonaws.com/exports/a.csv", s3p.GetURL("a.csv"))
}
