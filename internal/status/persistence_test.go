package status

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdkforge/repo-resolver/internal/packages"
	"github.com/sdkforge/repo-resolver/internal/source"
)

func TestSaveAndLoadStatus(t *testing.T) {
	t.Parallel()

	p := NewFilePersistence(t.TempDir())
	ctx := context.Background()

	now := time.Now().UTC()
	st := &SourceStatus{
		Phase:        LoadPhaseComplete,
		URL:          "http://example.com/repository.xml",
		LastLoadTime: &now,
		PackageCount: 3,
		SchemaURI:    "http://schemas.sdkforge.dev/sdk/repository/2",
	}

	require.NoError(t, p.SaveStatus(ctx, "example.com_repository.xml", st))

	loaded, err := p.LoadStatus(ctx, "example.com_repository.xml")
	require.NoError(t, err)
	assert.Equal(t, LoadPhaseComplete, loaded.Phase)
	assert.Equal(t, "http://example.com/repository.xml", loaded.URL)
	assert.Equal(t, 3, loaded.PackageCount)
}

func TestLoadStatusFirstRun(t *testing.T) {
	t.Parallel()

	p := NewFilePersistence(t.TempDir())

	st, err := p.LoadStatus(context.Background(), "never-seen")
	require.NoError(t, err)
	assert.Equal(t, &SourceStatus{}, st)
}

func TestLoadAllStatus(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p := NewFilePersistence(dir)
	ctx := context.Background()

	require.NoError(t, p.SaveStatus(ctx, "a.example.com", &SourceStatus{Phase: LoadPhaseComplete}))
	require.NoError(t, p.SaveStatus(ctx, "b.example.com", &SourceStatus{Phase: LoadPhaseFailed}))

	// A corrupt entry must not hide the healthy ones.
	corrupt := filepath.Join(dir, "c.example.com")
	require.NoError(t, os.MkdirAll(corrupt, 0750))
	require.NoError(t, os.WriteFile(filepath.Join(corrupt, StatusFileName), []byte("{not json"), 0600))

	all, err := p.LoadAllStatus(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, LoadPhaseComplete, all["a.example.com"].Phase)
	assert.Equal(t, LoadPhaseFailed, all["b.example.com"].Phase)
}

func TestLoadAllStatusMissingDir(t *testing.T) {
	t.Parallel()

	p := NewFilePersistence(filepath.Join(t.TempDir(), "does-not-exist"))

	all, err := p.LoadAllStatus(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestRecordOutcome(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	st := &SourceStatus{}

	success := &source.Outcome{
		OperationID: "op-1",
		URL:         "http://example.com/repository.xml",
		Packages:    []*packages.Package{{Type: packages.TypeTool, Revision: 1}},
		SchemaURI:   "http://schemas.sdkforge.dev/sdk/repository/2",
	}
	st.RecordOutcome(success, now)

	assert.Equal(t, LoadPhaseComplete, st.Phase)
	assert.Equal(t, 1, st.PackageCount)
	assert.Equal(t, 0, st.AttemptCount)
	assert.Equal(t, "op-1", st.LastOperationID)
	require.NotNil(t, st.LastLoadTime)

	// A failed reload keeps the last success's facts.
	later := now.Add(time.Hour)
	failure := &source.Outcome{
		OperationID: "op-2",
		URL:         "http://example.com/repository.xml",
		Error:       "Failed to fetch URL http://example.com/repository.xml: file not found",
	}
	st.RecordOutcome(failure, later)

	assert.Equal(t, LoadPhaseFailed, st.Phase)
	assert.Equal(t, 1, st.AttemptCount)
	assert.Contains(t, st.Message, "file not found")
	assert.Equal(t, 1, st.PackageCount)
	assert.Equal(t, now, st.LastLoadTime.UTC())
	assert.Equal(t, "http://example.com/repository.xml", st.URL)
}

func TestSourceKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "example.com_sdk_repository.xml",
		SourceKey("https://example.com/sdk/repository.xml"))
	assert.Equal(t, "example.com_8080_sdk",
		SourceKey("http://example.com:8080/sdk"))
}
