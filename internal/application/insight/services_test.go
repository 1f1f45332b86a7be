package insight

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	analysisdomain "github.com/neuralcode/insight/internal/domain/analysis"
	domain "github.com/neuralcode/insight/internal/domain/insight"
)

type stubAnalyses struct {
	rec *analysisdomain.Analysis
}

func (s *stubAnalyses) Save(context.Context, *analysisdomain.Analysis) error { return nil }
func (s *stubAnalyses) Get(context.Context, analysisdomain.AnalysisID) (*analysisdomain.Analysis, error) {
	return s.rec, nil
}
func (s *stubAnalyses) FindByRepositoryURL(context.Context, string) ([]*analysisdomain.Analysis, error) {
	return nil, nil
}
func (s *stubAnalyses) Latest(context.Context, int) ([]*analysisdomain.Analysis, error) {
	return nil, nil
}
func (s *stubAnalyses) Count(context.Context) (int64, error) { return 0, nil }

type memInsights struct {
	mu    sync.Mutex
	items []*domain.Insight
}

func (m *memInsights) Save(_ context.Context, ins *domain.Insight) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, ins)
	return nil
}

func (m *memInsights) Paginate(_ context.Context, page, pageSize int) ([]*domain.Insight, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items, nil
}

func (m *memInsights) LatestByAnalysis(_ context.Context, analysisID string) (*domain.Insight, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.items) - 1; i >= 0; i-- {
		if m.items[i].AnalysisID == analysisID {
			return m.items[i], nil
		}
	}
	return nil, nil
}

type stubClient struct {
	gotManifest string
}

func (c *stubClient) Summarize(_ context.Context, manifest string) (string, error) {
	c.gotManifest = manifest
	return `{"summary":"test"}`, nil
}

type stubClock struct{}

func (stubClock) Now() time.Time { return time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC) }

func storedAnalysis(t *testing.T) *analysisdomain.Analysis {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte("package main\n"), 0o644))
	return &analysisdomain.Analysis{
		ID:              "3f2c9a10-0000-4000-8000-000000000001",
		Status:          analysisdomain.StatusStoredLocal,
		StorageLocation: root,
	}
}

func TestAnalyzeAndStore(t *testing.T) {
	analyses := &stubAnalyses{rec: storedAnalysis(t)}
	repo := &memInsights{}
	client := &stubClient{}
	svc := NewService(analyses, repo, client, stubClock{})

	ins, err := svc.AnalyzeAndStore(context.Background(), string(analyses.rec.ID))

	require.NoError(t, err)
	assert.Equal(t, `{"summary":"test"}`, ins.Result)
	assert.Equal(t, string(analyses.rec.ID), ins.AnalysisID)
	assert.Contains(t, client.gotManifest, "main.go")
	assert.Len(t, repo.items, 1)
}

func TestAnalyzeAndStoreUnknownAnalysis(t *testing.T) {
	svc := NewService(&stubAnalyses{}, &memInsights{}, &stubClient{}, stubClock{})

	_, err := svc.AnalyzeAndStore(context.Background(), "3f2c9a10-0000-4000-8000-000000000002")

	assert.ErrorIs(t, err, analysisdomain.ErrNotFound)
}

func TestAnalyzeAndStoreRequiresStoredCheckout(t *testing.T) {
	analyses := &stubAnalyses{rec: &analysisdomain.Analysis{
		ID:     "3f2c9a10-0000-4000-8000-000000000003",
		Status: analysisdomain.StatusError,
	}}
	svc := NewService(analyses, &memInsights{}, &stubClient{}, stubClock{})

	_, err := svc.AnalyzeAndStore(context.Background(), string(analyses.rec.ID))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no stored checkout")
}

func TestLatestForAnalysisNotFound(t *testing.T) {
	svc := NewService(&stubAnalyses{}, &memInsights{}, &stubClient{}, stubClock{})

	_, err := svc.LatestForAnalysis(context.Background(), "3f2c9a10-0000-4000-8000-000000000004")

	assert.ErrorIs(t, err, analysisdomain.ErrNotFound)
}
