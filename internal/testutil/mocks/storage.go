package mocks

import (
	"fmt"
	"sync"

	"github.com/camdumpdb/internal/storage"
)

// MockStorage is an in-memory storage.Operations for tests
type MockStorage struct {
	mu sync.RWMutex

	// Mock data
	Reports []*storage.StoredReport

	// Behavior configuration
	ShouldFailInsert       bool
	ShouldFailIsProcessed  bool
	ShouldFailCountReports bool

	// Call tracking
	InsertCalled      int
	IsProcessedCalled int
	CountCalled       int
	Closed            bool
}

// NewMockStorage creates a new mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		Reports: []*storage.StoredReport{},
	}
}

// InsertReports mocks a batch insert
func (m *MockStorage) InsertReports(reports []*storage.StoredReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.InsertCalled++

	if m.ShouldFailInsert {
		return fmt.Errorf("mock insert reports error")
	}

	m.Reports = append(m.Reports, reports...)
	return nil
}

// IsReportProcessed reports whether a report with contentHash was inserted
func (m *MockStorage) IsReportProcessed(contentHash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.IsProcessedCalled++

	if m.ShouldFailIsProcessed {
		return false, fmt.Errorf("mock processed check error")
	}

	for _, r := range m.Reports {
		if r.ContentHash == contentHash {
			return true, nil
		}
	}
	return false, nil
}

// CountReports mocks counting reports
func (m *MockStorage) CountReports() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CountCalled++

	if m.ShouldFailCountReports {
		return 0, fmt.Errorf("mock count reports error")
	}

	return len(m.Reports), nil
}

// Close marks the mock closed
func (m *MockStorage) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

// SourcePaths returns the source path of every stored report in insert order
func (m *MockStorage) SourcePaths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	paths := make([]string, len(m.Reports))
	for i, r := range m.Reports {
		paths[i] = r.SourcePath
	}
	return paths
}

// Reset resets all call tracking
func (m *MockStorage) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.InsertCalled = 0
	m.IsProcessedCalled = 0
	m.CountCalled = 0

	m.ShouldFailInsert = false
	m.ShouldFailIsProcessed = false
	m.ShouldFailCountReports = false

	m.Reports = []*storage.StoredReport{}
}
