// package testing contains shared testing utilities
package testing

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/mdx/internal/blobstore"
	"github.com/desertthunder/mdx/internal/models"
	"github.com/desertthunder/mdx/internal/repositories"
	"github.com/desertthunder/mdx/internal/shared"
)

// SetupDB creates an in-memory SQLite database with migrations applied, closed at test cleanup.
func SetupDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if _, err := shared.RunMigrations(context.Background(), db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// CreateUser inserts an account with a placeholder hash.
func CreateUser(t *testing.T, store *repositories.Store, username, handle string) *models.User {
	t.Helper()

	user := models.NewUser(username, handle, "not-a-real-hash")
	if err := store.Users.Create(context.Background(), user); err != nil {
		t.Fatalf("failed to create user %s: %v", handle, err)
	}
	return user
}

// MockGateway is a test double for the extraction gateway.
type MockGateway struct {
	mu    sync.Mutex
	Media *models.MediaDescription
	Err   error
	Calls []ExtractCall
}

// ExtractCall records one call to [MockGateway.Extract].
type ExtractCall struct {
	URL, Platform, Format string
}

func (m *MockGateway) Extract(ctx context.Context, url, platform, format string) (*models.MediaDescription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, ExtractCall{URL: url, Platform: platform, Format: format})
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Media == nil {
		return &models.MediaDescription{Platform: platform, Title: "Mock", Duration: "0:00", Format: format}, nil
	}
	media := *m.Media
	return &media, nil
}

// MemoryBlobStore is an in-memory [blobstore.Store].
type MemoryBlobStore struct {
	PutErr error // fails every Put when set

	mu    sync.Mutex
	blobs map[string][]byte
}

func NewMemoryBlobStore() *MemoryBlobStore {
	return &MemoryBlobStore{blobs: make(map[string][]byte)}
}

func (m *MemoryBlobStore) Name() string { return "memory" }

func (m *MemoryBlobStore) Put(ctx context.Context, name string, r io.Reader, size int64) error {
	if m.PutErr != nil {
		return m.PutErr
	}

	name, err := blobstore.CleanName(name)
	if err != nil {
		return err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[name] = data
	return nil
}

func (m *MemoryBlobStore) Open(ctx context.Context, name string) (io.ReadCloser, blobstore.Info, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.blobs[name]
	if !ok {
		return nil, blobstore.Info{}, fmt.Errorf("file %s: %w", name, shared.ErrNotFound)
	}

	info := blobstore.Info{Name: name, Size: int64(len(data)), ContentType: blobstore.ContentType(name)}
	return io.NopCloser(bytes.NewReader(data)), info, nil
}

func (m *MemoryBlobStore) Remove(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, name)
	return nil
}

// Get returns the stored bytes for name.
func (m *MemoryBlobStore) Get(name string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[name]
	return data, ok
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
