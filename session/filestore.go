package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// record is the on-disk row shape for one user.
type record struct {
	Platform  string         `json:"platform"`
	Data      map[string]any `json:"data"`
	Seq       int64          `json:"seq"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// document is the whole backing file: composite key -> record. The file is
// read and rewritten in full on every write.
type document map[string]record

// FileStore is the embedded, dependency-free backend: the entire user table
// lives in one JSON document. Every write goes read-whole/mutate-one-row/
// write-whole, so concurrent writers through *different* FileStore values
// on the same path would race at document granularity. Writes are therefore
// serialized through a process-wide lock registry keyed by the cleaned
// absolute path; unrelated files never contend. Under sustained write load
// prefer SQLStore.
type FileStore struct {
	path string
	mu   *sync.Mutex
}

// Process-wide lock registry, one mutex per backing file.
var (
	fileLocksMu sync.Mutex
	fileLocks   = make(map[string]*sync.Mutex)
)

func lockFor(path string) *sync.Mutex {
	fileLocksMu.Lock()
	defer fileLocksMu.Unlock()
	if m, ok := fileLocks[path]; ok {
		return m
	}
	m := &sync.Mutex{}
	fileLocks[path] = m
	return m
}

// NewFileStore returns a store backed by the JSON document at path. The
// file is created lazily on first write.
func NewFileStore(path string) *FileStore {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}
	return &FileStore{path: abs, mu: lockFor(abs)}
}

func (fs *FileStore) WhereOne(ctx context.Context, key Key) (*Session, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	doc, err := fs.read()
	if err != nil {
		return nil, err
	}
	rec, ok := doc[key.String()]
	if !ok {
		return nil, nil
	}
	return rec.session(key), nil
}

func (fs *FileStore) Save(ctx context.Context, key Key, s *Session) error {
	return fs.write(key, s, false)
}

func (fs *FileStore) Update(ctx context.Context, key Key, s *Session) error {
	return fs.write(key, s, true)
}

func (fs *FileStore) Delete(ctx context.Context, key Key) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	doc, err := fs.read()
	if err != nil {
		return err
	}
	if _, ok := doc[key.String()]; !ok {
		return nil
	}
	delete(doc, key.String())
	return fs.flush(doc)
}

func (fs *FileStore) write(key Key, s *Session, overwrite bool) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	doc, err := fs.read()
	if err != nil {
		return err
	}
	prev, exists := doc[key.String()]
	if exists && !overwrite {
		return nil
	}

	rec := record{
		Platform:  key.Platform,
		Data:      s.Data,
		Seq:       s.Seq,
		CreatedAt: s.CreatedAt,
		UpdatedAt: time.Now().UTC(),
	}
	// An update of a row we did not create keeps the original creation
	// timestamp rather than inventing a new one.
	if exists && !prev.CreatedAt.IsZero() {
		rec.CreatedAt = prev.CreatedAt
	}
	doc[key.String()] = rec
	return fs.flush(doc)
}

func (fs *FileStore) read() (document, error) {
	data, err := os.ReadFile(fs.path)
	if os.IsNotExist(err) {
		return make(document), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}
	if len(data) == 0 {
		return make(document), nil
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode session file %s: %w", fs.path, err)
	}
	if doc == nil {
		doc = make(document)
	}
	return doc, nil
}

func (fs *FileStore) flush(doc document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(fs.path), 0o755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	tmp := fs.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	if err := os.Rename(tmp, fs.path); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}

func (r record) session(key Key) *Session {
	data := r.Data
	if data == nil {
		data = make(map[string]any)
	}
	return &Session{
		Platform:  key.Platform,
		UserID:    key.UserID,
		Data:      data,
		Seq:       r.Seq,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}
