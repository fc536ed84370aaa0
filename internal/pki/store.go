package pki

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ghost-ng/Papertrail/internal/types"
)

// storedDocument is the on-disk form of a Document. Content is base64 in
// JSON via the standard []byte encoding.
type storedDocument struct {
	ID          types.ID    `json:"id"`
	Content     []byte      `json:"content"`
	ContentHash string      `json:"content_hash"`
	Signatures  []Signature `json:"signatures,omitempty"`
}

// FileStore reads documents from a directory of JSON files named
// <id>.json. It backs the CLI; services embed their own Store.
type FileStore struct {
	dir string
}

// NewFileStore creates a FileStore over dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) Get(_ context.Context, id types.ID) (Document, error) {
	if err := id.Validate(); err != nil {
		return Document{}, err
	}
	data, err := os.ReadFile(filepath.Join(s.dir, id.String()+".json"))
	if err != nil {
		return Document{}, fmt.Errorf("failed to read document %s: %w", id, err)
	}
	var stored storedDocument
	if err := json.Unmarshal(data, &stored); err != nil {
		return Document{}, fmt.Errorf("failed to parse document %s: %w", id, err)
	}
	return Document{
		ID:          stored.ID,
		Content:     stored.Content,
		ContentHash: stored.ContentHash,
		Signatures:  stored.Signatures,
	}, nil
}

// Put writes a document to disk, for seeding and tests.
func (s *FileStore) Put(doc Document) error {
	data, err := json.MarshalIndent(storedDocument{
		ID:          doc.ID,
		Content:     doc.Content,
		ContentHash: doc.ContentHash,
		Signatures:  doc.Signatures,
	}, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.dir, doc.ID.String()+".json"), data, 0o644)
}

// MemoryStore is an in-memory Store for tests.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[types.ID]Document
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore(docs ...Document) *MemoryStore {
	s := &MemoryStore{docs: make(map[types.ID]Document, len(docs))}
	for _, doc := range docs {
		s.docs[doc.ID] = doc
	}
	return s
}

// Put stores or replaces a document.
func (s *MemoryStore) Put(doc Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.ID] = doc
}

func (s *MemoryStore) Get(_ context.Context, id types.ID) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return Document{}, fmt.Errorf("document %s not found", id)
	}
	return doc, nil
}

var (
	_ Store = (*FileStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
