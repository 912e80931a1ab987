package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dgallion1/astkeeper/internal/astree"
	"github.com/dgallion1/astkeeper/internal/token"
)

// Store owns one persisted outline document and the pending-token table that
// gates its mutations. Every operation is a full read-modify-write of the
// JSON file, serialized by the store mutex; writes go through a temp sibling
// and an atomic rename so a reader never observes a half-written document.
type Store struct {
	path   string
	mu     sync.Mutex
	tokens *token.Table
	log    *slog.Logger
}

// Options configures a Store.
type Options struct {
	TokenTTL         time.Duration // zero means token.DefaultTTL
	MaxPendingTokens int           // zero means token.DefaultMaxPending
	Logger           *slog.Logger  // nil means slog.Default()
}

// New creates a Store over the JSON file at path. The file is not touched
// until the first operation.
func New(path string, opts Options) *Store {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		path:   path,
		tokens: token.NewTable(opts.TokenTTL, opts.MaxPendingTokens),
		log:    log,
	}
}

// Path returns the store file path.
func (s *Store) Path() string {
	return s.path
}

// PendingTokens returns the number of unconsumed edit tokens.
func (s *Store) PendingTokens() int {
	return s.tokens.Len()
}

// Init creates a fresh document, overwriting any existing one at the store
// path. Destructive by design: prior state is gone and every previously
// minted token is invalidated. rootTitle defaults to "root".
func (s *Store) Init(fileName, rootTitle, rootSummary string) error {
	if fileName == "" {
		return fmt.Errorf("file_name is required")
	}
	if rootTitle == "" {
		rootTitle = "root"
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc := &astree.Document{
		FileName: fileName,
		Root:     astree.NewNode(rootTitle, rootSummary),
	}
	if err := s.save(doc); err != nil {
		return err
	}
	s.tokens.Reset()
	s.log.Info("document initialized", "path", s.path, "file_name", fileName)
	return nil
}

// ImportOutline seeds a fresh document from an already-built outline tree.
// Destructive like Init: prior state and pending tokens are discarded.
func (s *Store) ImportOutline(fileName string, root *astree.Node) error {
	if fileName == "" {
		return fmt.Errorf("file_name is required")
	}
	if root == nil {
		return fmt.Errorf("outline root is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc := &astree.Document{FileName: fileName, Root: root}
	if err := s.save(doc); err != nil {
		return err
	}
	s.tokens.Reset()
	s.log.Info("outline imported", "path", s.path, "file_name", fileName)
	return nil
}

// Load returns the full document. Meant for external inspection; mutations go
// through LoadMeta and a token instead.
func (s *Store) Load() (*astree.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// LoadSubtree returns the node at the index path with its full descendant
// tree.
func (s *Store) LoadSubtree(path []int) (*astree.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	return astree.At(doc.Root, path)
}

// ListChildren returns ordered {index, title} entries for the node's direct
// children. A leaf yields an empty list.
func (s *Store) ListChildren(addr Address) ([]astree.ChildEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	node, _, err := s.locate(doc, addr)
	if err != nil {
		return nil, err
	}
	return node.ListChildren(), nil
}

// ResolvePath converts a title path to an index path.
func (s *Store) ResolvePath(titles []string) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	return astree.Resolve(doc.Root, titles)
}

// FindByTitle returns nodes whose title contains query as a substring, in
// pre-order traversal order. No matches is an empty result, not an error.
func (s *Store) FindByTitle(query string, maxResults int, caseSensitive bool) ([]astree.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	return astree.FindByTitle(doc.Root, query, maxResults, caseSensitive), nil
}

// Meta is the result of LoadMeta: a fresh edit token plus enough context
// about the target node for the caller to decide its edit without a full
// subtree load.
type Meta struct {
	Token    string
	Path     []int
	Title    string
	Children []astree.ChildEntry
}

// LoadMeta resolves addr, fingerprints the node and mints a single-use token
// authorizing one mutation of the given purpose against it.
func (s *Store) LoadMeta(addr Address, purpose token.Purpose) (*Meta, error) {
	if !purpose.Valid() {
		return nil, fmt.Errorf("unknown purpose %q", purpose)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	node, path, err := s.locate(doc, addr)
	if err != nil {
		return nil, err
	}

	value := s.tokens.Mint(path, purpose, astree.Fingerprint(node))
	s.log.Info("edit token minted", "purpose", string(purpose), "node_path", path)
	return &Meta{
		Token:    value,
		Path:     path,
		Title:    node.Title,
		Children: node.ListChildren(),
	}, nil
}

// locate resolves addr against doc and returns the node with its normalized
// index path.
func (s *Store) locate(doc *astree.Document, addr Address) (*astree.Node, []int, error) {
	path, err := addr.resolve(doc.Root)
	if err != nil {
		return nil, nil, err
	}
	node, err := astree.At(doc.Root, path)
	if err != nil {
		return nil, nil, err
	}
	return node, path, nil
}

func (s *Store) load() (*astree.Document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", s.path, ErrDocumentNotFound)
		}
		return nil, fmt.Errorf("read store: %w", err)
	}

	var doc astree.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode store %s: %v: %w", s.path, err, ErrDocumentCorrupt)
	}
	if doc.Root == nil {
		return nil, fmt.Errorf("store %s has no root node: %w", s.path, ErrDocumentCorrupt)
	}
	return &doc, nil
}

// save persists the document atomically: indented JSON to a temp sibling,
// then rename over the store path.
func (s *Store) save(doc *astree.Document) error {
	doc.Root.Normalize()

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}
	data = append(data, '\n')

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create store dir: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write store temp: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace store: %w", err)
	}
	return nil
}
