package driver

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/MikeSquared-Agency/totalrecall/internal/chunker"
)

// StateFileName is the batch state file kept in the output directory.
const StateFileName = ".totalrecall-batch-state.json"

// FileRecord describes the last successful run over one input file.
type FileRecord struct {
	Digest      string           `json:"digest"`
	Strategy    chunker.Strategy `json:"strategy"`
	MaxTokens   int              `json:"max_tokens"`
	Output      string           `json:"output"`
	ProcessedAt time.Time        `json:"processed_at"`
}

// BatchState tracks processed files so an interrupted or repeated batch can
// skip inputs that have not changed since their last run.
type BatchState struct {
	StartedAt       time.Time             `json:"started_at"`
	LastProcessedAt time.Time             `json:"last_processed_at"`
	Files           map[string]FileRecord `json:"files"`
	Errors          []string              `json:"errors"`

	mu   sync.Mutex
	path string // not serialized
}

// LoadState reads the state at path, or starts a fresh one if none exists.
func LoadState(path string) (*BatchState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &BatchState{
				StartedAt: time.Now().UTC(),
				Files:     map[string]FileRecord{},
				path:      path,
			}, nil
		}
		return nil, fmt.Errorf("read state: %w", err)
	}

	var s BatchState
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse state: %w", err)
	}
	if s.Files == nil {
		s.Files = map[string]FileRecord{}
	}
	s.path = path
	return &s, nil
}

// Save persists the state to disk.
func (s *BatchState) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.LastProcessedAt = time.Now().UTC()
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return os.Rename(tmp, s.path)
}

// Unchanged reports whether path was already processed with the same content,
// strategy and budget, and its output still exists.
func (s *BatchState) Unchanged(path, digest string, strategy chunker.Strategy, maxTokens int) (FileRecord, bool) {
	s.mu.Lock()
	rec, ok := s.Files[path]
	s.mu.Unlock()
	if !ok || rec.Digest != digest || rec.Strategy != strategy || rec.MaxTokens != maxTokens {
		return FileRecord{}, false
	}
	if _, err := os.Stat(rec.Output); err != nil {
		return FileRecord{}, false
	}
	return rec, true
}

// MarkProcessed records a successful run over path.
func (s *BatchState) MarkProcessed(path string, rec FileRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Files[path] = rec
}

// AddError records a failed file.
func (s *BatchState) AddError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Errors = append(s.Errors, msg)
}

func fileDigest(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
