package driver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/totalrecall/internal/chunker"
)

// DefaultOutputDir is where processed collections are written when no output
// directory is configured.
const DefaultOutputDir = "~/.total_recall/memory/processed"

// ProcessingResult is the serialized output of one driver invocation.
type ProcessingResult struct {
	Chunks             []chunker.Chunk  `json:"chunks"`
	OriginalSource     string           `json:"original_file"`
	Strategy           chunker.Strategy `json:"chunking_strategy"`
	MaxTokensPerChunk  int              `json:"max_tokens_per_chunk"`
	TotalChunks        int              `json:"total_chunks"`
	TotalConversations int              `json:"total_conversations"`
}

// ProcessedEvent announces a finished ProcessingResult to a Notifier.
type ProcessedEvent struct {
	ID                 string    `json:"id"`
	Source             string    `json:"source"`
	Output             string    `json:"output,omitempty"`
	Strategy           string    `json:"strategy"`
	MaxTokens          int       `json:"max_tokens"`
	TotalChunks        int       `json:"total_chunks"`
	TotalConversations int       `json:"total_conversations"`
	Timestamp          time.Time `json:"timestamp"`
}

// Notifier receives an event after every successful run.
type Notifier interface {
	Notify(ctx context.Context, evt ProcessedEvent) error
}

// Config holds the driver configuration.
type Config struct {
	OutputDir string
	Workers   int  // concurrent files in ProcessBatch
	Resume    bool // skip unchanged files recorded in the batch state
}

// Driver loads conversation collections, chunks them and writes the results.
type Driver struct {
	cfg      Config
	chunker  *chunker.Chunker
	notifier Notifier
	logger   *slog.Logger
}

// New creates a Driver. A nil chunker uses chunker.New(), a nil logger uses
// slog.Default() and a nil notifier disables events.
func New(cfg Config, c *chunker.Chunker, notifier Notifier, logger *slog.Logger) *Driver {
	if cfg.OutputDir == "" {
		cfg.OutputDir = DefaultOutputDir
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if c == nil {
		c = chunker.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{
		cfg:      cfg,
		chunker:  c,
		notifier: notifier,
		logger:   logger,
	}
}

// Overflow returns the overflow policy of the driver's chunker.
func (d *Driver) Overflow() chunker.OverflowPolicy {
	return d.chunker.Overflow()
}

// OutputDir returns the resolved output directory.
func (d *Driver) OutputDir() string {
	return expandHome(d.cfg.OutputDir)
}

// Process chunks convs with the default chunker and wraps them in a
// ProcessingResult. It performs no I/O.
func Process(source string, convs []chunker.Conversation, strategy chunker.Strategy, maxTokens int) (*ProcessingResult, error) {
	return process(chunker.New(), source, convs, strategy, maxTokens)
}

func process(c *chunker.Chunker, source string, convs []chunker.Conversation, strategy chunker.Strategy, maxTokens int) (*ProcessingResult, error) {
	chunks, err := c.Chunk(strategy, convs, maxTokens)
	if err != nil {
		return nil, err
	}
	if chunks == nil {
		chunks = []chunker.Chunk{}
	}

	total := 0
	for _, ch := range chunks {
		total += len(ch.Conversations)
	}

	return &ProcessingResult{
		Chunks:             chunks,
		OriginalSource:     source,
		Strategy:           strategy,
		MaxTokensPerChunk:  maxTokens,
		TotalChunks:        len(chunks),
		TotalConversations: total,
	}, nil
}

// Process chunks an in-memory collection and notifies listeners. Nothing is
// written to disk.
func (d *Driver) Process(ctx context.Context, source string, convs []chunker.Conversation, strategy chunker.Strategy, maxTokens int) (*ProcessingResult, error) {
	result, err := process(d.chunker, source, convs, strategy, maxTokens)
	if err != nil {
		return nil, err
	}

	d.logger.Info("collection processed",
		"source", source,
		"strategy", strategy.String(),
		"max_tokens", maxTokens,
		"overflow", d.Overflow().String(),
		"conversations_in", len(convs),
		"chunks", result.TotalChunks,
		"messages_out", messageCount(result.Chunks),
	)
	d.notify(ctx, result, "")
	return result, nil
}

// ProcessFile loads the collection at path, chunks it and writes the result
// next to the other processed files. It returns the output path.
func (d *Driver) ProcessFile(ctx context.Context, path string, strategy chunker.Strategy, maxTokens int) (string, *ProcessingResult, error) {
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}
	if !strategy.Valid() {
		return "", nil, &chunker.UnknownStrategyError{Name: strategy.String()}
	}

	path = expandHome(path)
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("read %s: %w", path, err)
	}

	convs, err := Decode(data, DetectFormat(path))
	if err != nil {
		var ie *InvalidInputError
		if errors.As(err, &ie) {
			ie.Source = path
		}
		return "", nil, err
	}

	result, err := process(d.chunker, path, convs, strategy, maxTokens)
	if err != nil {
		return "", nil, fmt.Errorf("chunk %s: %w", path, err)
	}

	if err := chunker.CheckBudget(result.Chunks, maxTokens); err != nil {
		d.logger.Debug("budget check failed", "path", path, "error", err)
	}

	out, err := d.write(path, strategy, result)
	if err != nil {
		return "", nil, err
	}

	d.logger.Info("file processed",
		"path", path,
		"output", out,
		"strategy", strategy.String(),
		"overflow", d.Overflow().String(),
		"conversations_in", len(convs),
		"chunks", result.TotalChunks,
		"messages_out", messageCount(result.Chunks),
	)
	d.notify(ctx, result, out)
	return out, result, nil
}

func (d *Driver) write(path string, strategy chunker.Strategy, result *ProcessingResult) (string, error) {
	dir := d.OutputDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir: %w", err)
	}

	data, err := marshalIndent(result)
	if err != nil {
		return "", fmt.Errorf("marshal result: %w", err)
	}

	out := filepath.Join(dir, OutputName(path, strategy))
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", out, err)
	}
	return out, nil
}

// marshalIndent writes indented JSON without HTML escaping, matching the form
// the chunker costs records in.
func marshalIndent(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func messageCount(chunks []chunker.Chunk) int {
	n := 0
	for _, ch := range chunks {
		n += ch.MessageCount()
	}
	return n
}

func (d *Driver) notify(ctx context.Context, result *ProcessingResult, output string) {
	if d.notifier == nil {
		return
	}
	evt := ProcessedEvent{
		ID:                 uuid.NewString(),
		Source:             result.OriginalSource,
		Output:             output,
		Strategy:           result.Strategy.String(),
		MaxTokens:          result.MaxTokensPerChunk,
		TotalChunks:        result.TotalChunks,
		TotalConversations: result.TotalConversations,
		Timestamp:          time.Now().UTC(),
	}
	if err := d.notifier.Notify(ctx, evt); err != nil {
		d.logger.Warn("failed to publish processed event", "source", evt.Source, "error", err)
	}
}

// OutputName derives the result file name: <stem>_chunked_<strategy><ext>.
// Results are always JSON, so non-JSON inputs get a .json extension.
func OutputName(path string, strategy chunker.Strategy) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if DetectFormat(path) != FormatJSON || ext == "" {
		ext = ".json"
	}
	return fmt.Sprintf("%s_chunked_%s%s", stem, strategy, ext)
}

func expandHome(path string) string {
	if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
