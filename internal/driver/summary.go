package driver

import (
	"fmt"
	"path/filepath"
	"strings"
)

// FormatSummary renders the human-readable report printed after a run.
func FormatSummary(output string, result *ProcessingResult) string {
	var sb strings.Builder
	if output != "" {
		fmt.Fprintf(&sb, "Processed file saved to: %s\n", output)
	}

	sb.WriteString("\n=== Processing Summary ===\n")
	fmt.Fprintf(&sb, "Chunking Strategy: %s\n", result.Strategy)
	fmt.Fprintf(&sb, "Max Tokens Per Chunk: %d\n", result.MaxTokensPerChunk)
	fmt.Fprintf(&sb, "Total Chunks: %d\n", result.TotalChunks)
	fmt.Fprintf(&sb, "Total Conversations: %d\n", result.TotalConversations)

	sb.WriteString("\n=== Chunk Details ===\n")
	for i, ch := range result.Chunks {
		fmt.Fprintf(&sb, "Chunk %d: %d conversations, %d tokens\n", i+1, len(ch.Conversations), ch.TokenCount)
	}
	return sb.String()
}

// FormatBatchSummary renders one line per file followed by totals.
func FormatBatchSummary(report *BatchReport) string {
	var sb strings.Builder
	sb.WriteString("=== Batch Summary ===\n")

	chunks, convs := 0, 0
	for _, f := range report.Files {
		name := filepath.Base(f.Path)
		if f.Err != nil {
			fmt.Fprintf(&sb, "  - %s: FAILED (%v)\n", name, f.Err)
			continue
		}
		if f.Skipped {
			fmt.Fprintf(&sb, "  - %s -> %s: skipped (unchanged)\n", name, filepath.Base(f.Output))
			continue
		}
		if f.Result == nil {
			continue
		}
		chunks += f.Result.TotalChunks
		convs += f.Result.TotalConversations
		fmt.Fprintf(&sb, "  - %s -> %s: %d chunks, %d conversations\n",
			name, filepath.Base(f.Output), f.Result.TotalChunks, f.Result.TotalConversations)
	}

	fmt.Fprintf(&sb, "\nFiles: %d ok, %d failed\n", report.Succeeded(), len(report.Failed()))
	if n := report.Skipped(); n > 0 {
		fmt.Fprintf(&sb, "Skipped: %d unchanged\n", n)
	}
	fmt.Fprintf(&sb, "Chunks: %d\n", chunks)
	fmt.Fprintf(&sb, "Conversations: %d\n", convs)
	return sb.String()
}
