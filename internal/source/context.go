package source

import (
	"github.com/oldnordic/llmgrep/pkg/types"
)

// ContextWindow returns up to n lines around the 1-based inclusive range
// [startLine, endLine]. n is clamped to types.MaxContextLines. Truncated is
// set when the clamp applied or either side has fewer than n lines.
func ContextWindow(lines []string, startLine, endLine, n int) *types.ContextLines {
	if startLine < 1 || startLine > len(lines) {
		return nil
	}
	if endLine < startLine {
		endLine = startLine
	}
	if endLine > len(lines) {
		endLine = len(lines)
	}

	window := &types.ContextLines{}
	if n > types.MaxContextLines {
		n = types.MaxContextLines
		window.Truncated = true
	}
	if n < 0 {
		n = 0
	}

	first := startLine - 1
	before := first - n
	if before < 0 {
		before = 0
		window.Truncated = true
	}
	after := endLine + n
	if after > len(lines) {
		after = len(lines)
		window.Truncated = true
	}

	window.Before = copyLines(lines[before:first])
	window.Lines = copyLines(lines[first:endLine])
	window.After = copyLines(lines[endLine:after])
	return window
}

func copyLines(lines []string) []string {
	out := make([]string, len(lines))
	copy(out, lines)
	return out
}

// SnippetFromChunk caps a pre-extracted chunk at maxBytes
func SnippetFromChunk(chunk *types.CodeChunk, maxBytes int) *types.Snippet {
	snippet := &types.Snippet{
		Content:     chunk.Content,
		ContentHash: chunk.ContentHash,
		Source:      "chunk",
	}
	if maxBytes > 0 && len(chunk.Content) > maxBytes {
		if capped, err := SafeSlice([]byte(chunk.Content), 0, maxBytes); err == nil {
			snippet.Content = capped
		} else {
			snippet.Content = ""
		}
		snippet.Truncated = true
	}
	return snippet
}

// SnippetFromFile extracts [start, end) of data, capped at maxBytes
func SnippetFromFile(data []byte, start, end, maxBytes int) (*types.Snippet, error) {
	truncated := false
	if maxBytes > 0 && end-start > maxBytes {
		end = start + maxBytes
		truncated = true
	}
	content, err := SafeSlice(data, start, end)
	if err != nil {
		return nil, err
	}
	return &types.Snippet{Content: content, Source: "file", Truncated: truncated}, nil
}
