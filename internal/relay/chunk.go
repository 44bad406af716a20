package relay

import "strings"

// ChunkText splits text into pieces no longer than limit, preferring to
// break at a newline, then at a space, before falling back to a hard cut.
// A newline break is only taken when it keeps at least half of the limit,
// a space break when it keeps at least 30%, so chunks never degenerate
// into slivers.
func ChunkText(text string, limit int) []string {
	if limit <= 0 {
		limit = DefaultChunkLimit
	}
	if text == "" {
		return nil
	}

	var chunks []string
	remaining := text

	for len(remaining) > limit {
		window := remaining[:limit]

		cut := limit
		if idx := strings.LastIndex(window, "\n"); idx > limit/2 {
			cut = idx
		} else if idx := strings.LastIndex(window, " "); idx > limit*3/10 {
			cut = idx
		}

		chunks = append(chunks, remaining[:cut])
		remaining = strings.TrimLeft(remaining[cut:], " \n\t\r")
	}

	if remaining != "" {
		chunks = append(chunks, remaining)
	}

	return chunks
}
