package rag

// Chunk splits text into fixed-size overlapping windows over the rune
// sequence: window i covers [i, i+size) and the next window starts at
// i + size - overlap. Text shorter than size yields a single chunk equal to
// the full text. Callers must guarantee overlap < size so the window always
// makes forward progress.
func Chunk(text string, size, overlap int) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	if size <= 0 || len(runes) <= size {
		return []string{text}
	}

	step := size - overlap
	var chunks []string
	for i := 0; i < len(runes); i += step {
		end := min(i+size, len(runes))
		chunks = append(chunks, string(runes[i:end]))
	}
	return chunks
}
