package rag

import (
	"context"
	"fmt"
)

// compressPrompt asks for at most five paraphrased bullet points covering
// named entities and practical facts, in Japanese, capped at 400 characters,
// with verbatim reproduction explicitly forbidden.
const compressPrompt = "以下の観光記事テキストから、固有名詞と実用情報（場所・体験・時期・所要時間・注意点）を日本語で5点以内に簡潔要約してください。\n**原文の連続した引用は禁止。必ず言い換え・要約で**。最大400字。\n\n"

// compressChunk rewrites a chunk into a short bullet summary before it is
// handed downstream. This is a no-verbatim-redistribution requirement of the
// content source, not an optimization, so it runs even when the chunk is
// already short.
func (r *RAG) compressChunk(ctx context.Context, text string) (string, error) {
	limit := r.cfg.CompressInputChars
	if limit <= 0 {
		limit = 4000
	}
	summary, err := r.generator.Generate(ctx, compressPrompt+truncateRunes(text, limit))
	if err != nil {
		return "", fmt.Errorf("generate chunk summary: %w", err)
	}
	if summary == "" {
		return "", fmt.Errorf("generator returned an empty summary")
	}
	return summary, nil
}
