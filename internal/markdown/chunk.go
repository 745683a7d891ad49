package markdown

import (
	"regexp"
	"strings"
)

var chunkLinkExpr = regexp.MustCompile(`\[[^\]\[]*\]\([^)]*\)`)

// SplitByLinks splits cleaned markdown into at most desiredChunkCount pieces,
// dividing by markdown link count rather than by length so each piece carries
// a comparable number of candidate articles. Returns nil when the text holds
// no links at all.
//
// No link expression is ever split across two pieces, and the last piece
// absorbs the division remainder.
func SplitByLinks(text string, desiredChunkCount int) []string {
	if desiredChunkCount < 1 {
		desiredChunkCount = 1
	}

	locs := chunkLinkExpr.FindAllStringIndex(text, -1)
	totalLinks := len(locs)
	if totalLinks == 0 {
		return nil
	}

	linksPerChunk := totalLinks / desiredChunkCount
	if linksPerChunk < 1 {
		linksPerChunk = 1
	}
	chunkCount := desiredChunkCount
	if totalLinks < chunkCount {
		chunkCount = totalLinks
	}

	chunks := make([]string, 0, chunkCount)
	for i := 0; i < chunkCount; i++ {
		start := 0
		if i > 0 {
			start = locs[i*linksPerChunk][0]
		}
		end := len(text)
		if i < chunkCount-1 {
			end = locs[(i+1)*linksPerChunk][0]
		}
		piece := text[start:end]
		if strings.TrimSpace(piece) == "" {
			continue
		}
		chunks = append(chunks, piece)
	}

	if len(chunks) == 0 {
		return []string{text}
	}
	return chunks
}

// CountLinks returns the number of markdown link expressions in text.
func CountLinks(text string) int {
	return len(chunkLinkExpr.FindAllStringIndex(text, -1))
}
