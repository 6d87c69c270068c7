package recipe

import (
	"regexp"
	"strings"

	"recipe-importer/internal/pkg/common"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
)

var (
	// 連字號、破折號、斜線視為字詞分隔
	titleSeparatorPattern = regexp.MustCompile(`[-‐‑‒–—―/]+`)
	titlePunctPattern     = regexp.MustCompile(`[^\p{L}\p{N}_\s]+`)
	titleSpacePattern     = regexp.MustCompile(`\s+`)
)

// NormalizeTitle 去重用的標題鍵：小寫、去標點、合併空白
func NormalizeTitle(title string) string {
	s := norm.NFKC.String(title)
	s = strings.ToLower(s)
	s = titleSeparatorPattern.ReplaceAllString(s, " ")
	s = titlePunctPattern.ReplaceAllString(s, "")
	s = titleSpacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Dedupe 依到達順序保留每個標題鍵的第一筆
func Dedupe(candidates []CandidateRecipe) []CandidateRecipe {
	seen := make(map[string]struct{}, len(candidates))
	out := make([]CandidateRecipe, 0, len(candidates))

	for _, c := range candidates {
		key := NormalizeTitle(c.Title)
		if _, dup := seen[key]; dup {
			common.LogDebug("重複食譜已略過", zap.String("title", c.Title), zap.String("key", key))
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out
}
