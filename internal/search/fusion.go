package search

import (
	"cmp"
	"slices"

	"github.com/hyperjump/shiori/internal/keyword"
	"github.com/hyperjump/shiori/internal/models"
)

// ArticleScore holds an article URL with its fused catalogue and semantic scores.
type ArticleScore struct {
	URL           string
	Score         float64
	KeywordScore  float64
	SemanticScore float64
}

// NormalizeKeywordScores scales catalogue scores to [0,1] by the best hit.
func NormalizeKeywordScores(results []*keyword.KeywordResult) map[string]float64 {
	normalized := make(map[string]float64, len(results))
	if len(results) == 0 {
		return normalized
	}
	maxScore := results[0].Score
	for _, r := range results {
		maxScore = max(maxScore, r.Score)
	}
	for _, r := range results {
		if maxScore > 0 {
			normalized[r.URL] = r.Score / maxScore
		} else {
			normalized[r.URL] = 0
		}
	}
	return normalized
}

// AggregateMatchesByArticle keeps the best chunk similarity per article URL.
// Cosine scores below zero count as zero.
func AggregateMatchesByArticle(matches []models.Match) map[string]float64 {
	byURL := make(map[string]float64)
	for _, m := range matches {
		url := m.Metadata.URL
		if url == "" {
			continue
		}
		score := max(m.Score, 0)
		if s, ok := byURL[url]; !ok || score > s {
			byURL[url] = score
		}
	}
	return byURL
}

// Fuse merges keyword and semantic score maps with weights, best first. Ties
// are broken by URL so results are stable.
func Fuse(keywordScores, semanticScores map[string]float64, keywordWeight, semanticWeight float64) []*ArticleScore {
	scoreMap := make(map[string]*ArticleScore)
	for url, score := range keywordScores {
		scoreMap[url] = &ArticleScore{URL: url, KeywordScore: score}
	}
	for url, score := range semanticScores {
		if result, exists := scoreMap[url]; exists {
			result.SemanticScore = score
		} else {
			scoreMap[url] = &ArticleScore{URL: url, SemanticScore: score}
		}
	}
	results := make([]*ArticleScore, 0, len(scoreMap))
	for _, result := range scoreMap {
		result.Score = keywordWeight*result.KeywordScore + semanticWeight*result.SemanticScore
		results = append(results, result)
	}
	slices.SortFunc(results, func(a, b *ArticleScore) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.URL, b.URL)
	})
	return results
}
