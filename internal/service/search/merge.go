package search

import (
	"github.com/paul-mannino/go-fuzzywuzzy"
)

// Merge 合并两个后端的搜索结果
// 先按查询文本做模糊匹配重打分，再按得分交替归并，按 Value 去重
// 得分相同时优先取第一个列表的命中
func Merge(a, b *Result, query string) *Result {
	left := rescore(a.Hits, query)
	right := rescore(b.Hits, query)

	merged := make([]Hit, 0, len(left)+len(right))
	seen := make(map[string]struct{}, len(left)+len(right))

	appendHit := func(hit Hit) {
		if _, ok := seen[hit.Document.Value]; ok {
			return
		}
		seen[hit.Document.Value] = struct{}{}
		merged = append(merged, hit)
	}

	i, j := 0, 0
	for i < len(left) && j < len(right) {
		if left[i].Score >= right[j].Score {
			appendHit(left[i])
			i++
		} else {
			appendHit(right[j])
			j++
		}
	}
	for ; i < len(left); i++ {
		appendHit(left[i])
	}
	for ; j < len(right); j++ {
		appendHit(right[j])
	}

	return &Result{
		Count: int64(len(merged)),
		Hits:  merged,
	}
}

// rescore 用部分匹配比率替换后端各自的打分，使两路结果可比
func rescore(hits []Hit, query string) []Hit {
	rescored := make([]Hit, len(hits))
	for i, hit := range hits {
		hit.Score = float64(fuzzy.PartialRatio(query, hit.Document.SearchableText())) / 100.0
		rescored[i] = hit
	}
	return rescored
}
