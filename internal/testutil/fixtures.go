package testutil

import (
	"fmt"
	"strings"
)

// SparqlCountJSON 构造 COUNT 查询的 sparql-results+json 响应体
func SparqlCountJSON(count int64) string {
	return fmt.Sprintf(`{
		"head": {"vars": ["count"]},
		"results": {"bindings": [{"count": {"type": "literal", "value": "%d"}}]}
	}`, count)
}

// TermExportTSV 构造词项导出结果
// rows 为 "iri\tcount\tlabel[\tdescription\ttype]" 形式，尾列可省略
func TermExportTSV(rows ...string) string {
	lines := append([]string{"?iri\t?count\t?label\t?description\t?type"}, rows...)
	return strings.Join(lines, "\n") + "\n"
}
