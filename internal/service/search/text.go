package search

import (
	"regexp"
	"strings"
)

var (
	iriSeparatorRe = regexp.MustCompile(`[-_#]`)
	camelCaseRe    = regexp.MustCompile(`([a-z0-9])([A-Z])`)
)

// IRIText 把 IRI 转成可搜索文本：取局部名，拆分连字符与驼峰
func IRIText(iri string) string {
	text := strings.TrimPrefix(strings.TrimSuffix(iri, ">"), "<")
	if idx := strings.LastIndexAny(text, "/#"); idx >= 0 && idx+1 < len(text) {
		text = text[idx+1:]
	}
	text = iriSeparatorRe.ReplaceAllString(text, " ")
	text = camelCaseRe.ReplaceAllString(text, "$1 $2")
	return strings.TrimSpace(text)
}
