package terms

import "fmt"

// 词项导出查询
// 子查询按出现次数聚合并过滤低频词，外层补充英文 rdfs:label、
// rdfs:comment 和 rdf:type
// 宾语位置排除 label 边，避免把标签文本当作词项

const subjectQueryTpl = `PREFIX rdf: <http://www.w3.org/1999/02/22-rdf-syntax-ns#>
PREFIX rdfs: <http://www.w3.org/2000/01/rdf-schema#>
SELECT ?iri ?count (STR(?label_raw) AS ?label) (STR(?comment_raw) AS ?description) ?type WHERE {
  {
    SELECT ?iri (COUNT(*) AS ?count) WHERE { ?iri ?p ?o }
    GROUP BY ?iri HAVING (COUNT(*) > %d)
  }
  OPTIONAL { ?iri rdfs:label ?label_raw FILTER(STRSTARTS(LANG(?label_raw), "en")) }
  OPTIONAL { ?iri rdfs:comment ?comment_raw FILTER(STRSTARTS(LANG(?comment_raw), "en")) }
  OPTIONAL { ?iri rdf:type ?type }
}`

const predicateQueryTpl = `PREFIX rdf: <http://www.w3.org/1999/02/22-rdf-syntax-ns#>
PREFIX rdfs: <http://www.w3.org/2000/01/rdf-schema#>
SELECT ?iri ?count (STR(?label_raw) AS ?label) (STR(?comment_raw) AS ?description) ?type WHERE {
  {
    SELECT ?iri (COUNT(*) AS ?count) WHERE { ?s ?iri ?o }
    GROUP BY ?iri HAVING (COUNT(*) > %d)
  }
  OPTIONAL { ?iri rdfs:label ?label_raw FILTER(STRSTARTS(LANG(?label_raw), "en")) }
  OPTIONAL { ?iri rdfs:comment ?comment_raw FILTER(STRSTARTS(LANG(?comment_raw), "en")) }
  OPTIONAL { ?iri rdf:type ?type }
}`

const objectQueryTpl = `PREFIX rdf: <http://www.w3.org/1999/02/22-rdf-syntax-ns#>
PREFIX rdfs: <http://www.w3.org/2000/01/rdf-schema#>
SELECT ?iri ?count (STR(?label_raw) AS ?label) (STR(?comment_raw) AS ?description) ?type WHERE {
  {
    SELECT ?iri (COUNT(*) AS ?count) WHERE { ?s ?p ?iri FILTER(?p != rdfs:label) }
    GROUP BY ?iri HAVING (COUNT(*) > %d)
  }
  OPTIONAL { ?iri rdfs:label ?label_raw FILTER(STRSTARTS(LANG(?label_raw), "en")) }
  OPTIONAL { ?iri rdfs:comment ?comment_raw FILTER(STRSTARTS(LANG(?comment_raw), "en")) }
  OPTIONAL { ?iri rdf:type ?type }
}`

// exportQuery 返回指定位置的导出查询，pos 取 0/1/2
func exportQuery(pos, minCount int) string {
	switch pos {
	case 1:
		return fmt.Sprintf(predicateQueryTpl, minCount)
	case 2:
		return fmt.Sprintf(objectQueryTpl, minCount)
	default:
		return fmt.Sprintf(subjectQueryTpl, minCount)
	}
}
