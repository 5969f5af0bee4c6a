package search

import "testing"

func TestIRIText(t *testing.T) {
	tests := []struct {
		name string
		iri  string
		want string
	}{
		{
			name: "取井号后的局部名",
			iri:  "<http://www.w3.org/2000/01/rdf-schema#subClassOf>",
			want: "sub Class Of",
		},
		{
			name: "取斜杠后的局部名",
			iri:  "http://xmlns.com/foaf/0.1/homepage",
			want: "homepage",
		},
		{
			name: "连字符与下划线拆成空格",
			iri:  "http://example.org/vocab/birth_place-name",
			want: "birth place name",
		},
		{
			name: "驼峰拆分",
			iri:  "http://example.org/hasBirthPlace",
			want: "has Birth Place",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IRIText(tt.iri); got != tt.want {
				t.Errorf("IRIText(%q) = %q, want %q", tt.iri, got, tt.want)
			}
		})
	}
}
