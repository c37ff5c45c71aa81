package lucene

import (
	"net/url"
	"strings"
)

// Param is one request parameter. Solr parameters repeat, so order matters.
type Param struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type Params []Param

func (p *Params) Add(name, value string) {
	*p = append(*p, Param{Name: name, Value: value})
}

// Get returns the first value of name.
func (p Params) Get(name string) string {
	for _, x := range p {
		if x.Name == name {
			return x.Value
		}
	}
	return ""
}

func (p Params) All(name string) []string {
	var out []string
	for _, x := range p {
		if x.Name == name {
			out = append(out, x.Value)
		}
	}
	return out
}

// Encode renders a URL query string keeping parameter order.
func (p Params) Encode() string {
	parts := make([]string, len(p))
	for i, x := range p {
		parts[i] = url.QueryEscape(x.Name) + "=" + url.QueryEscape(x.Value)
	}
	return strings.Join(parts, "&")
}

// String lists one name=value pair per line.
func (p Params) String() string {
	var sb strings.Builder
	for _, x := range p {
		sb.WriteString(x.Name)
		sb.WriteByte('=')
		sb.WriteString(x.Value)
		sb.WriteByte('\n')
	}
	return sb.String()
}
