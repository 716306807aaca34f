package extract

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
)

type xmlNode struct {
	name     string
	attrs    map[string]any
	text     string
	children []*xmlNode
}

// extractXML turns any XML document (UBL, ISDOC, custom exports) into a
// nested map keyed by local element names, with "@attributes" and "@text".
func extractXML(content []byte) (Result, error) {
	root, namespaces, err := parseXML(content)
	if err != nil {
		return Result{}, err
	}

	structured := map[string]any{
		root.name: root.value(),
		"_metadata": map[string]any{
			"root_element": root.name,
			"namespaces":   namespaces,
		},
	}
	var b strings.Builder
	root.render(&b, 0)

	return Result{
		Text:       strings.TrimRight(b.String(), "\n"),
		Structured: structured,
		Confidence: ptr(1),
		SourceKind: "xml",
	}, nil
}

func parseXML(content []byte) (*xmlNode, map[string]any, error) {
	dec := xml.NewDecoder(bytes.NewReader(content))
	dec.CharsetReader = func(label string, input io.Reader) (io.Reader, error) {
		enc, err := htmlindex.Get(label)
		if err != nil {
			return nil, err
		}
		return enc.NewDecoder().Reader(input), nil
	}
	namespaces := map[string]any{}

	var (
		root  *xmlNode
		stack []*xmlNode
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("XML parsing error: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			n := &xmlNode{name: t.Name.Local}
			for _, a := range t.Attr {
				switch {
				case a.Name.Space == "xmlns":
					if root == nil {
						namespaces[a.Name.Local] = a.Value
					}
				case a.Name.Space == "" && a.Name.Local == "xmlns":
					if root == nil {
						namespaces["default"] = a.Value
					}
				default:
					if n.attrs == nil {
						n.attrs = map[string]any{}
					}
					n.attrs[a.Name.Local] = a.Value
				}
			}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, n)
			} else if root == nil {
				root = n
			}
			stack = append(stack, n)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			if len(stack) > 0 {
				n := stack[len(stack)-1]
				n.text += string(t)
			}
		}
	}
	if root == nil {
		return nil, nil, errors.New("XML parsing error: no root element")
	}
	return root, namespaces, nil
}

// value renders the node body: repeated children become lists, a bare
// text leaf becomes {"@text": ...}, an empty leaf becomes nil.
func (n *xmlNode) value() any {
	out := map[string]any{}
	if n.attrs != nil {
		out["@attributes"] = n.attrs
	}
	if t := strings.TrimSpace(n.text); t != "" {
		out["@text"] = t
	}
	grouped := map[string][]any{}
	var order []string
	for _, c := range n.children {
		if _, ok := grouped[c.name]; !ok {
			order = append(order, c.name)
		}
		grouped[c.name] = append(grouped[c.name], c.value())
	}
	for _, name := range order {
		if v := grouped[name]; len(v) == 1 {
			out[name] = v[0]
		} else {
			out[name] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (n *xmlNode) render(b *strings.Builder, depth int) {
	prefix := strings.Repeat("  ", depth)
	switch t := strings.TrimSpace(n.text); {
	case t != "":
		fmt.Fprintf(b, "%s%s: %s\n", prefix, n.name, t)
	case len(n.children) == 0:
		fmt.Fprintf(b, "%s%s: (empty)\n", prefix, n.name)
	default:
		fmt.Fprintf(b, "%s%s:\n", prefix, n.name)
	}
	for _, c := range n.children {
		c.render(b, depth+1)
	}
}
