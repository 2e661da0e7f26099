// Package eowcs implements the EO-WCS 2.0 client: building
// GetCapabilities/DescribeEOCoverageSet/GetCoverage request URLs and
// extracting the handful of metadata fields the ingestion logic needs
// from the XML responses. Ported from ie_xml_parser.py.
package eowcs

import (
	"encoding/xml"
	"io"
	"strings"
)

// node is a minimal generic XML tree, standing in for Python's
// ElementTree.Element: a tag, its attributes, text content and
// children in document order. ie_xml_parser.py's is_nc_tag tolerates
// any namespace prefix and matches on local name alone, so this tree
// indexes children by local name rather than by fully-qualified name.
type node struct {
	Local string
	Attrs map[string]string
	Text  string
	Kids  []*node
}

// parseTree decodes r into a node tree rooted at the document element.
func parseTree(r io.Reader) (*node, error) {
	dec := xml.NewDecoder(r)
	var stack []*node
	var root *node
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			n := &node{Local: t.Name.Local, Attrs: map[string]string{}}
			for _, a := range t.Attr {
				n.Attrs[a.Name.Local] = a.Value
			}
			if len(stack) > 0 {
				top := stack[len(stack)-1]
				top.Kids = append(top.Kids, n)
			} else {
				root = n
			}
			stack = append(stack, n)
		case xml.CharData:
			if len(stack) > 0 {
				top := stack[len(stack)-1]
				top.Text += string(t)
			}
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}
	return root, nil
}

// find returns the first descendant reached by following path (a
// sequence of local element names), or nil. Mirrors
// ElementTree.find("./a/b/c").
func (n *node) find(path ...string) *node {
	cur := n
	for _, seg := range path {
		cur = cur.child(seg)
		if cur == nil {
			return nil
		}
	}
	return cur
}

func (n *node) child(local string) *node {
	for _, k := range n.Kids {
		if k.Local == local {
			return k
		}
	}
	return nil
}

// findAll returns every direct child matching local, mirroring
// ElementTree.findall("./local").
func (n *node) findAll(local string) []*node {
	var out []*node
	for _, k := range n.Kids {
		if k.Local == local {
			out = append(out, k)
		}
	}
	return out
}

func (n *node) text() string {
	return strings.TrimSpace(n.Text)
}

// descendants collects every descendant (not including n itself)
// matching local, mirroring ElementTree.findall(".//local").
func (n *node) descendants(local string) []*node {
	var out []*node
	for _, k := range n.Kids {
		if k.Local == local {
			out = append(out, k)
		}
		out = append(out, k.descendants(local)...)
	}
	return out
}

// findAllPath resolves a custom-condition xpath like
// "a/b" (ElementTree's ".//a/b": any descendant "a", then direct
// children "b" of each match), mirroring check_custom_conditions'
// cd.findall(".//"+xpath) call.
func (n *node) findAllPath(path []string) []*node {
	if len(path) == 0 {
		return nil
	}
	cur := n.descendants(path[0])
	for _, seg := range path[1:] {
		var next []*node
		for _, c := range cur {
			next = append(next, c.findAll(seg)...)
		}
		cur = next
	}
	return cur
}

// isException mirrors tree_is_exception/is_nc_tag against the OWS
// ExceptionReport root element.
func (n *node) isException() bool {
	return n != nil && n.Local == exceptionTag
}
