// Package arch parses XML form views into model.ViewNode trees.
package arch

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/goliatone/go-formfuzz/pkg/model"
)

// ErrEmptyArch is returned when the source holds no root element.
var ErrEmptyArch = errors.New("arch: no root element")

// Parse reads an arch such as
//
//	<form><sheet><group><field name="name" required="1"/></group></sheet></form>
//
// into a node tree. Character data and comments are dropped; only elements
// and their attributes are kept.
func Parse(src string) (*model.ViewNode, error) {
	dec := xml.NewDecoder(strings.NewReader(src))
	dec.Strict = true

	var (
		root  *model.ViewNode
		stack []*model.ViewNode
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("arch: %w", err)
		}
		switch el := tok.(type) {
		case xml.StartElement:
			node := &model.ViewNode{Tag: el.Name.Local}
			if len(el.Attr) > 0 {
				node.Attrs = make(map[string]string, len(el.Attr))
				for _, attr := range el.Attr {
					node.Attrs[attr.Name.Local] = attr.Value
				}
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, fmt.Errorf("arch: multiple root elements (<%s> after <%s>)", node.Tag, root.Tag)
				}
				root = node
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, node)
			}
			stack = append(stack, node)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		}
	}
	if root == nil {
		return nil, ErrEmptyArch
	}
	return root, nil
}

// MustParse panics when src is not a valid arch. Intended for fixtures.
func MustParse(src string) *model.ViewNode {
	node, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return node
}
