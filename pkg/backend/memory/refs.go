package memory

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-formfuzz/pkg/domain"
	"github.com/goliatone/go-formfuzz/pkg/model"
)

// ErrUnboundReference reports a domain that reads a field its form does not
// declare.
var ErrUnboundReference = errors.New("memory: domain references unknown field")

// contextRefs are names a server binds from the session rather than the
// record.
var contextRefs = map[string]bool{"uid": true, "active_id": true, "context": true}

// checkDomainRefs parses every leaf domain of view and verifies each
// reference resolves to a field of the form, or of its parent form for
// parent.* references. The parent is nil for top-level views.
func checkDomainRefs(view, parent *model.FormView) error {
	return checkNodeRefs(view, parent, view.Arch)
}

func checkNodeRefs(view, parent *model.FormView, node *model.ViewNode) error {
	if node == nil {
		return nil
	}
	if !node.IsField() {
		for _, child := range node.Children {
			if err := checkNodeRefs(view, parent, child); err != nil {
				return err
			}
		}
		return nil
	}

	name := node.Name()
	d, err := domain.Parse(node.Attr("domain"))
	if err != nil {
		return fmt.Errorf("field %q domain: %w", name, err)
	}
	for _, ref := range d.References() {
		if !refBound(view, parent, ref) {
			return fmt.Errorf("%w: field %q reads %q", ErrUnboundReference, name, ref)
		}
	}
	if node.SubView != nil {
		return checkNodeRefs(node.SubView, view, node.SubView.Arch)
	}
	return nil
}

func refBound(view, parent *model.FormView, ref string) bool {
	head, rest, _ := strings.Cut(ref, ".")
	if contextRefs[head] {
		return true
	}
	if head == "parent" {
		if parent == nil {
			// Opened on its own the form has no parent; the reference binds
			// to nil.
			return true
		}
		head, _, _ = strings.Cut(rest, ".")
		_, ok := parent.Field(head)
		return ok
	}
	_, ok := view.Field(head)
	return ok
}
