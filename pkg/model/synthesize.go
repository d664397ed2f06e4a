package model

import (
	"fmt"

	"github.com/gridlink/tagbridge/pkg/tag"
)

// TagDecl declares one tag to expose as a node.
type TagDecl struct {
	// ID is the tag identifier and the node ID name.
	ID string

	// Type is the declared data type.
	Type DataType

	// Folder is the containing folder (DefaultFolder if empty).
	Folder string

	// DisplayName defaults to ID.
	DisplayName string

	// Access defaults to AccessReadOnly.
	Access Access
}

func (d TagDecl) validate() error {
	if d.ID == "" {
		return fmt.Errorf("%w: empty tag ID", ErrInvalidDeclaration)
	}
	if d.Type.Kind() == tag.KindInvalid {
		return fmt.Errorf("%w: tag %s has no data type", ErrInvalidDeclaration, d.ID)
	}
	return nil
}

// Synthesize creates one node per declaration and seals the address space.
//
// The declarations are validated as a whole before the first node is
// created: a duplicate ID or an invalid declaration leaves the address
// space untouched and returns an error wrapping ErrDuplicateTag or
// ErrInvalidDeclaration. Such errors are configuration errors and must
// stop startup.
func Synthesize(space *AddressSpace, decls []TagDecl) ([]*Node, error) {
	space.mu.Lock()
	defer space.mu.Unlock()

	if space.sealed {
		return nil, ErrSealed
	}

	seen := make(map[string]struct{}, len(decls))
	for _, d := range decls {
		if err := d.validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[d.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTag, d.ID)
		}
		if _, exists := space.nodeIndex[d.ID]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTag, d.ID)
		}
		seen[d.ID] = struct{}{}
	}

	nodes := make([]*Node, 0, len(decls))
	for _, d := range decls {
		nodes = append(nodes, space.addNodeLocked(d))
	}
	space.sealed = true
	return nodes, nil
}
