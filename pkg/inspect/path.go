// Package inspect resolves and formats address space nodes for display.
//
// The inspect package offers a unified interface for:
//   - Parsing path expressions ("numeric.random.double", "DA_Data/numeric.random.double"
//     or "ns=2;s=numeric.random.double")
//   - Resolving paths to folders and nodes
//   - Comparing a node with the store entry it is bound to
//   - Formatting output for display
package inspect

import (
	"errors"
	"strings"

	"github.com/gridlink/tagbridge/pkg/model"
)

// Path errors.
var (
	ErrEmptyPath   = errors.New("empty path")
	ErrInvalidPath = errors.New("invalid path format")
)

// Path represents a parsed inspection path.
// Format: tagID, folder/tagID, folder/ or ns=<n>;s=<tagID>
type Path struct {
	// Folder is the folder name (empty when not given).
	Folder string

	// TagID is the tag (empty for a folder path).
	TagID string

	// NodeID is set when the path was given as a node ID.
	NodeID *model.NodeID

	// IsPartial indicates the path names a folder, not a node.
	IsPartial bool

	// Raw stores the original input string.
	Raw string
}

// ParsePath parses a path string into a Path struct.
//
// Supported formats:
//   - "tag" - a tag ID
//   - "folder/tag" - a tag ID within a folder
//   - "folder/" - partial (for listing a folder)
//   - "ns=2;s=tag" - a node ID
//
// A tag ID that itself contains "/" is split at the first slash; the
// inspector falls back to the whole input as a tag ID.
func ParsePath(s string) (*Path, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrEmptyPath
	}
	p := &Path{Raw: s}

	if strings.HasPrefix(s, "ns=") {
		id, err := model.ParseNodeID(s)
		if err != nil {
			return nil, errors.Join(ErrInvalidPath, err)
		}
		p.NodeID = &id
		p.TagID = id.Name
		return p, nil
	}

	folder, rest, found := strings.Cut(s, "/")
	if !found {
		p.TagID = s
		return p, nil
	}
	if folder == "" {
		return nil, ErrInvalidPath
	}
	p.Folder = folder
	p.TagID = rest
	p.IsPartial = rest == ""
	return p, nil
}

// String returns the canonical path.
func (p *Path) String() string {
	switch {
	case p.NodeID != nil:
		return p.NodeID.String()
	case p.Folder == "":
		return p.TagID
	default:
		return p.Folder + "/" + p.TagID
	}
}
