package inspect

import (
	"errors"
	"fmt"
	"time"

	"github.com/gridlink/tagbridge/pkg/model"
	"github.com/gridlink/tagbridge/pkg/store"
	"github.com/gridlink/tagbridge/pkg/tag"
)

// Inspector errors.
var (
	ErrFolderNotFound = errors.New("folder not found")
	ErrNodeNotFound   = errors.New("node not found")
)

// Store is the store view the inspector needs. *store.Store satisfies it.
type Store interface {
	store.Reader
	ListTags() []string
}

// Inspector resolves paths against an address space and its store.
type Inspector struct {
	space *model.AddressSpace
	store Store
	now   func() time.Time
}

// NewInspector creates a new Inspector. st may be nil, in which case
// store comparisons report the store entry as absent.
func NewInspector(space *model.AddressSpace, st Store) *Inspector {
	return &Inspector{space: space, store: st, now: time.Now}
}

// AddressSpace returns the inspected address space.
func (i *Inspector) AddressSpace() *model.AddressSpace {
	return i.space
}

// Tree represents the address space structure for display.
type Tree struct {
	Namespace uint16
	Folders   []FolderInfo
}

// FolderInfo represents a folder for display.
type FolderInfo struct {
	Name  string
	ID    model.NodeID
	Nodes []model.NodeSnapshot
}

// InspectSpace returns the complete address space tree.
func (i *Inspector) InspectSpace() *Tree {
	tree := &Tree{Namespace: i.space.Namespace()}
	for _, f := range i.space.Folders() {
		tree.Folders = append(tree.Folders, folderInfo(f))
	}
	return tree
}

// InspectFolder returns one folder.
func (i *Inspector) InspectFolder(name string) (*FolderInfo, error) {
	f, ok := i.space.Folder(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFolderNotFound, name)
	}
	info := folderInfo(f)
	return &info, nil
}

func folderInfo(f *model.Folder) FolderInfo {
	nodes := f.Nodes()
	info := FolderInfo{Name: f.Name(), ID: f.ID(), Nodes: make([]model.NodeSnapshot, len(nodes))}
	for j, n := range nodes {
		info.Nodes[j] = n.Snapshot()
	}
	return info
}

// Resolve returns the node a path refers to.
func (i *Inspector) Resolve(p *Path) (*model.Node, error) {
	if p.IsPartial {
		return nil, fmt.Errorf("%w: %s is a folder", ErrNodeNotFound, p.Raw)
	}

	// A tag ID containing "/" is matched as a whole first.
	if n, err := i.space.Node(p.Raw); err == nil {
		return n, nil
	}

	if p.NodeID != nil && p.NodeID.Namespace != i.space.Namespace() {
		return nil, fmt.Errorf("%w: %s (namespace %d)", ErrNodeNotFound, p.Raw, i.space.Namespace())
	}
	n, err := i.space.Node(p.TagID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, p.Raw)
	}
	if p.Folder != "" && n.Folder().Name() != p.Folder {
		return nil, fmt.Errorf("%w: %s is in folder %s", ErrNodeNotFound, p.TagID, n.Folder().Name())
	}
	return n, nil
}

// ResolveString parses and resolves a path in one step.
func (i *Inspector) ResolveString(s string) (*model.Node, error) {
	p, err := ParsePath(s)
	if err != nil {
		return nil, err
	}
	return i.Resolve(p)
}

// Comparison shows a node next to the store entry it is bound to.
type Comparison struct {
	Node    model.NodeSnapshot
	Stored  tag.Sample
	InStore bool

	// InSync is true when the node holds the stored sample.
	InSync bool

	// Age is the time since the node's server timestamp.
	Age time.Duration
}

// Compare reads the node and its store entry.
func (i *Inspector) Compare(n *model.Node) Comparison {
	c := Comparison{Node: n.Snapshot()}
	if i.store != nil {
		c.Stored, c.InStore = i.store.Get(n.TagID())
	}
	c.InSync = c.InStore && !n.Differs(c.Stored)
	c.Age = i.now().Sub(c.Node.ServerTimestamp)
	return c
}

// Unbound returns the store tags that no node is bound to, such as
// updates for tags the source delivers unasked.
func (i *Inspector) Unbound() []string {
	if i.store == nil {
		return nil
	}
	var result []string
	for _, id := range i.store.ListTags() {
		if _, err := i.space.Node(id); err != nil {
			result = append(result, id)
		}
	}
	return result
}
