package model

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// Address space errors.
var (
	ErrDuplicateTag       = errors.New("duplicate tag ID")
	ErrInvalidDeclaration = errors.New("invalid tag declaration")
	ErrSealed             = errors.New("address space is sealed")
	ErrNodeNotFound       = errors.New("node not found")
)

// DefaultNamespace is the namespace index used for bridged nodes.
const DefaultNamespace uint16 = 2

// DefaultFolder is the folder bridged nodes are placed in when a
// declaration does not name one.
const DefaultFolder = "DA_Data"

// AddressSpace is the ordered collection of folders and nodes exposed
// northbound. It is populated once and then sealed.
type AddressSpace struct {
	mu sync.RWMutex

	namespace uint16

	folders     []*Folder
	folderIndex map[string]*Folder

	nodes     []*Node
	nodeIndex map[string]*Node

	sealed bool

	// now returns the time used for initial server timestamps.
	now func() time.Time
}

// NewAddressSpace creates an empty address space for the namespace index.
func NewAddressSpace(namespace uint16) *AddressSpace {
	return &AddressSpace{
		namespace:   namespace,
		folderIndex: make(map[string]*Folder),
		nodeIndex:   make(map[string]*Node),
		now:         time.Now,
	}
}

// Namespace returns the namespace index.
func (s *AddressSpace) Namespace() uint16 {
	return s.namespace
}

// Sealed returns true once synthesis has completed.
func (s *AddressSpace) Sealed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sealed
}

// Seal freezes the address space.
func (s *AddressSpace) Seal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sealed = true
}

// Folders returns all folders in creation order.
func (s *AddressSpace) Folders() []*Folder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*Folder, len(s.folders))
	copy(result, s.folders)
	return result
}

// Folder returns a folder by name.
func (s *AddressSpace) Folder(name string) (*Folder, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.folderIndex[name]
	return f, ok
}

// Nodes returns all nodes in creation order.
func (s *AddressSpace) Nodes() []*Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*Node, len(s.nodes))
	copy(result, s.nodes)
	return result
}

// NodeCount returns the number of nodes.
func (s *AddressSpace) NodeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// Node returns the node bound to tagID.
func (s *AddressSpace) Node(tagID string) (*Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodeIndex[tagID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, tagID)
	}
	return n, nil
}

// AddNode creates a node in the named folder, creating the folder if needed.
func (s *AddressSpace) AddNode(decl TagDecl) (*Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sealed {
		return nil, ErrSealed
	}
	if err := decl.validate(); err != nil {
		return nil, err
	}
	if _, exists := s.nodeIndex[decl.ID]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateTag, decl.ID)
	}
	return s.addNodeLocked(decl), nil
}

// addNodeLocked creates the node. Caller holds s.mu and has validated decl.
func (s *AddressSpace) addNodeLocked(decl TagDecl) *Node {
	folderName := decl.Folder
	if folderName == "" {
		folderName = DefaultFolder
	}
	folder, ok := s.folderIndex[folderName]
	if !ok {
		folder = newFolder(s.namespace, folderName)
		s.folderIndex[folderName] = folder
		s.folders = append(s.folders, folder)
	}

	display := decl.DisplayName
	if display == "" {
		display = decl.ID
	}
	access := decl.Access
	if access == 0 {
		access = AccessReadOnly
	}

	meta := &NodeMetadata{
		ID:          NodeID{Namespace: s.namespace, Name: decl.ID},
		TagID:       decl.ID,
		BrowseName:  decl.ID,
		DisplayName: display,
		Type:        decl.Type,
		Access:      access,
	}
	node := newNode(meta, folder, s.now())
	folder.addNode(node)
	s.nodes = append(s.nodes, node)
	s.nodeIndex[decl.ID] = node
	return node
}
