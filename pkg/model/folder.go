package model

import "sync"

// Folder groups nodes below the address space root.
type Folder struct {
	mu sync.RWMutex

	id    NodeID
	name  string
	nodes []*Node
}

func newFolder(namespace uint16, name string) *Folder {
	return &Folder{
		id:   NodeID{Namespace: namespace, Name: name},
		name: name,
	}
}

// ID returns the folder node ID.
func (f *Folder) ID() NodeID { return f.id }

// Name returns the folder name.
func (f *Folder) Name() string { return f.name }

// Nodes returns the folder's nodes in creation order.
func (f *Folder) Nodes() []*Node {
	f.mu.RLock()
	defer f.mu.RUnlock()
	result := make([]*Node, len(f.nodes))
	copy(result, f.nodes)
	return result
}

// NodeCount returns the number of nodes in the folder.
func (f *Folder) NodeCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.nodes)
}

func (f *Folder) addNode(n *Node) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nodes = append(f.nodes, n)
}
