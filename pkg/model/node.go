package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gridlink/tagbridge/pkg/tag"
)

// Node errors.
var (
	ErrNodeValueType  = errors.New("invalid value type for node")
	ErrNodeOutOfRange = errors.New("value out of range for node")
	ErrInvalidNodeID  = errors.New("invalid node ID")
)

// NodeID identifies a node within the address space.
type NodeID struct {
	Namespace uint16
	Name      string
}

// String returns the node ID in "ns=<n>;s=<name>" form.
func (id NodeID) String() string {
	return fmt.Sprintf("ns=%d;s=%s", id.Namespace, id.Name)
}

// ParseNodeID parses a node ID in "ns=<n>;s=<name>" form.
func ParseNodeID(s string) (NodeID, error) {
	nsPart, name, ok := strings.Cut(s, ";s=")
	if !ok || !strings.HasPrefix(nsPart, "ns=") || name == "" {
		return NodeID{}, fmt.Errorf("%w: %q", ErrInvalidNodeID, s)
	}
	ns, err := strconv.ParseUint(strings.TrimPrefix(nsPart, "ns="), 10, 16)
	if err != nil {
		return NodeID{}, fmt.Errorf("%w: %q", ErrInvalidNodeID, s)
	}
	return NodeID{Namespace: uint16(ns), Name: name}, nil
}

// NodeMetadata describes a node. It is fixed at creation.
type NodeMetadata struct {
	// ID is the node identifier.
	ID NodeID

	// TagID is the store key the node is bound to.
	TagID string

	// BrowseName is the node's browse name.
	BrowseName string

	// DisplayName is the human-readable name.
	DisplayName string

	// Type is the declared data type.
	Type DataType

	// Access defines the allowed operations.
	Access Access
}

// Node is an exposed variable bound to one tag.
type Node struct {
	mu       sync.RWMutex
	metadata *NodeMetadata
	folder   *Folder

	value    tag.Value
	quality  tag.Quality
	sourceTS time.Time
	serverTS time.Time

	// initialized is true once a sample has been written.
	initialized bool
	writes      uint64
}

// NodeSnapshot is a consistent copy of a node's current state.
type NodeSnapshot struct {
	ID              NodeID
	TagID           string
	DisplayName     string
	Folder          string
	Type            DataType
	Access          Access
	Value           tag.Value
	Quality         tag.Quality
	SourceTimestamp time.Time
	ServerTimestamp time.Time
	Initialized     bool
	Writes          uint64
}

func newNode(meta *NodeMetadata, folder *Folder, now time.Time) *Node {
	return &Node{
		metadata: meta,
		folder:   folder,
		value:    meta.Type.Zero(),
		quality:  tag.QualityBad,
		serverTS: now,
	}
}

// ID returns the node ID.
func (n *Node) ID() NodeID { return n.metadata.ID }

// TagID returns the bound tag ID.
func (n *Node) TagID() string { return n.metadata.TagID }

// Metadata returns the node metadata.
func (n *Node) Metadata() *NodeMetadata { return n.metadata }

// Folder returns the containing folder.
func (n *Node) Folder() *Folder { return n.folder }

// Write stores a sample in the node. The value must fit the declared type
// and is stored converted to it. now becomes the node's server timestamp.
func (n *Node) Write(s tag.Sample, now time.Time) error {
	v, err := n.metadata.Type.Coerce(s.Value)
	if err != nil {
		return fmt.Errorf("node %s: %w", n.metadata.ID, err)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	n.value = v
	n.quality = s.Quality
	n.sourceTS = s.Timestamp
	n.serverTS = now
	n.initialized = true
	n.writes++
	return nil
}

// Sample returns the node's last written value, source timestamp and quality.
func (n *Node) Sample() tag.Sample {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return tag.Sample{Value: n.value, Timestamp: n.sourceTS, Quality: n.quality}
}

// Differs reports whether s differs from the node's last written sample,
// comparing s as the node would store it. An uninitialized node differs
// from every sample.
func (n *Node) Differs(s tag.Sample) bool {
	if v, err := n.metadata.Type.Coerce(s.Value); err == nil {
		s.Value = v
	}

	n.mu.RLock()
	defer n.mu.RUnlock()
	if !n.initialized {
		return true
	}
	return !(tag.Sample{Value: n.value, Timestamp: n.sourceTS, Quality: n.quality}).Equal(s)
}

// Initialized returns true once the node has received a sample.
func (n *Node) Initialized() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.initialized
}

// Snapshot returns a copy of the node state.
func (n *Node) Snapshot() NodeSnapshot {
	n.mu.RLock()
	defer n.mu.RUnlock()
	folder := ""
	if n.folder != nil {
		folder = n.folder.Name()
	}
	return NodeSnapshot{
		ID:              n.metadata.ID,
		TagID:           n.metadata.TagID,
		DisplayName:     n.metadata.DisplayName,
		Folder:          folder,
		Type:            n.metadata.Type,
		Access:          n.metadata.Access,
		Value:           n.value,
		Quality:         n.quality,
		SourceTimestamp: n.sourceTS,
		ServerTimestamp: n.serverTS,
		Initialized:     n.initialized,
		Writes:          n.writes,
	}
}
