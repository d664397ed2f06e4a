package inspect

import (
	"fmt"
	"strings"
	"time"

	"github.com/gridlink/tagbridge/pkg/model"
	"github.com/gridlink/tagbridge/pkg/tag"
)

// Formatter formats inspection output.
type Formatter struct {
	// ShowMetadata includes type and access information
	ShowMetadata bool

	// ShowIDs includes node IDs alongside tag IDs
	ShowIDs bool

	// ShowTimestamps includes source timestamps
	ShowTimestamps bool

	// IndentWidth is the number of spaces per indent level
	IndentWidth int
}

// NewFormatter creates a new Formatter with default settings.
func NewFormatter() *Formatter {
	return &Formatter{
		ShowMetadata:   true,
		ShowIDs:        false,
		ShowTimestamps: true,
		IndentWidth:    2,
	}
}

// Indent returns the content with indentation.
func (f *Formatter) Indent(depth int, content string) string {
	width := f.IndentWidth
	if width == 0 {
		width = 2
	}
	return strings.Repeat(" ", depth*width) + content
}

// FormatValue formats a value for display. Floats get four decimals.
func (f *Formatter) FormatValue(v tag.Value) string {
	if fv, ok := v.AsFloat(); ok {
		return fmt.Sprintf("%.4f", fv)
	}
	return v.String()
}

// FormatSample formats a value with its quality and timestamp.
func (f *Formatter) FormatSample(s tag.Sample) string {
	out := fmt.Sprintf("%s [%s]", f.FormatValue(s.Value), s.Quality)
	if f.ShowTimestamps && !s.Timestamp.IsZero() {
		out += " @ " + FormatTimestamp(s.Timestamp)
	}
	return out
}

// FormatTimestamp formats a timestamp with millisecond precision.
func FormatTimestamp(t time.Time) string {
	return t.Format("15:04:05.000")
}

// FormatAccess formats an access level for display.
func FormatAccess(access model.Access) string {
	switch access {
	case model.AccessReadOnly:
		return "read-only"
	case model.AccessReadWrite:
		return "read-write"
	default:
		return fmt.Sprintf("access(%s)", access)
	}
}

// FormatNode formats one node on a line.
func (f *Formatter) FormatNode(n model.NodeSnapshot) string {
	var sb strings.Builder
	if f.ShowIDs {
		sb.WriteString(fmt.Sprintf("[%s] ", n.ID))
	}
	sb.WriteString(n.TagID)
	sb.WriteString(": ")
	if n.Initialized {
		sb.WriteString(f.FormatSample(tag.Sample{Value: n.Value, Timestamp: n.SourceTimestamp, Quality: n.Quality}))
	} else {
		sb.WriteString(fmt.Sprintf("%s [%s] (never written)", f.FormatValue(n.Value), n.Quality))
	}
	if f.ShowMetadata {
		sb.WriteString(fmt.Sprintf(" (%s, %s)", n.Type, FormatAccess(n.Access)))
	}
	return sb.String()
}

// FormatFolder formats a folder and its nodes.
func (f *Formatter) FormatFolder(info FolderInfo, depth int) string {
	var sb strings.Builder
	header := info.Name + "/"
	if f.ShowIDs {
		header = fmt.Sprintf("%s [%s]", header, info.ID)
	}
	sb.WriteString(f.Indent(depth, header))
	sb.WriteString("\n")
	if len(info.Nodes) == 0 {
		sb.WriteString(f.Indent(depth+1, "(no nodes)\n"))
	}
	for _, n := range info.Nodes {
		sb.WriteString(f.Indent(depth+1, f.FormatNode(n)))
		sb.WriteString("\n")
	}
	return sb.String()
}

// FormatTree formats the whole address space.
func (f *Formatter) FormatTree(tree *Tree) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Namespace %d\n", tree.Namespace))
	for _, folder := range tree.Folders {
		sb.WriteString(f.FormatFolder(folder, 1))
	}
	return sb.String()
}

// FormatComparison formats a node next to its store entry.
func (f *Formatter) FormatComparison(c Comparison) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s (%s)\n", c.Node.TagID, c.Node.ID))
	sb.WriteString(fmt.Sprintf("  folder:  %s\n", c.Node.Folder))
	sb.WriteString(fmt.Sprintf("  type:    %s, %s\n", c.Node.Type, FormatAccess(c.Node.Access)))
	if c.InStore {
		sb.WriteString("  store:   " + f.FormatSample(c.Stored) + "\n")
	} else {
		sb.WriteString("  store:   (no value received)\n")
	}
	sb.WriteString("  node:    " + f.FormatSample(tag.Sample{
		Value:     c.Node.Value,
		Timestamp: c.Node.SourceTimestamp,
		Quality:   c.Node.Quality,
	}) + "\n")
	sb.WriteString(fmt.Sprintf("  writes:  %d (last %s ago)\n", c.Node.Writes, c.Age.Round(time.Millisecond)))
	if c.InSync {
		sb.WriteString("  in sync\n")
	} else if c.InStore {
		sb.WriteString("  pending next sync\n")
	}
	return sb.String()
}
