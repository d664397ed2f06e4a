// Package interactive provides the interactive console of tagbridge.
package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/chzyer/readline"

	"github.com/gridlink/tagbridge/pkg/bridge"
	"github.com/gridlink/tagbridge/pkg/inspect"
)

// NewReadline creates the console line reader. Logs should be written to
// its Stdout so they do not break the prompt.
func NewReadline() (*readline.Instance, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "bridge> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
		AutoComplete: readline.NewPrefixCompleter(
			readline.PcItem("tags"),
			readline.PcItem("get"),
			readline.PcItem("nodes"),
			readline.PcItem("unbound"),
			readline.PcItem("status"),
			readline.PcItem("help"),
			readline.PcItem("quit"),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return rl, nil
}

// Console is the interactive command loop.
type Console struct {
	bridge    *bridge.Bridge
	inspector *inspect.Inspector
	formatter *inspect.Formatter
	rl        *readline.Instance
	out       io.Writer
}

// New creates a console reading from rl. The caller closes rl.
func New(rl *readline.Instance, b *bridge.Bridge) *Console {
	c := newConsole(b, rl.Stdout())
	c.rl = rl
	return c
}

func newConsole(b *bridge.Bridge, out io.Writer) *Console {
	return &Console{
		bridge:    b,
		inspector: inspect.NewInspector(b.AddressSpace(), b.Store()),
		formatter: inspect.NewFormatter(),
		out:       out,
	}
}

// Run reads commands until quit, EOF or ctx ends. Quitting calls cancel.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) {
	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			fmt.Fprintln(c.out, "Exiting...")
			cancel()
			return
		}

		if c.Exec(line) {
			fmt.Fprintln(c.out, "Exiting...")
			cancel()
			return
		}
	}
}

// Exec runs one command line. It returns true when the console should quit.
func (c *Console) Exec(line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		c.printHelp()
	case "tags", "t":
		c.cmdTags()
	case "get", "g":
		c.cmdGet(args)
	case "nodes", "n":
		c.cmdNodes(args)
	case "unbound":
		c.cmdUnbound()
	case "status", "s":
		c.cmdStatus()
	case "quit", "exit", "q", "x":
		return true
	default:
		fmt.Fprintf(c.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return false
}

func (c *Console) printHelp() {
	fmt.Fprint(c.out, `Commands:
  tags                 List stored tag values
  get <path>           Show a node next to its stored value
                       path: tag, folder/tag or ns=<n>;s=<tag>
  nodes [folder]       Show the address space
  unbound              List stored tags without a node
  status               Show bridge status
  help                 Show this help
  quit                 Stop the bridge and exit
`)
}

func (c *Console) cmdTags() {
	st := c.bridge.Store()
	ids := st.ListTags()
	if len(ids) == 0 {
		fmt.Fprintln(c.out, "No values received yet.")
		return
	}
	sort.Strings(ids)
	for _, id := range ids {
		if s, ok := st.Get(id); ok {
			fmt.Fprintf(c.out, "  %s = %s\n", id, c.formatter.FormatSample(s))
		}
	}
}

func (c *Console) cmdGet(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(c.out, "Usage: get <path>")
		return
	}
	n, err := c.inspector.ResolveString(args[0])
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	fmt.Fprint(c.out, c.formatter.FormatComparison(c.inspector.Compare(n)))
}

func (c *Console) cmdNodes(args []string) {
	if len(args) == 0 {
		fmt.Fprint(c.out, c.formatter.FormatTree(c.inspector.InspectSpace()))
		return
	}
	info, err := c.inspector.InspectFolder(strings.TrimSuffix(args[0], "/"))
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	fmt.Fprint(c.out, c.formatter.FormatFolder(*info, 0))
}

func (c *Console) cmdUnbound() {
	ids := c.inspector.Unbound()
	if len(ids) == 0 {
		fmt.Fprintln(c.out, "Every stored tag has a node.")
		return
	}
	for _, id := range ids {
		fmt.Fprintf(c.out, "  %s\n", id)
	}
}

func (c *Console) cmdStatus() {
	st := c.bridge.Status()
	fmt.Fprintf(c.out, "Bridge:      %s\n", st.State)
	if st.Addr != "" {
		fmt.Fprintf(c.out, "Listening:   %s (advertised: %t)\n", st.Addr, st.Advertised)
	}
	fmt.Fprintf(c.out, "Southbound:  %s", st.Southbound)
	if st.SessionID != "" {
		fmt.Fprintf(c.out, " (session %s)", st.SessionID)
	}
	fmt.Fprintln(c.out)
	if st.LastError != nil {
		fmt.Fprintf(c.out, "Last error:  %v\n", st.LastError)
	}
	fmt.Fprintf(c.out, "Sessions:    %d, connect failures: %d, panics: %d\n",
		st.Supervisor.Sessions, st.Supervisor.ConnectFailures, st.Supervisor.Panics)
	fmt.Fprintf(c.out, "Updates:     %d delivered, %d dropped\n", st.Supervisor.Delivered, st.Supervisor.Dropped)
	fmt.Fprintf(c.out, "Store:       %d tags\n", st.StoreTags)
	fmt.Fprintf(c.out, "Nodes:       %d\n", st.Nodes)
	fmt.Fprintf(c.out, "Sync:        %d ticks, %d skipped, %d writes, %d failed\n",
		st.Sync.Ticks, st.Sync.Skipped, st.Sync.Writes, st.Sync.Failed)
	fmt.Fprintf(c.out, "Subscribers: %d\n", st.Subscribers)
}
