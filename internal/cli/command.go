package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/objectstore"
)

// Command defines a CLI command with unified help generation.
type Command struct {
	// Flags defines command-specific flags.
	// The FlagSet name is not used - command identity comes from Usage.
	Flags *flag.FlagSet

	// Usage is the freeform usage string shown after "objstore" in help.
	// Includes the command name and arguments/flags.
	// Examples: "get <uuid>", "delete <uuid> [flags]", "list [flags]"
	Usage string

	// Short is a one-line description for the global help listing.
	Short string

	// Long is the full description shown in command help.
	// If empty, Short is used instead.
	Long string

	// Exec runs the command after flags are parsed.
	Exec func(ctx context.Context, o *IO, args []string) error
}

// Name returns the command name (first word of Usage).
func (c *Command) Name() string {
	name, _, _ := strings.Cut(c.Usage, " ")
	return name
}

// HelpLine returns the short help line for the main usage display.
func (c *Command) HelpLine() string {
	return fmt.Sprintf("  %-22s %s", c.Usage, c.Short)
}

// PrintHelp prints the full help output for "objstore <cmd> --help".
func (c *Command) PrintHelp(o *IO) {
	o.Println("Usage: objstore", c.Usage)
	o.Println()

	desc := c.Long
	if desc == "" {
		desc = c.Short
	}

	o.Println(desc)

	if c.Flags != nil && c.Flags.HasFlags() {
		o.Println()
		o.Println("Flags:")

		var buf strings.Builder
		c.Flags.SetOutput(&buf)
		c.Flags.PrintDefaults()
		o.Printf("%s", buf.String())
	}
}

// Run parses flags and executes the command. Returns exit code.
// Handles error printing internally for consistent output ordering.
func (c *Command) Run(ctx context.Context, o *IO, args []string) int {
	c.Flags.SetOutput(&strings.Builder{}) // discard pflag output

	err := c.Flags.Parse(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			c.PrintHelp(o)
			return 0
		}
		o.ErrPrintln("error:", err)
		o.ErrPrintln()
		c.PrintHelp(o)
		return 1
	}

	if err := c.Exec(ctx, o, c.Flags.Args()); err != nil {
		o.PrintError(err, objectstore.ErrorUUID(err))
		return exitCodeFor(err)
	}

	return 0
}

// errorKind returns the §7 taxonomy name for err, or "unknown" if it
// carries none.
func errorKind(err error) string {
	code := objectstore.ErrorCode(err)
	if code == "" {
		return "unknown"
	}

	return strings.TrimPrefix(string(code), "OBJSTORE_")
}

// exitCodeFor maps a returned error to the §6 exit-code contract: 1 for
// user/data errors (not-found, invalid input), 2 for operational errors
// (safe-mode blocks, I/O failure, lock contention).
func exitCodeFor(err error) int {
	switch objectstore.ErrorCode(err) {
	case objectstore.ErrCodeSafeMode, objectstore.ErrCodeIOException, objectstore.ErrCodeLockTimeout:
		return 2
	default:
		return 1
	}
}
