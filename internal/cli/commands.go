package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/objectstore"
)

// ListCmd implements `objstore list` (§4.11 "list", §6).
func ListCmd(cfg Config, policy string) *Command {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	class := fs.String("class", "", "filter by fully qualified class name")
	limit := fs.Int("limit", 0, "maximum number of results, 0 means unbounded")

	return &Command{
		Flags: fs,
		Usage: "list [flags]",
		Short: "List stored object UUIDs",
		Exec: func(_ context.Context, o *IO, _ []string) error {
			store, err := openStore(cfg, policy)
			if err != nil {
				return err
			}
			defer func() { _ = store.Shutdown() }()

			uuids, err := store.List(*class, *limit)
			if err != nil {
				return err
			}

			if o.JSON() {
				return o.PrintJSON(uuids)
			}

			for _, u := range uuids {
				o.Println(u)
			}

			return nil
		},
	}
}

// GetCmd implements `objstore get` (§4.11 "load").
func GetCmd(cfg Config, policy string) *Command {
	fs := flag.NewFlagSet("get", flag.ContinueOnError)

	return &Command{
		Flags: fs,
		Usage: "get <uuid>",
		Short: "Load and print a stored object",
		Exec: func(_ context.Context, o *IO, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("get: expected exactly one uuid argument")
			}

			uuid := args[0]

			store, err := openStore(cfg, policy)
			if err != nil {
				return err
			}
			defer func() { _ = store.Shutdown() }()

			inst, err := store.Load(uuid)
			if err != nil {
				return err
			}

			return printInstance(o, inst)
		},
	}
}

// printInstance prints a loaded instance as JSON - either a [Placeholder]'s
// dynamic attributes (the common case for CLI-stored data, since each CLI
// invocation is a fresh process with an empty type registry) or a
// registered type's exported fields.
func printInstance(o *IO, inst any) error {
	if ph, ok := inst.(*objectstore.Placeholder); ok {
		out := map[string]any{"class": ph.Class, "fields": ph.Attrs}
		return o.PrintJSON(out)
	}

	return o.PrintJSON(inst)
}

// PutCmd implements `objstore put` (§4.11 "store").
func PutCmd(cfg Config, policy string, stdin io.Reader) *Command {
	fs := flag.NewFlagSet("put", flag.ContinueOnError)
	class := fs.String("class", "Object", "class name recorded in metadata")
	ttl := fs.Float64("ttl", -1, "time-to-live in seconds; negative means no expiry")
	uuid := fs.String("uuid", "", "store under this UUID instead of generating one")

	return &Command{
		Flags: fs,
		Usage: "put [flags] [json]",
		Short: "Store a JSON object graph",
		Long:  "Store a JSON object (from the argument, or stdin if omitted) under the given class.",
		Exec: func(_ context.Context, o *IO, args []string) error {
			var raw []byte

			var err error

			if len(args) == 1 {
				raw = []byte(args[0])
			} else {
				raw, err = io.ReadAll(stdin)
				if err != nil {
					return fmt.Errorf("put: reading stdin: %w", err)
				}
			}

			var fields map[string]any
			if err := json.Unmarshal(raw, &fields); err != nil {
				return fmt.Errorf("put: invalid JSON: %w", err)
			}

			if *uuid != "" {
				if !objectstore.ValidateUUID(*uuid) {
					return objectstore.NewErrInvalidUUID(*uuid)
				}

				fields["UUID"] = *uuid
			}

			instance := buildDynamicInstance(fields)

			registry := objectstore.NewTypeRegistry()
			registry.Register(*class, instance)

			store, err := openStoreWithRegistry(cfg, policy, registry)
			if err != nil {
				return err
			}
			defer func() { _ = store.Shutdown() }()

			var opts objectstore.StoreOptions
			if *ttl >= 0 {
				opts.TTL = ttlPtr(*ttl)
			}

			rootUUID, err := store.Store(instance, opts)
			if err != nil {
				return err
			}

			if o.JSON() {
				return o.PrintJSON(map[string]string{"uuid": rootUUID})
			}

			o.Println(rootUUID)

			return nil
		},
	}
}

func ttlPtr(v float64) *float64 { return &v }

// DeleteCmd implements `objstore delete` (§4.11 "delete").
func DeleteCmd(cfg Config, policy string) *Command {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	force := fs.Bool("force", false, "succeed even if the UUID doesn't exist")

	return &Command{
		Flags: fs,
		Usage: "delete <uuid> [flags]",
		Short: "Delete a stored object",
		Exec: func(_ context.Context, o *IO, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("delete: expected exactly one uuid argument")
			}

			store, err := openStore(cfg, policy)
			if err != nil {
				return err
			}
			defer func() { _ = store.Shutdown() }()

			ok, err := store.Delete(args[0], objectstore.DeleteOptions{Force: *force})
			if err != nil {
				return err
			}

			if o.JSON() {
				return o.PrintJSON(map[string]bool{"deleted": ok})
			}

			o.Println(ok)

			return nil
		},
	}
}

// CheckCmd implements `objstore check` (§4.11 "check").
func CheckCmd(cfg Config, policy string) *Command {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)

	return &Command{
		Flags: fs,
		Usage: "check [flags]",
		Short: "Verify integrity of every stored record",
		Exec: func(_ context.Context, o *IO, _ []string) error {
			store, err := openStore(cfg, policy)
			if err != nil {
				return err
			}
			defer func() { _ = store.Shutdown() }()

			issues, err := store.Check()
			if err != nil {
				return err
			}

			if o.JSON() {
				return o.PrintJSON(issues)
			}

			if len(issues) == 0 {
				o.Println("ok: no issues found")
				return nil
			}

			for _, issue := range issues {
				o.Printf("%s %s: %s\n", issue.UUID, issue.Kind, issue.Detail)
			}

			return nil
		},
	}
}

// StatsCmd implements `objstore stats` (§4.11 "stats").
func StatsCmd(cfg Config, policy string) *Command {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)

	return &Command{
		Flags: fs,
		Usage: "stats",
		Short: "Show object count, total bytes, and expired count",
		Exec: func(_ context.Context, o *IO, _ []string) error {
			store, err := openStore(cfg, policy)
			if err != nil {
				return err
			}
			defer func() { _ = store.Shutdown() }()

			stats, err := store.Stats()
			if err != nil {
				return err
			}

			if o.JSON() {
				return o.PrintJSON(stats)
			}

			o.Printf("objects: %d\n", stats.ObjectCount)
			o.Printf("bytes:   %d\n", stats.TotalBytes)
			o.Printf("expired: %d\n", stats.ExpiredCount)

			return nil
		},
	}
}

// SafemodeCmd implements `objstore safemode` (§4.6).
func SafemodeCmd(cfg Config, policy string) *Command {
	fs := flag.NewFlagSet("safemode", flag.ContinueOnError)

	return &Command{
		Flags: fs,
		Usage: "safemode <on|off|status>",
		Short: "Enable, disable, or query safe mode",
		Exec: func(_ context.Context, o *IO, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("safemode: expected exactly one of on|off|status")
			}

			store, err := openStore(cfg, policy)
			if err != nil {
				return err
			}
			defer func() { _ = store.Shutdown() }()

			state := store.StateHandler()

			switch args[0] {
			case "on":
				if err := state.EnableSafeMode(); err != nil {
					return err
				}
			case "off":
				if err := state.DisableSafeMode(); err != nil {
					return err
				}
			case "status":
				// no-op: fall through to the shared report below
			default:
				return fmt.Errorf("safemode: unknown argument %q (want on|off|status)", args[0])
			}

			enabled := state.Enabled()

			if o.JSON() {
				return o.PrintJSON(map[string]bool{"safeMode": enabled})
			}

			if enabled {
				o.Println("safe mode: on")
			} else {
				o.Println("safe mode: off")
			}

			return nil
		},
	}
}

// LifetimeCmd implements `objstore lifetime` (§4.11 "getLifetime"/"setLifetime").
func LifetimeCmd(cfg Config, policy string) *Command {
	fs := flag.NewFlagSet("lifetime", flag.ContinueOnError)
	clear := fs.Bool("clear", false, "remove the TTL (no expiry)")

	return &Command{
		Flags: fs,
		Usage: "lifetime <uuid> [ttl]",
		Short: "Get or set an object's remaining TTL",
		Long:  "With one argument, prints the remaining seconds before expiry (or \"none\"). With two, sets the TTL in seconds from now. --clear removes it.",
		Exec: func(_ context.Context, o *IO, args []string) error {
			if len(args) < 1 || len(args) > 2 {
				return fmt.Errorf("lifetime: expected <uuid> [ttl]")
			}

			store, err := openStore(cfg, policy)
			if err != nil {
				return err
			}
			defer func() { _ = store.Shutdown() }()

			uuid := args[0]

			if *clear {
				ok, err := store.SetLifetime(uuid, nil)
				if err != nil {
					return err
				}

				return printLifetimeResult(o, ok, nil)
			}

			if len(args) == 2 {
				var seconds float64
				if _, err := fmt.Sscanf(args[1], "%g", &seconds); err != nil {
					return fmt.Errorf("lifetime: invalid ttl %q: %w", args[1], err)
				}

				ok, err := store.SetLifetime(uuid, &seconds)
				if err != nil {
					return err
				}

				return printLifetimeResult(o, ok, &seconds)
			}

			remaining, err := store.GetLifetime(uuid)
			if err != nil {
				return err
			}

			return printLifetimeResult(o, true, remaining)
		},
	}
}

func printLifetimeResult(o *IO, ok bool, ttl *float64) error {
	if o.JSON() {
		return o.PrintJSON(map[string]any{"ok": ok, "ttl": ttl})
	}

	if ttl == nil {
		o.Println("none")
	} else {
		o.Printf("%g\n", *ttl)
	}

	return nil
}

// ShellCmd implements `objstore shell`, an interactive REPL over the same
// operations the other commands expose one at a time, grounded on
// cmd/sloty's liner-based REPL loop (§6 "[ADDED] shell").
func ShellCmd(cfg Config, policy string) *Command {
	fs := flag.NewFlagSet("shell", flag.ContinueOnError)

	return &Command{
		Flags: fs,
		Usage: "shell",
		Short: "Interactive REPL for exploring a store",
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			registry := objectstore.NewTypeRegistry()

			store, err := openStoreWithRegistry(cfg, policy, registry)
			if err != nil {
				return err
			}
			defer func() { _ = store.Shutdown() }()

			repl := newShellREPL(store, registry, o)

			return repl.run(ctx)
		},
	}
}

func sortedStrings(s []string) []string {
	out := append([]string(nil), s...)
	sort.Strings(out)

	return out
}
