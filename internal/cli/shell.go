package cli

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"github.com/calvinalkan/objectstore"
)

// shellREPL is an interactive command loop over an open store, grounded on
// cmd/sloty's liner-based REPL (§6 "[ADDED] shell"). Each line runs one of
// the same operations the single-shot commands expose, without reopening
// the store between calls.
type shellREPL struct {
	store    *objectstore.Store
	registry *objectstore.TypeRegistry
	io       *IO
	liner    *liner.State
}

func newShellREPL(store *objectstore.Store, registry *objectstore.TypeRegistry, o *IO) *shellREPL {
	return &shellREPL{store: store, registry: registry, io: o}
}

func shellHistoryFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".objstore_history")
}

var shellCommands = []string{
	"put", "get", "del", "delete", "list", "ls",
	"check", "stats", "safemode", "lifetime",
	"help", "exit", "quit", "q",
}

func (r *shellREPL) completer(line string) []string {
	var out []string

	lower := strings.ToLower(line)
	for _, cmd := range shellCommands {
		if strings.HasPrefix(cmd, lower) {
			out = append(out, cmd)
		}
	}

	return out
}

// run executes the REPL loop until the user exits, ctx is cancelled, or
// stdin is closed.
func (r *shellREPL) run(ctx context.Context) error {
	r.liner = liner.NewLiner()
	defer r.liner.Close()

	r.liner.SetCtrlCAborts(true)
	r.liner.SetCompleter(r.completer)

	if f, err := os.Open(shellHistoryFile()); err == nil {
		_, _ = r.liner.ReadHistory(f)
		_ = f.Close()
	}

	r.io.Println("objstore shell - type 'help' for commands")

	for {
		if ctx.Err() != nil {
			r.saveHistory()
			return nil
		}

		line, err := r.liner.Prompt("objstore> ")
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				r.io.Println("bye")
				r.saveHistory()

				return nil
			}

			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		r.liner.AppendHistory(line)

		fields := strings.Fields(line)
		cmd := strings.ToLower(fields[0])
		args := fields[1:]

		switch cmd {
		case "exit", "quit", "q":
			r.io.Println("bye")
			r.saveHistory()

			return nil
		case "help", "?":
			r.printHelp()
		case "put":
			r.cmdPut(args, line)
		case "get":
			r.cmdGet(args)
		case "del", "delete":
			r.cmdDelete(args)
		case "list", "ls":
			r.cmdList(args)
		case "check":
			r.cmdCheck()
		case "stats":
			r.cmdStats()
		case "safemode":
			r.cmdSafemode(args)
		case "lifetime":
			r.cmdLifetime(args)
		default:
			r.io.Printf("unknown command: %s (type 'help')\n", cmd)
		}
	}
}

func (r *shellREPL) saveHistory() {
	path := shellHistoryFile()
	if path == "" {
		return
	}

	if f, err := os.Create(path); err == nil {
		_, _ = r.liner.WriteHistory(f)
		_ = f.Close()
	}
}

func (r *shellREPL) printHelp() {
	r.io.Println("Commands:")
	r.io.Println("  put <class> <json>        Store an object, prints its UUID")
	r.io.Println("  get <uuid>                 Load and print an object")
	r.io.Println("  del <uuid>                 Delete an object")
	r.io.Println("  list [class]               List stored UUIDs")
	r.io.Println("  check                      Verify integrity")
	r.io.Println("  stats                      Show counts and bytes")
	r.io.Println("  safemode <on|off|status>   Enable, disable, or query safe mode")
	r.io.Println("  lifetime <uuid> [ttl]      Get or set remaining TTL")
	r.io.Println("  help                       Show this help")
	r.io.Println("  exit / quit / q            Exit")
}

func (r *shellREPL) cmdPut(args []string, raw string) {
	if len(args) < 2 {
		r.io.Println("usage: put <class> <json>")
		return
	}

	class := args[0]

	_, jsonPart, found := strings.Cut(raw, class)
	if !found {
		r.io.Println("usage: put <class> <json>")
		return
	}

	jsonPart = strings.TrimSpace(jsonPart)

	var fields map[string]any
	if err := json.Unmarshal([]byte(jsonPart), &fields); err != nil {
		r.io.Printf("invalid json: %v\n", err)
		return
	}

	instance := buildDynamicInstance(fields)
	r.registry.Register(class, instance)

	uuid, err := r.store.Store(instance)
	if err != nil {
		r.io.Printf("error: %v\n", err)
		return
	}

	r.io.Println(uuid)
}

func (r *shellREPL) cmdGet(args []string) {
	if len(args) != 1 {
		r.io.Println("usage: get <uuid>")
		return
	}

	inst, err := r.store.Load(args[0])
	if err != nil {
		r.io.Printf("error: %v\n", err)
		return
	}

	if err := printInstance(r.io, inst); err != nil {
		r.io.Printf("error: %v\n", err)
	}
}

func (r *shellREPL) cmdDelete(args []string) {
	if len(args) != 1 {
		r.io.Println("usage: del <uuid>")
		return
	}

	ok, err := r.store.Delete(args[0], objectstore.DeleteOptions{})
	if err != nil {
		r.io.Printf("error: %v\n", err)
		return
	}

	r.io.Println(ok)
}

func (r *shellREPL) cmdList(args []string) {
	class := ""
	if len(args) >= 1 {
		class = args[0]
	}

	uuids, err := r.store.List(class, 0)
	if err != nil {
		r.io.Printf("error: %v\n", err)
		return
	}

	for _, u := range sortedStrings(uuids) {
		r.io.Println(u)
	}
}

func (r *shellREPL) cmdCheck() {
	issues, err := r.store.Check()
	if err != nil {
		r.io.Printf("error: %v\n", err)
		return
	}

	if len(issues) == 0 {
		r.io.Println("ok: no issues found")
		return
	}

	for _, issue := range issues {
		r.io.Printf("%s %s: %s\n", issue.UUID, issue.Kind, issue.Detail)
	}
}

func (r *shellREPL) cmdStats() {
	stats, err := r.store.Stats()
	if err != nil {
		r.io.Printf("error: %v\n", err)
		return
	}

	r.io.Printf("objects: %d\n", stats.ObjectCount)
	r.io.Printf("bytes:   %d\n", stats.TotalBytes)
	r.io.Printf("expired: %d\n", stats.ExpiredCount)
}

func (r *shellREPL) cmdSafemode(args []string) {
	if len(args) != 1 {
		r.io.Println("usage: safemode <on|off|status>")
		return
	}

	state := r.store.StateHandler()

	switch args[0] {
	case "on":
		if err := state.EnableSafeMode(); err != nil {
			r.io.Printf("error: %v\n", err)
			return
		}
	case "off":
		if err := state.DisableSafeMode(); err != nil {
			r.io.Printf("error: %v\n", err)
			return
		}
	case "status":
	default:
		r.io.Println("usage: safemode <on|off|status>")
		return
	}

	if state.Enabled() {
		r.io.Println("safe mode: on")
	} else {
		r.io.Println("safe mode: off")
	}
}

func (r *shellREPL) cmdLifetime(args []string) {
	if len(args) < 1 || len(args) > 2 {
		r.io.Println("usage: lifetime <uuid> [ttl]")
		return
	}

	if len(args) == 2 {
		seconds, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			r.io.Printf("invalid ttl: %v\n", err)
			return
		}

		if _, err := r.store.SetLifetime(args[0], &seconds); err != nil {
			r.io.Printf("error: %v\n", err)
			return
		}

		r.io.Printf("%g\n", seconds)

		return
	}

	remaining, err := r.store.GetLifetime(args[0])
	if err != nil {
		r.io.Printf("error: %v\n", err)
		return
	}

	if remaining == nil {
		r.io.Println("none")
	} else {
		r.io.Printf("%g\n", *remaining)
	}
}
