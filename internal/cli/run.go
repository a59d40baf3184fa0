package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/objectstore"
)

// Run is the main entry point. Returns the process exit code.
// sigCh can be nil if signal handling is not needed (e.g. in tests).
func Run(in io.Reader, out io.Writer, errOut io.Writer, args []string, env map[string]string, sigCh <-chan os.Signal) int {
	globalFlags := flag.NewFlagSet("objstore", flag.ContinueOnError)
	globalFlags.SetInterspersed(false)
	globalFlags.Usage = func() {}
	globalFlags.SetOutput(&strings.Builder{})

	flagHelp := globalFlags.BoolP("help", "h", false, "Show help")
	flagJSON := globalFlags.Bool("json", false, "Emit machine-readable JSON")
	flagCwd := globalFlags.StringP("cwd", "C", "", "Run as if started in `dir`")
	flagConfig := globalFlags.StringP("config", "c", "", "Use specified config `file`")
	flagDir := globalFlags.String("dir", "", "Override storage root `directory`")

	if err := globalFlags.Parse(args[1:]); err != nil {
		fprintln(errOut, "error:", err)
		printGlobalOptions(errOut)

		return 1
	}

	cfg, err := LoadConfig(LoadConfigInput{
		WorkDirOverride: *flagCwd,
		ConfigPath:      *flagConfig,
		DirOverride:     *flagDir,
		Env:             env,
	})
	if err != nil {
		fprintln(errOut, "error:", err)
		printGlobalOptions(errOut)

		return 1
	}

	policy, err := cfg.childWritePolicy()
	if err != nil {
		fprintln(errOut, "error:", err)
		return 1
	}

	commands := allCommands(cfg, policy, in)

	commandMap := make(map[string]*Command, len(commands))
	for _, cmd := range commands {
		commandMap[cmd.Name()] = cmd
	}

	commandAndArgs := globalFlags.Args()

	if *flagHelp || (len(commandAndArgs) == 0 && globalFlags.NFlag() == 0) {
		printUsage(out, commands)

		return 0
	}

	if len(commandAndArgs) == 0 {
		fprintln(errOut, "error: no command provided")
		printUsage(errOut, commands)

		return 1
	}

	cmdName := commandAndArgs[0]

	cmd, ok := commandMap[cmdName]
	if !ok {
		fprintln(errOut, "error: unknown command:", cmdName)
		printUsage(errOut, commands)

		return 1
	}

	cmdIO := NewIO(out, errOut)
	cmdIO.json = *flagJSON

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan int, 1)

	go func() {
		done <- cmd.Run(ctx, cmdIO, commandAndArgs[1:])
	}()

	select {
	case exitCode := <-done:
		return exitCode
	case <-sigCh:
		fprintln(errOut, "shutting down with 5s timeout...")
		cancel()
	}

	select {
	case <-done:
		fprintln(errOut, "graceful shutdown ok (130)")

		return 130
	case <-time.After(5 * time.Second):
		fprintln(errOut, "graceful shutdown timed out, forced exit (130)")

		return 130
	case <-sigCh:
		fprintln(errOut, "graceful shutdown interrupted, forced exit (130)")

		return 130
	}
}

// allCommands returns all commands in display order. Dependencies are
// captured via closures in each command constructor.
func allCommands(cfg Config, policy string, in io.Reader) []*Command {
	return []*Command{
		ListCmd(cfg, policy),
		GetCmd(cfg, policy),
		PutCmd(cfg, policy, in),
		DeleteCmd(cfg, policy),
		CheckCmd(cfg, policy),
		StatsCmd(cfg, policy),
		SafemodeCmd(cfg, policy),
		LifetimeCmd(cfg, policy),
		ShellCmd(cfg, policy),
	}
}

func fprintln(w io.Writer, a ...any) {
	_, _ = fmt.Fprintln(w, a...)
}

const globalOptionsHelp = `  -h, --help             Show help
  --json                 Emit machine-readable JSON
  -C, --cwd <dir>        Run as if started in <dir>
  -c, --config <file>    Use specified config file
  --dir <dir>            Override storage root directory`

func printGlobalOptions(w io.Writer) {
	fprintln(w, "Usage: objstore [flags] <command> [args]")
	fprintln(w)
	fprintln(w, "Global flags:")
	fprintln(w, globalOptionsHelp)
	fprintln(w)
	fprintln(w, "Run 'objstore --help' for a list of commands.")
}

func printUsage(w io.Writer, commands []*Command) {
	fprintln(w, "objstore - UUID-addressed object store")
	fprintln(w)
	fprintln(w, "Usage: objstore [flags] <command> [args]")
	fprintln(w)
	fprintln(w, "Flags:")
	fprintln(w, globalOptionsHelp)
	fprintln(w)
	fprintln(w, "Commands:")

	for _, cmd := range commands {
		fprintln(w, cmd.HelpLine())
	}
}

// openStore constructs a [objectstore.Store] rooted at cfg.DirAbs using the
// strategy knobs from cfg, with an empty type registry.
func openStore(cfg Config, policy string) (*objectstore.Store, error) {
	return openStoreWithRegistry(cfg, policy, objectstore.NewTypeRegistry())
}

// openStoreWithRegistry is openStore with a caller-supplied registry, used
// by `put` to register the one dynamic type it synthesizes for this call.
func openStoreWithRegistry(cfg Config, policy string, registry *objectstore.TypeRegistry) (*objectstore.Store, error) {
	var cwp objectstore.ChildWritePolicy

	switch policy {
	case "never":
		cwp = objectstore.ChildWriteNever
	case "if_not_exist":
		cwp = objectstore.ChildWriteIfNotExist
	default:
		cwp = objectstore.ChildWriteAlways
	}

	strategy := &objectstore.JSONStrategy{
		MaxDepthValue:         cfg.MaxDepth,
		ShardDepthValue:       cfg.ShardDepth,
		ChildWritePolicyValue: cwp,
	}

	store, err := objectstore.New(objectstore.Options{
		Root:     cfg.DirAbs,
		Strategy: strategy,
		Registry: registry,
	})
	if err != nil {
		return nil, err
	}

	return store, nil
}
