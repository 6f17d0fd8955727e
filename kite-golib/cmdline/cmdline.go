package cmdline

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	arg "github.com/alexflint/go-arg"
)

// Command represents an action that can be run from the command line
type Command struct {
	Name     string
	Synopsis string
	Args     Handler
}

// Handler represents a function that gets called for an action. The context is
// canceled on SIGINT or SIGTERM.
type Handler interface {
	Handle(ctx context.Context) error
}

// Validator is the interface for custom validation of command line arguments
type Validator interface {
	Validate() error
}

func prog() string {
	if len(os.Args) > 0 {
		return filepath.Base(os.Args[0])
	}
	return "program"
}

func writeUsage(w io.Writer, cmds ...Command) {
	fmt.Fprintf(w, "Usage: %s COMMAND [ARGS]\n", prog())
	fmt.Fprintf(w, "Command can be one of:\n")
	for _, cmd := range cmds {
		fmt.Fprintf(w, "  %-20s %s\n", cmd.Name, cmd.Synopsis)
	}
	fmt.Fprintf(w, "  %-20s %s\n", "help", "display this help and exit")
	fmt.Fprintf(w, "  %-20s %s\n", "help COMMAND", "display help for command and exit")
}

// Find returns the command named action
func Find(action string, cmds ...Command) (Command, bool) {
	for _, c := range cmds {
		if c.Name == action {
			return c, true
		}
	}
	return Command{}, false
}

// Parse fills cmd.Args from args and validates them
func Parse(cmd Command, args []string) (*arg.Parser, error) {
	parser, err := arg.NewParser(arg.Config{Program: prog() + " " + cmd.Name}, cmd.Args)
	if err != nil {
		return nil, err
	}
	if err := parser.Parse(args); err != nil {
		return parser, err
	}
	if v, ok := cmd.Args.(Validator); ok {
		if err := v.Validate(); err != nil {
			return parser, err
		}
	}
	return parser, nil
}

// SignalContext is canceled on the first SIGINT or SIGTERM; a second signal kills the
// process.
func SignalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigs:
			cancel()
		case <-ctx.Done():
			signal.Stop(sigs)
			return
		}
		<-sigs
		os.Exit(130)
	}()
	return ctx, cancel
}

// MustDispatch dispatches one of the commands and exits on failure
func MustDispatch(cmds ...Command) {
	if len(os.Args) < 2 {
		writeUsage(os.Stdout, cmds...)
		fmt.Println("\nError: no command provided")
		os.Exit(1)
	}

	var help bool
	action := os.Args[1]
	if action == "help" {
		if len(os.Args) < 3 {
			writeUsage(os.Stdout, cmds...)
			fmt.Println("\nFor help on a specific command use help COMMAND")
			os.Exit(0)
		}
		help = true
		action = os.Args[2]
	}

	cmd, ok := Find(action, cmds...)
	if !ok {
		writeUsage(os.Stdout, cmds...)
		fmt.Println("\nError: unknown command", action)
		os.Exit(1)
	}

	if help {
		parser, err := arg.NewParser(arg.Config{Program: prog() + " " + cmd.Name}, cmd.Args)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		parser.WriteHelp(os.Stdout)
		os.Exit(0)
	}

	parser, err := Parse(cmd, os.Args[2:])
	if err != nil {
		if parser == nil {
			fmt.Println(err)
			os.Exit(1)
		}
		parser.Fail(err.Error())
	}

	ctx, cancel := SignalContext()
	err = cmd.Args.Handle(ctx)
	cancel()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
