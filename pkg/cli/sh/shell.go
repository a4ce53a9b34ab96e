package sh

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/abiosoft/ishell"
	"github.com/golang/glog"

	"github.com/robotalks/heating.go/pkg/env"
	"github.com/robotalks/heating.go/pkg/mcu"
)

// Exit codes.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// UsageError indicates invalid command arguments.
type UsageError struct {
	Msg string
}

// Error implements error.
func (e *UsageError) Error() string {
	return e.Msg
}

// Usagef creates a UsageError.
func Usagef(format string, args ...interface{}) error {
	return &UsageError{Msg: fmt.Sprintf(format, args...)}
}

// ExitCode maps a command error to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var usage *UsageError
	if errors.As(err, &usage) {
		return ExitUsage
	}
	return ExitFailure
}

// Command is a shell command.
type Command struct {
	Name    string
	Aliases []string
	Help    string
	// Offline commands don't need the device.
	Offline bool
	Func    func(c *Context) error
}

// Context is passed to a running command.
type Context struct {
	*Shell
	Args []string
}

// Shell runs commands against the MCU, either one-shot or interactively.
type Shell struct {
	Interactive bool
	OutputJSON  bool

	Config *env.Config
	Client *mcu.Client
	// Now provides host time for syncTime.
	Now func() time.Time
	Out io.Writer
}

const unconnectedPrompt = "[none] > "

var (
	// flags

	evalOnly   bool
	outputJSON bool

	commands = []*Command{
		&ConnectCmd,
		&DisconnectCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*Command) {
	commands = append(commands, cmds...)
}

// Commands returns registered commands sorted by name.
func Commands() []*Command {
	cmds := make([]*Command, len(commands))
	copy(cmds, commands)
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })
	return cmds
}

// FindCmd looks up a command by name or alias.
func FindCmd(name string) *Command {
	for _, cmd := range commands {
		if cmd.Name == name {
			return cmd
		}
		for _, alias := range cmd.Aliases {
			if alias == name {
				return cmd
			}
		}
	}
	return nil
}

// New creates a new shell.
func New(conf *env.Config) *Shell {
	return &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,
		Config:      conf,
		Now:         time.Now,
		Out:         os.Stdout,
	}
}

// Connect opens the configured device unless already connected.
func (s *Shell) Connect() error {
	if s.Client != nil {
		return nil
	}
	client, err := s.Config.Dial()
	if err != nil {
		return err
	}
	glog.V(1).Infof("connected %s", s.Config.Device)
	s.Client = client
	return nil
}

// Disconnect closes the current device.
func (s *Shell) Disconnect() error {
	if s.Client == nil {
		return nil
	}
	err := s.Client.Close()
	s.Client = nil
	return err
}

// Printf writes plain text output.
func (s *Shell) Printf(format string, args ...interface{}) {
	fmt.Fprintf(s.Out, format, args...)
}

// Print writes v as JSON in JSON mode, otherwise the formatted text.
func (s *Shell) Print(v interface{}, format string, args ...interface{}) error {
	if s.OutputJSON {
		out, err := json.Marshal(v)
		if err != nil {
			return err
		}
		fmt.Fprintln(s.Out, string(out))
		return nil
	}
	s.Printf(format, args...)
	return nil
}

// Exec runs one command line.
func (s *Shell) Exec(args ...string) error {
	if len(args) == 0 {
		return Usagef("command expected")
	}
	cmd := FindCmd(args[0])
	if cmd == nil {
		return Usagef("unknown command: %s", args[0])
	}
	return s.run(cmd, args[1:])
}

func (s *Shell) run(cmd *Command, args []string) error {
	if !cmd.Offline {
		if err := s.Connect(); err != nil {
			return err
		}
	}
	return cmd.Func(&Context{Shell: s, Args: args})
}

// Usage prints the command list.
func (s *Shell) Usage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	for _, cmd := range Commands() {
		if cmd.Offline {
			continue
		}
		if cmd.Help != "" {
			fmt.Fprintf(w, "\t%s %s\n", cmd.Name, cmd.Help)
		} else {
			fmt.Fprintf(w, "\t%s\n", cmd.Name)
		}
	}
}

// Run runs the shell and returns the exit code.
func (s *Shell) Run(args ...string) int {
	defer s.Disconnect()
	if len(args) > 0 {
		err := s.Exec(args...)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			var usage *UsageError
			if errors.As(err, &usage) && strings.HasPrefix(usage.Msg, "unknown command") {
				s.Usage(os.Stderr)
			}
		}
		return ExitCode(err)
	}
	if s.Interactive {
		s.interactive()
		return ExitOK
	}
	s.Usage(os.Stderr)
	return ExitUsage
}

func (s *Shell) prompt() string {
	if s.Client == nil {
		return unconnectedPrompt
	}
	return fmt.Sprintf("[%s] > ", s.Config.Device)
}

func (s *Shell) interactive() {
	shell := ishell.New()
	defer shell.Close()
	shell.SetPrompt(s.prompt())
	for _, cmd := range commands {
		cmd := cmd
		shell.AddCmd(&ishell.Cmd{
			Name:    cmd.Name,
			Aliases: cmd.Aliases,
			Help:    cmd.Help,
			Func: func(c *ishell.Context) {
				if err := s.run(cmd, c.Args); err != nil {
					c.Err(err)
				}
				c.SetPrompt(s.prompt())
			},
		})
	}
	shell.Run()
}

var (
	// ConnectCmd connects a device.
	ConnectCmd = Command{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "[DEVICE]",
		Offline: true,
		Func: func(c *Context) error {
			if len(c.Args) > 0 {
				if err := c.Disconnect(); err != nil {
					glog.Warningf("disconnect: %v", err)
				}
				c.Config.Device = c.Args[0]
			}
			return c.Connect()
		},
	}

	// DisconnectCmd disconnects current device.
	DisconnectCmd = Command{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Offline: true,
		Func: func(c *Context) error {
			return c.Disconnect()
		},
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	conf, err := env.NewConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		glog.Flush()
		os.Exit(ExitUsage)
	}
	code := New(conf).Run(flag.Args()...)
	glog.Flush()
	os.Exit(code)
}
