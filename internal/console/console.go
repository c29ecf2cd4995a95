// Package console is an interactive command line for inspecting a running
// kernel from the host terminal.
package console

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/google/shlex"

	"rtk/kernel"
)

// Inspector is the read-only kernel view the console works on.
type Inspector interface {
	Snapshot() kernel.Snapshot
	Task(id kernel.TaskID) (kernel.TaskInfo, error)
}

// ErrQuit is returned by Exec for the quit command.
var ErrQuit = errors.New("console: quit")

const (
	ansiBold  = "\x1b[1m"
	ansiRed   = "\x1b[31m"
	ansiReset = "\x1b[0m"
)

// Console executes commands against an Inspector.
type Console struct {
	k     Inspector
	names func(kernel.TaskID) string
	out   io.Writer
	color bool
}

// New returns a console writing to out. names may be nil.
func New(k Inspector, names func(kernel.TaskID) string, out io.Writer, color bool) *Console {
	if names == nil {
		names = func(id kernel.TaskID) string { return "task" + strconv.Itoa(int(id)) }
	}
	return &Console{k: k, names: names, out: out, color: color}
}

type command struct {
	usage string
	help  string
	run   func(c *Console, args []string) error
}

var commands map[string]command

// Filled in init to break the commands -> help -> commands initialization cycle.
func init() {
	commands = map[string]command{
		"help":  {"help", "list commands", (*Console).help},
		"ps":    {"ps", "task table and ready levels", (*Console).ps},
		"ready": {"ready", "ready queues by priority, head first", (*Console).ready},
		"stats": {"stats", "tick and switch counters", (*Console).stats},
		"task":  {"task <id>", "one task in detail", (*Console).task},
		"quit":  {"quit", "leave the console", func(*Console, []string) error { return ErrQuit }},
	}
}

// Exec runs one command line. Unknown commands and bad arguments are
// reported on the output, not returned; only ErrQuit and write errors are.
func (c *Console) Exec(line string) error {
	args, err := shlex.Split(line)
	if err != nil {
		return c.errorf("parse: %v", err)
	}
	if len(args) == 0 {
		return nil
	}
	cmd, ok := commands[args[0]]
	if !ok {
		return c.errorf("unknown command %q (try help)", args[0])
	}
	return cmd.run(c, args[1:])
}

func (c *Console) errorf(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if c.color {
		msg = ansiRed + msg + ansiReset
	}
	_, err := fmt.Fprintln(c.out, msg)
	return err
}

func (c *Console) heading(s string) error {
	if c.color {
		s = ansiBold + s + ansiReset
	}
	_, err := fmt.Fprintln(c.out, s)
	return err
}

func (c *Console) help([]string) error {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		cmd := commands[name]
		if _, err := fmt.Fprintf(c.out, "  %-10s %s\n", cmd.usage, cmd.help); err != nil {
			return err
		}
	}
	return nil
}

func (c *Console) ps([]string) error {
	if err := c.heading("scheduler"); err != nil {
		return err
	}
	_, err := c.k.Snapshot().WriteTo(c.out)
	return err
}

func (c *Console) ready([]string) error {
	s := c.k.Snapshot()
	for p := kernel.NumPriorities - 1; p >= 0; p-- {
		line := fmt.Sprintf("%-5s", kernel.Priority(p))
		for _, id := range s.Ready[p] {
			mark := ""
			if id == s.Current {
				mark = "*"
			}
			line += fmt.Sprintf(" %s%s(%d)", mark, c.names(id), id)
		}
		if _, err := fmt.Fprintln(c.out, line); err != nil {
			return err
		}
	}
	return nil
}

func (c *Console) stats([]string) error {
	s := c.k.Snapshot()
	_, err := fmt.Fprintf(c.out, "ticks=%d switches=%d current=%s prio=%s reschedule=%v\n",
		s.Ticks, s.Switches, c.names(s.Current), s.CurrentPriority, s.Reschedule)
	return err
}

func (c *Console) task(args []string) error {
	if len(args) != 1 {
		return c.errorf("usage: task <id>")
	}
	n, err := strconv.ParseUint(args[0], 10, 8)
	if err != nil {
		return c.errorf("bad task id %q", args[0])
	}
	info, err := c.k.Task(kernel.TaskID(n))
	if err != nil {
		return c.errorf("task %d: %s", n, kernel.Describe(err))
	}
	state := info.State.String()
	if info.Retired {
		state = "retired"
	}
	_, err = fmt.Fprintf(c.out, "%s(%d) prio=%s state=%s sp=%#08x base=%#08x limit=%#08x used=%d\n",
		c.names(info.ID), info.ID, info.Priority, state,
		info.StackPointer, info.StackBase, info.StackLimit, info.StackUsed())
	return err
}
