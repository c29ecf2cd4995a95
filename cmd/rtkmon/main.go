// Command rtkmon follows the scheduler trace a board prints on its UART and
// summarises how each task was scheduled.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/mattn/go-colorable"
	"go.bug.st/serial"
)

func main() {
	var (
		port    = flag.String("port", "", "Serial port to read (default: stdin).")
		baud    = flag.Int("baud", 115200, "Serial baud rate.")
		list    = flag.Bool("list", false, "List serial ports and exit.")
		noColor = flag.Bool("no-color", false, "Disable coloured output.")
		quiet   = flag.Bool("quiet", false, "Only print the summary.")
	)
	flag.Parse()

	if *list {
		ports, err := serial.GetPortsList()
		if err != nil {
			fatalf("list ports: %v", err)
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return
	}

	var in io.ReadCloser = os.Stdin
	if *port != "" {
		p, err := serial.Open(*port, &serial.Mode{BaudRate: *baud})
		if err != nil {
			fatalf("open %s: %v", *port, err)
		}
		in = p
	}

	var out io.Writer = colorable.NewColorableStdout()
	if *noColor {
		out = colorable.NewNonColorable(os.Stdout)
	}
	if *quiet {
		out = io.Discard
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	go func() {
		<-ctx.Done()
		// Unblocks the reader; a serial read does not observe ctx.
		in.Close()
	}()

	m := newMonitor(out)
	err := m.follow(in)
	summary := colorable.NewColorableStdout()
	if *noColor {
		summary = colorable.NewNonColorable(os.Stdout)
	}
	m.writeSummary(summary)
	if err != nil && ctx.Err() == nil {
		fatalf("read: %v", err)
	}
}

func fatalf(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(2)
}
