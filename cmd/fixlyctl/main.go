// Command fixlyctl is a terminal host for the fixly session layer. It keeps
// the session in a local SQLite file (or Redis) between invocations.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args, os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		usage(args, stderr)
		return 2
	}

	cmd, ok := commands[args[1]]
	if !ok {
		usage(args, stderr)
		return 2
	}

	a, err := newApp(ctx, stdout, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	defer a.Close()

	return cmd(ctx, a, args[2:])
}

func usage(args []string, w io.Writer) {
	name := "fixlyctl"
	if len(args) > 0 && args[0] != "" {
		name = filepath.Base(args[0])
	}
	fmt.Fprintf(w, "usage:\n")
	fmt.Fprintf(w, "  %s login -u <user> [-p <password>] [-tenant <id>] [-location <id>]\n", name)
	fmt.Fprintf(w, "  %s logout [-local]\n", name)
	fmt.Fprintf(w, "  %s me\n", name)
	fmt.Fprintf(w, "  %s status\n", name)
	fmt.Fprintf(w, "  %s sections\n", name)
	fmt.Fprintf(w, "  %s can <section>\n", name)
	fmt.Fprintf(w, "  %s get <path>\n", name)
	fmt.Fprintf(w, "  %s check [-page <path>]\n", name)
	fmt.Fprintf(w, "  %s watch [-interval <duration>]\n", name)
}
