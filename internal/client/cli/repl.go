package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Capture(ctx context.Context) error
	List(ctx context.Context) error
	Show(ctx context.Context, args []string) error
	Delete(ctx context.Context, args []string) error
	Insights(ctx context.Context) error
	Sync(ctx context.Context) error
	Mode(ctx context.Context, args []string) error
	Status(ctx context.Context) error
}

// runREPL reads one command per line and dispatches it to a. The loop exits
// on scanner EOF or when the user types "exit" or "quit".
//
//	Signed out:  help, login, status, exit
//	Signed in:   help, add, list, show <id>, delete <id>, insights,
//	             sync, mode [local|cloud], status, logout, exit
//
// Handler errors are printed and the loop carries on.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("lm (%s) > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var err error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: (a)dd, (l)ist, show <id>, delete <id>, insights, sync, mode [local|cloud], status, logout, exit")
			} else {
				printlnFn("Available commands: login, status, exit")
			}
		case "login":
			err = a.Login(ctx)
		case "status":
			err = a.Status(ctx)
		case "exit", "quit":
			printlnFn("Bye!")
			return
		default:
			if !a.isLoggedIn() {
				if known(cmd) {
					printlnFn("Please login first")
				} else {
					printlnFn("Unknown command:", cmd)
				}
				continue
			}
			err = dispatch(ctx, a, cmd, args)
		}
		if err != nil {
			printlnFn(styleError.Render("Error: " + err.Error()))
		}
	}
}

var signedInCommands = map[string]bool{
	"a": true, "add": true, "l": true, "list": true, "show": true, "delete": true,
	"insights": true, "sync": true, "mode": true, "logout": true,
}

func known(cmd string) bool { return signedInCommands[cmd] }

func dispatch(ctx context.Context, a execIface, cmd string, args []string) error {
	switch cmd {
	case "a", "add":
		return a.Capture(ctx)
	case "l", "list":
		return a.List(ctx)
	case "show":
		return a.Show(ctx, args)
	case "delete":
		return a.Delete(ctx, args)
	case "insights":
		return a.Insights(ctx)
	case "sync":
		return a.Sync(ctx)
	case "mode":
		return a.Mode(ctx, args)
	case "logout":
		return a.Logout(ctx)
	}
	printlnFn("Unknown command:", cmd)
	return nil
}
