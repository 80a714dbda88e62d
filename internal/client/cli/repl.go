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
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	Status(ctx context.Context) error
	Refresh(ctx context.Context) error
	DeleteAccount(ctx context.Context) error
	Get(ctx context.Context, path string) error
	Post(ctx context.Context, path string) error
	Delete(ctx context.Context, path string) error
	Download(ctx context.Context, path, dest string) error
}

// runREPL starts a simple read–eval–print loop for the API client.
//
// It reads a line from the provided scanner, parses the first token as the
// command and the rest as its arguments, and dispatches to methods on 'a'.
// The loop exits on scanner EOF or when the user types "exit" or "quit".
//
// Prompt & Commands
//
//	Not logged in:
//	  - help                   show available commands
//	  - register               create an account
//	  - login                  authenticate
//	  - status                 show the local session
//	  - get <path>             unauthenticated calls still work
//	  - exit | quit            leave the program
//
//	Logged in, additionally:
//	  - whoami                 fetch the identity from the server
//	  - post <path>            send a JSON body (interactive)
//	  - delete <path>          DELETE a resource
//	  - download <path> <file> fetch a file over the cookie channel
//	  - refresh                rotate the access token now
//	  - delete-account         remove the remote account
//	  - logout                 end the session
//
// Errors returned by command handlers are printed and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("api %s> ", statusFn()))
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
				printlnFn("Available commands: whoami, status, get, post, delete, download, refresh, delete-account, logout, exit")
			} else {
				printlnFn("Available commands: register, login, status, get, exit")
			}

		case "register":
			err = a.Register(ctx)

		case "login":
			err = a.Login(ctx)

		case "logout":
			err = a.Logout(ctx)

		case "whoami":
			err = a.WhoAmI(ctx)

		case "status":
			err = a.Status(ctx)

		case "refresh":
			err = a.Refresh(ctx)

		case "delete-account":
			err = a.DeleteAccount(ctx)

		case "get", "post", "delete":
			if len(args) != 1 {
				printlnFn(fmt.Sprintf("Usage: %s <path>", cmd))
				continue
			}
			switch cmd {
			case "get":
				err = a.Get(ctx, args[0])
			case "post":
				err = a.Post(ctx, args[0])
			default:
				err = a.Delete(ctx, args[0])
			}

		case "download":
			if len(args) != 2 {
				printlnFn("Usage: download <path> <file>")
				continue
			}
			err = a.Download(ctx, args[0], args[1])

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			printlnFn("Error:", describe(err))
		}
	}
}
