package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

const helpText = `Available commands:
  status                     show sync configuration and last sync time
  configure                  set the backup folder id and service account key
  test                       check the credential and folder access
  export                     upload the local data as today's backup
  import [id]                restore the latest backup, or the one with id
  list                       list backups in the cloud folder
  load <collection> <file>   replace a local collection with a JSON file
  reset                      forget the sync configuration
  watch                      run scheduled backups until interrupted
  exit | quit                leave the program`

// execIface is the command surface the REPL dispatches to. App implements
// it; tests use a stub.
type execIface interface {
	Status(ctx context.Context) error
	Configure(ctx context.Context) error
	Test(ctx context.Context) error
	Export(ctx context.Context) error
	Import(ctx context.Context, fileID string) error
	List(ctx context.Context) error
	Load(ctx context.Context, collection, path string) error
	Reset(ctx context.Context) error
	Watch(ctx context.Context) error
}

// runREPL reads commands line by line from reader until EOF, "exit" or
// "quit". Handler errors are printed and the loop continues.
func runREPL(ctx context.Context, a execIface, prompt func() string, reader *bufio.Reader, w io.Writer) {
	for {
		if p := prompt(); p != "" {
			fmt.Fprint(w, p)
		}

		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var cmdErr error
		switch cmd {
		case "help", "?":
			fmt.Fprintln(w, helpText)
		case "status":
			cmdErr = a.Status(ctx)
		case "configure":
			cmdErr = a.Configure(ctx)
		case "test":
			cmdErr = a.Test(ctx)
		case "export":
			cmdErr = a.Export(ctx)
		case "import":
			if len(args) > 1 {
				fmt.Fprintln(w, "Usage: import [id]")
				continue
			}
			id := ""
			if len(args) == 1 {
				id = args[0]
			}
			cmdErr = a.Import(ctx, id)
		case "l", "list":
			cmdErr = a.List(ctx)
		case "load":
			if len(args) != 2 {
				fmt.Fprintln(w, "Usage: load <collection> <file>")
				continue
			}
			cmdErr = a.Load(ctx, args[0], args[1])
		case "reset":
			cmdErr = a.Reset(ctx)
		case "watch":
			cmdErr = a.Watch(ctx)
		case "exit", "quit":
			fmt.Fprintln(w, "Bye!")
			return
		default:
			fmt.Fprintln(w, "Unknown command:", cmd)
		}

		if cmdErr != nil {
			fmt.Fprintln(w, "Error:", cmdErr)
		}

		if err != nil {
			return
		}
	}
}
