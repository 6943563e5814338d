package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/moffa90/go-badgelink/badge"
)

const historyFile = ".badgectl_history"

func historyPath() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, historyFile)
	}
	return historyFile
}

// complete returns the verbs that start with line.
func complete(line string) []string {
	var c []string
	for _, name := range commandNames() {
		if strings.HasPrefix(name, strings.ToLower(line)) {
			c = append(c, name)
		}
	}
	return c
}

// shell runs an interactive session until EOF, ^C or quit.
func shell(ctx context.Context, client *badge.Client, out io.Writer) error {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(complete)

	path := historyPath()
	if f, err := os.Open(path); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(path); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	fmt.Fprintln(out, `Connected. Type "help" for commands, Ctrl-D to quit.`)
	for {
		if ctx.Err() != nil {
			return nil
		}
		input, err := line.Prompt("badge> ")
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			fmt.Fprintln(out)
			return nil
		}
		if err != nil {
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		fields := strings.Fields(input)
		switch fields[0] {
		case "quit", "exit":
			return nil
		case "help":
			for _, c := range commands {
				fmt.Fprintf(out, "  %-32s %s\n", c.usage(), c.description)
			}
			continue
		}

		if err := execute(ctx, client, out, fields[0], fields[1:]); err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}
	}
}
