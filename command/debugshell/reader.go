/*
 * shiresim - Interactive debug-shell REPL.
 *
 * Copyright 2026, shiresim contributors
 *
 * Grounded on github.com/rcornwell/S370's command/reader/reader.go: a
 * liner.Liner prompt loop with history and tab completion, handing each
 * line to the command table and stopping on ProcessCommand's quit bool or
 * a Ctrl-D/Ctrl-C abort.
 */
package debugshell

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/peterh/liner"

	"github.com/etsoc/shiresim/command/command"
)

// Run drives an interactive debug session against tgt until the user
// quits or aborts the prompt (Ctrl-D/Ctrl-C).
func Run(tgt *command.Target) {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	names := Commands()
	line.SetCompleter(func(partial string) []string {
		var out []string
		for _, n := range names {
			if len(partial) <= len(n) && partial == n[:len(partial)] {
				out = append(out, n)
			}
		}
		return out
	})

	for {
		input, err := line.Prompt("shiresim> ")
		if err == nil {
			line.AppendHistory(input)
			quit, cmdErr := ProcessCommand(input, tgt)
			if cmdErr != nil {
				fmt.Println("error: " + cmdErr.Error())
			}
			if quit {
				return
			}
			continue
		}

		if errors.Is(err, liner.ErrPromptAborted) {
			return
		}
		slog.Error("debugshell: error reading line: " + err.Error())
		return
	}
}
