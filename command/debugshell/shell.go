/*
 * shiresim - Debug-shell command table and tokenizer.
 *
 * Copyright 2026, shiresim contributors
 *
 * Grounded on github.com/rcornwell/S370's command/parser/parser.go: a
 * small cmdLine tokenizer (skipSpace/isEOL/getWord) plus a command table
 * matched by unambiguous abbreviation (matchCommand/matchList), dispatched
 * to per-command process functions. The device-attach/detach verbs that
 * table carried have no analogue here; examine/deposit/step/run/show do.
 */
package debugshell

import (
	"errors"
	"strings"
	"unicode"

	"github.com/etsoc/shiresim/command/command"
)

type cmdLine struct {
	line string
	pos  int
}

func (l *cmdLine) skipSpace() {
	for l.pos < len(l.line) && unicode.IsSpace(rune(l.line[l.pos])) {
		l.pos++
	}
}

func (l *cmdLine) isEOL() bool {
	return l.pos >= len(l.line) || l.line[l.pos] == '#'
}

// getWord returns the next run of non-space characters, or "" at EOL.
func (l *cmdLine) getWord() string {
	l.skipSpace()
	start := l.pos
	for !l.isEOL() && !unicode.IsSpace(rune(l.line[l.pos])) {
		l.pos++
	}
	return l.line[start:l.pos]
}

// rest returns everything left on the line past any leading space.
func (l *cmdLine) rest() string {
	l.skipSpace()
	if l.isEOL() {
		return ""
	}
	return l.line[l.pos:]
}

type cmd struct {
	name    string
	min     int
	process func(*cmdLine, *command.Target) (bool, error)
}

var cmdList = []cmd{
	{name: "examine", min: 1, process: examine},
	{name: "deposit", min: 1, process: deposit},
	{name: "step", min: 2, process: step},
	{name: "run", min: 1, process: run},
	{name: "stop", min: 2, process: stopCmd},
	{name: "hart", min: 1, process: selectHart},
	{name: "show", min: 2, process: show},
	{name: "quit", min: 1, process: quit},
}

func matchCommand(m cmd, word string) bool {
	if word == "" || len(word) > len(m.name) {
		return false
	}
	if word != m.name[:len(word)] {
		return false
	}
	return len(word) >= m.min
}

func matchList(word string) []cmd {
	word = strings.ToLower(word)
	var matches []cmd
	for _, m := range cmdList {
		if matchCommand(m, word) {
			matches = append(matches, m)
		}
	}
	return matches
}

// Commands returns the command names, for line-editor completion.
func Commands() []string {
	names := make([]string, len(cmdList))
	for i, m := range cmdList {
		names[i] = m.name
	}
	return names
}

// ProcessCommand tokenizes and dispatches one line of input against tgt.
// The returned bool reports whether the shell should exit.
func ProcessCommand(line string, tgt *command.Target) (bool, error) {
	l := &cmdLine{line: line}
	word := l.getWord()
	if word == "" {
		return false, nil
	}

	matches := matchList(word)
	switch len(matches) {
	case 0:
		return false, errors.New("unknown command: " + word)
	case 1:
		return matches[0].process(l, tgt)
	default:
		return false, errors.New("ambiguous command: " + word)
	}
}
