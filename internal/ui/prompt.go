package ui

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrAborted is returned when input ends before an answer is given.
var ErrAborted = errors.New("input aborted")

// Action is a user decision about a generated message.
type Action string

const (
	ActionAccept     Action = "yes"
	ActionEdit       Action = "edit"
	ActionRegenerate Action = "regenerate"
	ActionCopy       Action = "copy"
	ActionCancel     Action = "no"
)

// Prompter reads answers line by line.
type Prompter struct {
	display *Display
	in      *bufio.Reader
}

// NewPrompter reads from in and writes questions through d.
func NewPrompter(d *Display, in io.Reader) *Prompter {
	return &Prompter{display: d, in: bufio.NewReader(in)}
}

func (p *Prompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSpace(line), nil
		}
		if errors.Is(err, io.EOF) {
			return "", ErrAborted
		}
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// Confirm asks a yes/no question. An empty answer yields def.
func (p *Prompter) Confirm(question string, def bool) (bool, error) {
	hint := "[y/N]"
	if def {
		hint = "[Y/n]"
	}
	for {
		p.display.bold.Fprintf(p.display.out, "%s %s: ", question, hint)
		answer, err := p.readLine()
		if err != nil {
			return false, err
		}
		switch strings.ToLower(answer) {
		case "":
			return def, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		p.display.Warning("Please answer y or n")
	}
}

// Ask prompts for free text. An empty answer yields def.
func (p *Prompter) Ask(question, def string) (string, error) {
	if def != "" {
		p.display.bold.Fprintf(p.display.out, "%s [%s]: ", question, def)
	} else {
		p.display.bold.Fprintf(p.display.out, "%s: ", question)
	}
	answer, err := p.readLine()
	if err != nil {
		return "", err
	}
	if answer == "" {
		return def, nil
	}
	return answer, nil
}

// Option is one entry of a Select list.
type Option struct {
	Value       string
	Description string
}

// Select shows a numbered list and returns the chosen value. Answers may be
// the number or the value itself; an empty answer picks def when set.
func (p *Prompter) Select(question string, options []Option, def string) (string, error) {
	if len(options) == 0 {
		return "", errors.New("no options to choose from")
	}

	p.display.bold.Fprintln(p.display.out, question)
	for i, o := range options {
		fmt.Fprintf(p.display.out, "  %2d) ", i+1)
		p.display.cyan.Fprintf(p.display.out, "%-10s", o.Value)
		if o.Description != "" {
			fmt.Fprintf(p.display.out, " %s", o.Description)
		}
		fmt.Fprintln(p.display.out)
	}

	for {
		if def != "" {
			fmt.Fprintf(p.display.out, "Choice [1-%d, default %s]: ", len(options), def)
		} else {
			fmt.Fprintf(p.display.out, "Choice [1-%d]: ", len(options))
		}
		answer, err := p.readLine()
		if err != nil {
			return "", err
		}
		if answer == "" && def != "" {
			return def, nil
		}
		if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= len(options) {
			return options[n-1].Value, nil
		}
		for _, o := range options {
			if strings.EqualFold(answer, o.Value) {
				return o.Value, nil
			}
		}
		p.display.Warning(fmt.Sprintf("Invalid choice %q", answer))
	}
}

// ChooseAction asks what to do with a generated message.
func (p *Prompter) ChooseAction() (Action, error) {
	for {
		p.display.bold.Fprint(p.display.out, "Use this message? [Y]es / [e]dit / [r]egenerate / [c]opy / [n]o: ")
		answer, err := p.readLine()
		if err != nil {
			return "", err
		}
		switch strings.ToLower(answer) {
		case "", "y", "yes":
			return ActionAccept, nil
		case "e", "edit":
			return ActionEdit, nil
		case "r", "regenerate":
			return ActionRegenerate, nil
		case "c", "copy":
			return ActionCopy, nil
		case "n", "no", "q", "quit":
			return ActionCancel, nil
		}
		p.display.Warning(fmt.Sprintf("Unknown action %q", answer))
	}
}

// EditMessage reads a replacement message terminated by an empty line.
// With no input the current message is kept.
func (p *Prompter) EditMessage(current string) (string, error) {
	fmt.Fprintln(p.display.out, "Enter the new message (finish with an empty line):")
	var lines []string
	for {
		line, err := p.in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("read input: %w", err)
		}
		trimmed := strings.TrimRight(line, "\r\n")
		if trimmed == "" {
			break
		}
		lines = append(lines, trimmed)
		if err != nil {
			break
		}
	}
	if len(lines) == 0 {
		return current, nil
	}
	return strings.Join(lines, "\n"), nil
}
