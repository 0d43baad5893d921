package main

import (
	"errors"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/mattn/go-isatty"
)

var errAborted = errors.New("formfuzz: selection aborted")

// interactive reports whether stdin is a terminal the picker can use.
var interactive = func() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// pickModel asks the user to choose one of options.
var pickModel = func(options []string) (string, error) {
	var out string
	prompt := &survey.Select{
		Message:  "Model to fuzz:",
		Options:  options,
		PageSize: 12,
	}
	if err := survey.AskOne(prompt, &out); err != nil {
		if errors.Is(err, terminal.InterruptErr) {
			return "", errAborted
		}
		return "", err
	}
	return out, nil
}
