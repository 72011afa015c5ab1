package ui

import (
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/AlecAivazis/survey/v2"
	"github.com/fatih/color"
	"golang.org/x/term"
)

// PromptInput reads one line of user input with the given label. The
// caller owns validation; this only trims whitespace.
func PromptInput(label string) (string, error) {
	var value string
	prompt := &survey.Input{Message: label}
	if err := survey.AskOne(prompt, &value); err != nil {
		return "", err
	}
	return strings.TrimSpace(value), nil
}

// PromptSecret reads an API key without echoing it to the terminal.
func PromptSecret(label string) (string, error) {
	fmt.Printf("%s: ", label)
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read secret: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}

// ShowMenu displays a selection menu and returns the chosen index.
func ShowMenu(message string, options []string) (int, error) {
	var choice string
	prompt := &survey.Select{
		Message: message,
		Options: options,
	}
	if err := survey.AskOne(prompt, &choice); err != nil {
		return -1, err
	}
	for i, opt := range options {
		if opt == choice {
			return i, nil
		}
	}
	return -1, fmt.Errorf("unknown selection: %s", choice)
}

// PromptYesNo asks a yes/no question with a default.
func PromptYesNo(message string, defaultYes bool) (bool, error) {
	confirmed := defaultYes
	prompt := &survey.Confirm{
		Message: message,
		Default: defaultYes,
	}
	if err := survey.AskOne(prompt, &confirmed); err != nil {
		return false, err
	}
	return confirmed, nil
}

// ShowResult prints an accepted command or query in bright green.
func ShowResult(text string) {
	green := color.New(color.FgHiGreen, color.Bold)
	green.Printf(" %s\n", text)
	fmt.Println()
}

// ShowSuccess displays a success message
func ShowSuccess(message string) {
	green := color.New(color.FgGreen, color.Bold)
	green.Printf("✓ %s\n", message)
}

// ShowError displays an error message
func ShowError(message string) {
	red := color.New(color.FgRed, color.Bold)
	red.Printf("✗ %s\n", message)
}

// ShowWarning displays a warning message
func ShowWarning(message string) {
	yellow := color.New(color.FgYellow)
	yellow.Printf("! %s\n", message)
}

// ShowInfo displays an info message
func ShowInfo(message string) {
	blue := color.New(color.FgBlue)
	blue.Println(message)
}

// ShowSection displays a bold section header
func ShowSection(title string) {
	cyan := color.New(color.FgCyan, color.Bold)
	cyan.Printf("\n%s\n", title)
}

// Stderr warning used where colored output would be noise (history append
// failures and other best-effort paths).
func Warnf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Warning: "+format+"\n", args...)
}
