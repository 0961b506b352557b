package creds

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// PromptInteractive reads one credential from the terminal: username on
// an echoed line, password and enable secret with echo suppressed via
// golang.org/x/term. Per spec.md §4.3 this is only invoked when the
// parsed credential list is empty; embedders that cannot offer an
// interactive terminal may skip calling it entirely.
func PromptInteractive(in io.Reader, out io.Writer, stdinFd int) (Credential, error) {
	reader := bufio.NewReader(in)

	fmt.Fprint(out, "Username: ")
	username, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return Credential{}, fmt.Errorf("creds: reading username: %w", err)
	}
	username = trimNewline(username)
	if username == "" {
		return Credential{}, fmt.Errorf("creds: username is required")
	}

	password, err := readSecret(out, stdinFd, "Password: ")
	if err != nil {
		return Credential{}, err
	}
	if password == "" {
		password = username
	}

	secret, err := readSecret(out, stdinFd, "Enable secret (blank = same as password): ")
	if err != nil {
		return Credential{}, err
	}
	if secret == "" {
		secret = password
	}

	return Credential{Username: username, Password: password, Secret: secret}, nil
}

func readSecret(out io.Writer, fd int, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("creds: reading secret: %w", err)
	}
	return string(b), nil
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

// StdinFd returns the file descriptor for os.Stdin, the value callers
// pass to PromptInteractive in the common case.
func StdinFd() int {
	return int(os.Stdin.Fd())
}
