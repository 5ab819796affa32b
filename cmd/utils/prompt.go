package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// ReadSecret prompts for a secret without echo when stdin is a terminal,
// and reads one line otherwise.
func ReadSecret(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && !(err == io.EOF && line != "") {
			return "", err
		}
		return strings.TrimSpace(line), nil
	}
	fmt.Fprint(os.Stderr, prompt)
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}

// SecretFromList returns the index'th preloaded secret, the last one when
// the list is shorter, or prompts when the list is empty.
func SecretFromList(prompt string, index int, secrets []string) (string, error) {
	if len(secrets) > 0 {
		if index < len(secrets) {
			return secrets[index], nil
		}
		return secrets[len(secrets)-1], nil
	}
	return ReadSecret(prompt)
}

// ReadSecretFile reads a file of secrets, one per line.
func ReadSecretFile(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret file: %w", err)
	}
	lines := strings.Split(string(raw), "\n")
	out := lines[:0]
	for _, line := range lines {
		if line = strings.TrimRight(line, "\r"); line != "" {
			out = append(out, line)
		}
	}
	return out, nil
}
