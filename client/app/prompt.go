// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package app

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"decred.org/wadwallet/cashu/encode"
	"golang.org/x/term"
)

// PasswordPrompt prompts the user to enter a password. Password must not be an
// empty string.
func PasswordPrompt(prompt string) ([]byte, error) {
	fmt.Print(prompt)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return nil, err
	}
	if len(password) == 0 {
		return nil, errors.New("password must not be empty")
	}
	return password, nil
}

// NewPasswordPrompt prompts for a new password twice and checks that the
// entries match.
func NewPasswordPrompt() ([]byte, error) {
	pw, err := PasswordPrompt("Set a wallet password: ")
	if err != nil {
		return nil, err
	}
	confirm, err := PasswordPrompt("Confirm the wallet password: ")
	if err != nil {
		encode.ClearBytes(pw)
		return nil, err
	}
	defer encode.ClearBytes(confirm)
	if string(pw) != string(confirm) {
		encode.ClearBytes(pw)
		return nil, errors.New("passwords do not match")
	}
	return pw, nil
}

// LinePrompt prints the prompt and reads one trimmed line from r.
func LinePrompt(r io.Reader, prompt string) (string, error) {
	fmt.Print(prompt)
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", errors.New("no input")
	}
	return line, nil
}
