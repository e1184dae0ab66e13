package app

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// PassphraseEnv names the environment variable that supplies the passphrase
// non-interactively.
const PassphraseEnv = "MDVAULT_PASSPHRASE"

// PassphraseFunc supplies the passphrase that unlocks encrypted versions.
// An empty passphrase with a nil error leaves them locked.
type PassphraseFunc func() (string, error)

// EnvOrPrompt returns a PassphraseFunc that reads PassphraseEnv, falling back
// to a terminal prompt. When stdin is not a terminal it returns "".
func EnvOrPrompt(getenv func(string) string) PassphraseFunc {
	return func() (string, error) {
		if p := getenv(PassphraseEnv); p != "" {
			return p, nil
		}
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return "", nil
		}
		return ReadPassphrase("Passphrase: ")
	}
}

// ReadPassphrase prompts on stderr and reads a passphrase from the terminal
// without echo.
func ReadPassphrase(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(b), nil
}

// ReadNewPassphrase reads a passphrase for new keys, from PassphraseEnv or by
// prompting twice.
func ReadNewPassphrase(getenv func(string) string) (string, error) {
	if p := getenv(PassphraseEnv); p != "" {
		return p, nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", fmt.Errorf("no terminal to prompt on; set %s", PassphraseEnv)
	}
	p, err := ReadPassphrase("New passphrase: ")
	if err != nil {
		return "", err
	}
	confirm, err := ReadPassphrase("Confirm passphrase: ")
	if err != nil {
		return "", err
	}
	if p != confirm {
		return "", fmt.Errorf("passphrases do not match")
	}
	return p, nil
}
