// Package auth resolves and validates the Gemini API key.
package auth

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// APIKeyEnv is the environment variable checked first for the API key.
const APIKeyEnv = "GEMINI_API_KEY"

const (
	credentialDir  = ".orthoview"
	credentialFile = "credentials.gpg"
	passphraseFile = ".gpg-passphrase"
)

// ErrNoAPIKey is wrapped by the ValidationError returned when no source
// yields a key.
var ErrNoAPIKey = errors.New("API key not found")

// KeySource names where a key was found.
type KeySource string

const (
	SourceEnv KeySource = "env"
	SourceGPG KeySource = "gpg"
)

// GetAPIKey retrieves the Gemini API key.
// Priority order:
//  1. GEMINI_API_KEY environment variable (a .env file is loaded into it by the CLI)
//  2. GPG-encrypted file at ~/.orthoview/credentials.gpg
func GetAPIKey() (string, error) {
	key, _, err := ResolveAPIKey()
	return key, err
}

// ResolveAPIKey is GetAPIKey that also reports which source supplied the key.
func ResolveAPIKey() (string, KeySource, error) {
	if key := strings.TrimSpace(os.Getenv(APIKeyEnv)); key != "" {
		log.Debug().Msg("Using API key from environment variable")
		return key, SourceEnv, nil
	}

	key, err := getFromGPG()
	if err == nil && key != "" {
		log.Debug().Msg("Using API key from GPG encrypted file")
		return key, SourceGPG, nil
	}

	log.Debug().Err(err).Msg("No API key in GPG credentials")
	return "", "", &ValidationError{
		Type:    ErrTypeNoKey,
		Message: fmt.Sprintf("set %s, add it to a .env file, or store it in ~/%s/%s", APIKeyEnv, credentialDir, credentialFile),
		Err:     ErrNoAPIKey,
	}
}

// getFromGPG decrypts the API key from the GPG-encrypted credentials file.
func getFromGPG() (string, error) {
	credPath, err := getCredentialPath()
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(credPath); os.IsNotExist(err) {
		return "", fmt.Errorf("GPG credentials file not found at %s", credPath)
	}

	log.Debug().Str("file", credPath).Msg("Decrypting GPG credentials")

	args := []string{"--decrypt", "--quiet"}
	if p, ok := usablePassphraseFile(); ok {
		args = append(args, "--pinentry-mode", "loopback", "--passphrase-file", p)
	}
	args = append(args, credPath)

	output, err := exec.Command("gpg", args...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("GPG decryption failed: %s", strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("GPG decryption failed: %w", err)
	}

	return strings.TrimSpace(string(output)), nil
}

// getCredentialPath returns the full path to the credentials file.
func getCredentialPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, credentialDir, credentialFile), nil
}

// usablePassphraseFile looks for .gpg-passphrase in the working directory and
// then in ~/.orthoview. Files readable by group or others are ignored.
func usablePassphraseFile() (string, bool) {
	var candidates []string
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, passphraseFile))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, credentialDir, passphraseFile))
	}

	for _, p := range candidates {
		fi, err := os.Stat(p)
		if err != nil {
			continue
		}
		if mode := fi.Mode().Perm(); mode&0077 != 0 {
			log.Warn().
				Str("passphrase_file", p).
				Str("permissions", fmt.Sprintf("%04o", mode)).
				Msg("Passphrase file has insecure permissions (should be 0600); skipping")
			continue
		}
		return p, true
	}
	return "", false
}
