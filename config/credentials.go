package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

const APIKeyName = "GEMINI_API_KEY"

var (
	ErrNoAPIKey = errors.New("no GEMINI_API_KEY found in secrets or environment")
)

type secrets struct {
	GeminiAPIKey string `toml:"GEMINI_API_KEY" yaml:"GEMINI_API_KEY" json:"GEMINI_API_KEY"`
}

// ResolveAPIKey returns the Gemini API key. The secrets file wins over the
// environment; a missing secrets file is not an error.
func ResolveAPIKey(secretsPath string) (string, error) {
	key, err := readSecretsFile(secretsPath)
	if err != nil {
		return "", err
	}
	if key != "" {
		return key, nil
	}
	if key = strings.TrimSpace(os.Getenv(APIKeyName)); key != "" {
		return key, nil
	}
	return "", ErrNoAPIKey
}

func readSecretsFile(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("failed to stat secrets file %s: %w", path, err)
	}
	var s secrets
	if err := cleanenv.ReadConfig(path, &s); err != nil {
		return "", fmt.Errorf("failed to read secrets file %s: %w", path, err)
	}
	return strings.TrimSpace(s.GeminiAPIKey), nil
}
