package llm

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	coreerrors "github.com/adalundhe/voiceguard/core/errors"
	"gopkg.in/yaml.v3"
)

var providerEnvKeys = map[string]string{
	"anthropic": "ANTHROPIC_API_KEY",
	"openai":    "OPENAI_API_KEY",
	"google":    "GOOGLE_API_KEY",
}

type credentialsFile struct {
	Credentials map[string]string `yaml:"credentials"`
}

// CredentialsDir is ~/.voiceguard, or "" when the home directory is unknown.
func CredentialsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".voiceguard")
}

func DefaultCredentialsPath() string {
	dir := CredentialsDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "credentials.yaml")
}

// ResolveAPIKey looks up the key for provider in the environment first,
// then in the credentials file.
func ResolveAPIKey(provider string) (string, error) {
	if key := resolveFromEnv(provider); key != "" {
		return key, nil
	}

	creds, err := LoadCredentials()
	if err != nil {
		return "", err
	}
	if key := creds[provider]; key != "" {
		return key, nil
	}

	return "", coreerrors.WrapWithTier(coreerrors.TierUserFixable,
		fmt.Sprintf("no API key for provider %q (set %s or run `voiceguard auth set %s`)",
			provider, GetEnvKeyName(provider), provider),
		coreerrors.ErrMissingAPIKey)
}

func resolveFromEnv(provider string) string {
	envKey, ok := providerEnvKeys[provider]
	if !ok {
		return ""
	}
	return os.Getenv(envKey)
}

// LoadCredentials reads the credentials file. A missing file is an empty map.
func LoadCredentials() (map[string]string, error) {
	path := DefaultCredentialsPath()
	if path == "" {
		return map[string]string{}, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading credentials: %w", err)
	}

	var file credentialsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing credentials: %w", err)
	}
	if file.Credentials == nil {
		return map[string]string{}, nil
	}
	return file.Credentials, nil
}

// SaveCredentials replaces the credentials file, written 0600.
func SaveCredentials(creds map[string]string) error {
	dir := CredentialsDir()
	if dir == "" {
		return fmt.Errorf("could not determine credentials path")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(&credentialsFile{Credentials: creds})
	if err != nil {
		return fmt.Errorf("marshaling credentials: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "credentials.yaml"), data, 0600); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}
	return nil
}

func SetAPIKey(provider, key string) error {
	creds, err := LoadCredentials()
	if err != nil {
		return err
	}
	creds[provider] = key
	return SaveCredentials(creds)
}

// RemoveAPIKey deletes the stored key and reports whether one existed.
func RemoveAPIKey(provider string) (bool, error) {
	creds, err := LoadCredentials()
	if err != nil {
		return false, err
	}
	if _, ok := creds[provider]; !ok {
		return false, nil
	}
	delete(creds, provider)
	return true, SaveCredentials(creds)
}

func GetEnvKeyName(provider string) string {
	return providerEnvKeys[provider]
}

func KnownProviders() []string {
	names := make([]string, 0, len(providerEnvKeys))
	for name := range providerEnvKeys {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func HasCredentials(provider string) bool {
	key, err := ResolveAPIKey(provider)
	return err == nil && key != ""
}
