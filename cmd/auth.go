package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/adalundhe/voiceguard/core/llm"
)

var (
	apiKey          string
	credentialsFile string
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage provider authentication",
	Long:  `Configure API keys for the LLM providers the trainer talks to.`,
}

var authSetCmd = &cobra.Command{
	Use:   "set <provider>",
	Short: "Set API key for a provider",
	Long:  `Set the API key for an LLM provider (anthropic, openai, google).`,
	Args:  cobra.ExactArgs(1),
	RunE:  runAuthSet,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configured providers and their status",
	Long:  `Display which providers have credentials configured.`,
	RunE:  runAuthStatus,
}

var authRemoveCmd = &cobra.Command{
	Use:   "remove <provider>",
	Short: "Remove credentials for a provider",
	Long:  `Remove the stored API key for an LLM provider.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runAuthRemove,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authSetCmd)
	authCmd.AddCommand(authStatusCmd)
	authCmd.AddCommand(authRemoveCmd)

	authSetCmd.Flags().StringVar(&apiKey, "api-key", "", "API key (reads from stdin if not provided)")
	authSetCmd.Flags().StringVar(&credentialsFile, "credentials-file", "", "Path to service account JSON (Google only)")
}

func runAuthSet(cmd *cobra.Command, args []string) error {
	provider := strings.ToLower(args[0])
	if !isValidProvider(provider) {
		return invalidProvider(provider)
	}
	out := cmd.OutOrStdout()

	if credentialsFile != "" {
		if provider != "google" {
			return fmt.Errorf("--credentials-file is only supported for google")
		}
		return saveGoogleCredentialsFile(out, credentialsFile)
	}

	key := apiKey
	if key == "" {
		var err error
		key, err = readKeyInteractive(cmd.InOrStdin(), out, provider)
		if err != nil {
			return err
		}
	}
	if key == "" {
		return fmt.Errorf("empty API key for %s", provider)
	}

	if err := llm.SetAPIKey(provider, key); err != nil {
		return err
	}
	fmt.Fprintf(out, "Credentials saved for %s\n", provider)
	return nil
}

func runAuthStatus(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Provider Status:")
	fmt.Fprintln(out, "----------------")

	for _, p := range llm.KnownProviders() {
		status := "not configured"
		if llm.HasCredentials(p) {
			status = "configured"
		}
		fmt.Fprintf(out, "  %-12s %s\n", p+":", status)
	}
	return nil
}

func runAuthRemove(cmd *cobra.Command, args []string) error {
	provider := strings.ToLower(args[0])
	if !isValidProvider(provider) {
		return invalidProvider(provider)
	}

	removed, err := llm.RemoveAPIKey(provider)
	if err != nil {
		return err
	}
	if !removed {
		fmt.Fprintf(cmd.OutOrStdout(), "No credentials found for %s\n", provider)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Credentials removed for %s\n", provider)
	return nil
}

func isValidProvider(provider string) bool {
	return slices.Contains(llm.KnownProviders(), provider)
}

func invalidProvider(provider string) error {
	return fmt.Errorf("invalid provider: %s (valid: %s)", provider, strings.Join(llm.KnownProviders(), ", "))
}

// readKeyInteractive reads a key without echo on a terminal and a plain
// line otherwise.
func readKeyInteractive(in io.Reader, out io.Writer, provider string) (string, error) {
	fmt.Fprintf(out, "Enter API key for %s: ", provider)

	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		key, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("reading input: %w", err)
		}
		return strings.TrimSpace(string(key)), nil
	}

	key, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(key), nil
}

func saveGoogleCredentialsFile(out io.Writer, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading credentials file: %w", err)
	}

	dir := llm.CredentialsDir()
	if dir == "" {
		return fmt.Errorf("could not determine credentials directory")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	destPath := filepath.Join(dir, "google-credentials.json")
	if err := os.WriteFile(destPath, data, 0600); err != nil {
		return fmt.Errorf("writing credentials file: %w", err)
	}

	fmt.Fprintf(out, "Google credentials saved to %s\n", destPath)
	return nil
}
