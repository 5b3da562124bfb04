package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Connect and inspect the Microsoft account",
}

var authURLCmd = &cobra.Command{
	Use:   "url",
	Short: "Print the authorization URL to visit",
	Long: `Print the Microsoft sign-in URL. After consenting, copy the "code" query
parameter from the redirect and pass it to 'graphmail auth connect --code'.`,
	Args: cobra.NoArgs,
	RunE: runAuthURL,
}

var authConnectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Complete sign-in with an authorization code",
	Args:  cobra.NoArgs,
	RunE:  runAuthConnect,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the stored credential",
	Args:  cobra.NoArgs,
	RunE:  runAuthStatus,
}

var authSetSecretCmd = &cobra.Command{
	Use:   "set-secret",
	Short: "Store the OAuth client secret in the system keyring",
	Args:  cobra.NoArgs,
	RunE:  runAuthSetSecret,
}

var authCode string

func init() {
	authConnectCmd.Flags().StringVar(&authCode, "code", "", "authorization code from the redirect")
	_ = authConnectCmd.MarkFlagRequired("code")

	authCmd.AddCommand(authURLCmd)
	authCmd.AddCommand(authConnectCmd)
	authCmd.AddCommand(authStatusCmd)
	authCmd.AddCommand(authSetSecretCmd)
	rootCmd.AddCommand(authCmd)
}

func runAuthURL(cmd *cobra.Command, _ []string) error {
	if credentialService == nil {
		return fmt.Errorf("credential %w", errNotConfigured)
	}

	state := uuid.NewString()
	cmd.Println("Open this URL in a browser and sign in:")
	cmd.Println()
	cmd.Println(credentialService.AuthURL(state))
	cmd.Println()
	cmd.Printf("State: %s\n", state)
	return nil
}

func runAuthConnect(cmd *cobra.Command, _ []string) error {
	if credentialService == nil {
		return fmt.Errorf("credential %w", errNotConfigured)
	}

	user, err := credentialService.Connect(commandContext(cmd), strings.TrimSpace(authCode))
	if err != nil {
		return fmt.Errorf("connecting account: %w", err)
	}

	cmd.Printf("Connected as %s (%s)\n", user.DisplayName, user.Email())
	return nil
}

func runAuthStatus(cmd *cobra.Command, _ []string) error {
	if credentialService == nil {
		return fmt.Errorf("credential %w", errNotConfigured)
	}

	status, err := credentialService.Status(commandContext(cmd))
	if err != nil {
		return err
	}

	cmd.Printf("Scope:     %s\n", status.Scope)
	if !status.Connected {
		cmd.Println("Connected: no")
		cmd.Println("Run 'graphmail auth url' to connect.")
		return nil
	}
	cmd.Println("Connected: yes")
	cmd.Printf("Expires:   %s\n", status.ExpiresAt.Local().Format(time.RFC1123))
	if status.Expired {
		cmd.Println("The access token has expired and will be refreshed on next use.")
	}
	return nil
}

func runAuthSetSecret(cmd *cobra.Command, _ []string) error {
	if secretStore == nil {
		return fmt.Errorf("secret %w", errNotConfigured)
	}

	secret, err := readSecret(cmd)
	if err != nil {
		return err
	}
	if secret == "" {
		return fmt.Errorf("client secret is empty")
	}

	if err := secretStore.SetClientSecret(secret); err != nil {
		return err
	}
	cmd.Println("Client secret saved to the system keyring.")
	return nil
}

// readSecret prompts without echo on a terminal and reads a line otherwise.
func readSecret(cmd *cobra.Command) (string, error) {
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		cmd.Print("Client secret: ")
		b, err := term.ReadPassword(int(f.Fd()))
		cmd.Println()
		if err != nil {
			return "", fmt.Errorf("reading secret: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading secret: %w", err)
	}
	return strings.TrimSpace(line), nil
}
