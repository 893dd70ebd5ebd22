package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/hlosukwakha/idempotence-in-jira-api/pkg/auth"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage Jira credentials",
	Long: `Manage stored Jira API credentials securely.

Credentials are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (read-only fallback)

Never share your API token or config files!`,
}

// loginCmd represents the auth login command
var loginCmd = &cobra.Command{
	Use:   "login [site]",
	Short: "Store Jira credentials securely",
	Long: `Store Jira Cloud credentials securely in the system keychain or an
encrypted file.

You will be prompted for:
  - Site base URL (e.g. https://mycompany.atlassian.net)
  - Account email
  - API token (input is hidden)

Create an API token at:
  https://id.atlassian.com/manage-profile/security/api-tokens`,
	Example: `  # Store credentials under the default site name
  jirasync auth login

  # Store credentials under a named site
  jirasync auth login work`,
	Args: cobra.MaximumNArgs(1),
	Run:  runLogin,
}

// statusCmd represents the auth status command
var statusCmd = &cobra.Command{
	Use:   "status [site]",
	Short: "Show stored credential status",
	Long:  `Show whether credentials are stored for a site, with the token redacted.`,
	Args:  cobra.MaximumNArgs(1),
	Run:   runStatus,
}

// logoutCmd represents the auth logout command
var logoutCmd = &cobra.Command{
	Use:   "logout [site]",
	Short: "Remove stored credentials",
	Long:  `Remove stored Jira credentials for a site.`,
	Example: `  # Remove the default site's credentials
  jirasync auth logout

  # Remove a named site's credentials
  jirasync auth logout work`,
	Args: cobra.MaximumNArgs(1),
	Run:  runLogout,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(statusCmd)
	authCmd.AddCommand(logoutCmd)
}

func siteArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return auth.DefaultSite
}

func runLogin(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to initialize credential manager:", err)
		os.Exit(1)
	}

	site := siteArg(args)
	reader := bufio.NewReader(os.Stdin)

	if existing, _ := manager.Retrieve(site); existing != nil {
		fmt.Printf("Site '%s' already has credentials. Update them? (y/N): ", site)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return
		}
	}

	fmt.Print("Jira site URL (https://<name>.atlassian.net): ")
	baseURL, err := reader.ReadString('\n')
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to read site URL:", err)
		os.Exit(1)
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if !strings.HasPrefix(baseURL, "http") {
		fmt.Fprintln(os.Stderr, "Site URL must start with http:// or https://")
		os.Exit(1)
	}

	fmt.Print("Account email: ")
	email, err := reader.ReadString('\n')
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to read email:", err)
		os.Exit(1)
	}
	email = strings.TrimSpace(email)
	if !strings.Contains(email, "@") {
		fmt.Fprintln(os.Stderr, "That doesn't look like an email address")
		os.Exit(1)
	}

	fmt.Print("API token (input hidden): ")
	token, err := readPassword()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to read API token:", err)
		os.Exit(1)
	}
	fmt.Println()
	if len(token) < 10 {
		fmt.Fprintln(os.Stderr, "That doesn't look like a valid API token")
		os.Exit(1)
	}

	creds := &auth.Credentials{
		Site:         site,
		BaseURL:      baseURL,
		Email:        email,
		APIToken:     token,
		LastModified: time.Now(),
	}

	if err := manager.Store(creds); err != nil {
		fmt.Fprintln(os.Stderr, "Failed to store credentials:", err)
		os.Exit(1)
	}

	fmt.Printf("\nCredentials stored for site '%s' (%s)\n", site, baseURL)
	fmt.Println("\nNext step:")
	fmt.Println("  $ jirasync export --project <KEY>")
}

func runStatus(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to initialize credential manager:", err)
		os.Exit(1)
	}

	site := siteArg(args)
	creds, err := manager.Retrieve(site)
	if err != nil || creds == nil {
		fmt.Printf("No credentials stored for site '%s'\n", site)
		fmt.Println("Run 'jirasync auth login' to store some.")
		os.Exit(1)
	}

	fmt.Printf("Site:      %s\n", creds.Site)
	fmt.Printf("Base URL:  %s\n", creds.BaseURL)
	fmt.Printf("Email:     %s\n", creds.Email)
	fmt.Printf("API token: %s\n", redactToken(creds.APIToken))
	if !creds.LastModified.IsZero() {
		fmt.Printf("Stored:    %s\n", creds.LastModified.Format(time.RFC3339))
	}
}

func runLogout(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to initialize credential manager:", err)
		os.Exit(1)
	}

	site := siteArg(args)
	if !manager.Exists(site) {
		fmt.Printf("No credentials stored for site '%s'\n", site)
		return
	}

	reader := bufio.NewReader(os.Stdin)
	fmt.Printf("Remove credentials for site '%s'? (y/N): ", site)
	input, _ := reader.ReadString('\n')
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
		return
	}

	if err := manager.Delete(site); err != nil {
		fmt.Fprintln(os.Stderr, "Failed to remove credentials:", err)
		os.Exit(1)
	}
	fmt.Printf("Credentials removed for site '%s'\n", site)
}

// readPassword reads a line without echoing it to the terminal
func readPassword() (string, error) {
	data, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func redactToken(token string) string {
	if len(token) <= 8 {
		return "********"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
