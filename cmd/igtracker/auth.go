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

	"igtracker/pkg/auth"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage stored Instagram sessions",
	Long: `Manage stored Instagram session credentials.

Credentials are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation

Never share your credentials or config files!`,
}

// loginCmd represents the auth login command
var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Store an Instagram session securely",
	Long: `Store an Instagram session token in the system keychain or an encrypted
file.

To get the session token:
1. Log into Instagram in your browser
2. Open Developer Tools (F12)
3. Go to Application/Storage > Cookies
4. Copy the sessionid cookie value`,
	Example: `  # Interactive login
  igtracker auth login

  # Login with username
  igtracker auth login myusername`,
	Args: cobra.MaximumNArgs(1),
	Run:  runLogin,
}

// statusCmd represents the auth status command
var statusCmd = &cobra.Command{
	Use:   "status [username]",
	Short: "Show stored session information",
	Args:  cobra.MaximumNArgs(1),
	Run:   runStatus,
}

// removeCmd represents the auth remove command
var removeCmd = &cobra.Command{
	Use:   "remove <username>",
	Short: "Remove a stored session",
	Args:  cobra.ExactArgs(1),
	Run:   runRemove,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(statusCmd)
	authCmd.AddCommand(removeCmd)
}

func runLogin(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to open credential store:", err)
		os.Exit(1)
	}

	reader := bufio.NewReader(os.Stdin)

	var username string
	if len(args) > 0 {
		username = args[0]
	} else {
		fmt.Print("Instagram username: ")
		input, err := reader.ReadString('\n')
		if err != nil {
			fmt.Fprintln(os.Stderr, "failed to read username:", err)
			os.Exit(1)
		}
		username = strings.TrimSpace(input)
	}
	if username == "" {
		fmt.Fprintln(os.Stderr, "a username is required")
		os.Exit(1)
	}

	if manager.Exists(username) {
		fmt.Printf("Session for '%s' already exists. Replace it? (y/N): ", username)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return
		}
	}

	fmt.Print("sessionid cookie value (hidden): ")
	sessionID, err := readSecret()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to read session ID:", err)
		os.Exit(1)
	}
	if len(sessionID) < 10 {
		fmt.Fprintln(os.Stderr, "that does not look like a session ID, it should be a long opaque string")
		os.Exit(1)
	}

	cred := &auth.Credential{
		Username:     username,
		SessionID:    sessionID,
		LastModified: time.Now(),
	}
	if err := manager.Store(cred); err != nil {
		fmt.Fprintln(os.Stderr, "failed to store session:", err)
		os.Exit(1)
	}

	fmt.Printf("Session stored for %s\n", username)
	fmt.Println("\nRun a sweep with:")
	fmt.Printf("  igtracker sync --account %s\n", username)
}

func runStatus(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to open credential store:", err)
		os.Exit(1)
	}

	username := ""
	if len(args) > 0 {
		username = args[0]
	} else if cfg, err := loadConfig(nil); err == nil {
		username = cfg.Instagram.Username
	}
	if username == "" {
		fmt.Fprintln(os.Stderr, "pass a username or set IGTRACKER_USERNAME")
		os.Exit(1)
	}

	cred, err := manager.Retrieve(username)
	if err != nil {
		fmt.Printf("No stored session for %s\n", username)
		fmt.Println("Use 'igtracker auth login' to store one.")
		os.Exit(1)
	}

	fmt.Printf("Username:      %s\n", cred.Username)
	fmt.Printf("Session ID:    %s\n", maskToken(cred.SessionID))
	fmt.Printf("Last modified: %s\n", cred.LastModified.Format("2006-01-02 15:04:05"))
}

func runRemove(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to open credential store:", err)
		os.Exit(1)
	}

	username := args[0]
	if err := manager.Delete(username); err != nil {
		fmt.Fprintln(os.Stderr, "failed to remove session:", err)
		os.Exit(1)
	}
	fmt.Printf("Session removed for %s\n", username)
}

// readSecret reads a line from stdin without echoing when attached to a
// terminal
func readSecret() (string, error) {
	if term.IsTerminal(int(syscall.Stdin)) {
		secret, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err == nil {
			return strings.TrimSpace(string(secret)), nil
		}
	}

	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

// maskToken shows only the edges of a token
func maskToken(token string) string {
	if len(token) <= 12 {
		return "********"
	}
	return token[:6] + "..." + token[len(token)-4:]
}
