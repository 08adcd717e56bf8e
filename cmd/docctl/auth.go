package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/docctl/internal/apiclient"
	"github.com/fyrsmithlabs/docctl/internal/session"
)

var (
	// auth command flags
	authEmail         string
	authPassword      string
	authPasswordStdin bool
	authName          string
	authContactEmail  string
)

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(signupCmd)
	rootCmd.AddCommand(whoamiCmd)

	for _, c := range []*cobra.Command{loginCmd, signupCmd} {
		c.Flags().StringVar(&authEmail, "email", "", "Account email (required)")
		c.Flags().StringVar(&authPassword, "password", "", "Account password")
		c.Flags().BoolVar(&authPasswordStdin, "password-stdin", false, "Read the password from stdin")
		_ = c.MarkFlagRequired("email")
	}
	signupCmd.Flags().StringVar(&authName, "name", "", "Display name")
	signupCmd.Flags().StringVar(&authContactEmail, "contact-email", "", "Contact email, if different")
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and print the access token",
	Long: `Exchange email and password for an access token.

The token is printed to stdout and is not stored. Export it for later
commands.

Examples:
  # Log in and export the token
  export DOCCTL_API_TOKEN=$(docctl login --email me@example.com --password-stdin < pw.txt)

  # Full login result as JSON
  docctl login --email me@example.com --password secret --json`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the current token",
	Long: `Drop the token held by this process.

The server keeps no session state, so the token stays valid until it
expires. Unset DOCCTL_API_TOKEN to stop using it.

Examples:
  docctl logout && unset DOCCTL_API_TOKEN`,
	Args: cobra.NoArgs,
	RunE: runLogout,
}

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Register a new account",
	Long: `Register a new account. New accounts wait for administrator approval.

Examples:
  docctl signup --email new@example.com --password-stdin --name "New User" < pw.txt`,
	Args: cobra.NoArgs,
	RunE: runSignup,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the claims of the current token",
	Long: `Decode and print the claims of the current token. The signature is
not verified.

Examples:
  docctl whoami
  docctl whoami --json`,
	Args: cobra.NoArgs,
	RunE: runWhoami,
}

func readPassword(cmd *cobra.Command) (string, error) {
	if authPasswordStdin {
		if authPassword != "" {
			return "", errors.New("--password and --password-stdin are mutually exclusive")
		}
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		authPassword = strings.TrimRight(line, "\r\n")
	}
	if authPassword == "" {
		return "", errors.New("password required: use --password or --password-stdin")
	}
	return authPassword, nil
}

func runLogin(cmd *cobra.Command, _ []string) error {
	a := appFrom(cmd)
	password, err := readPassword(cmd)
	if err != nil {
		return err
	}

	res, err := a.client.Login(cmd.Context(), authEmail, password)
	if err != nil {
		return fmt.Errorf("failed to log in: %w", err)
	}
	return a.emit(res, func(w io.Writer) error {
		_, err := fmt.Fprintln(w, res.AccessToken)
		return err
	})
}

func runLogout(cmd *cobra.Command, _ []string) error {
	a := appFrom(cmd)
	had := a.session.IsAuthenticated()
	a.client.Logout()
	return a.emit(map[string]bool{"cleared": had}, func(w io.Writer) error {
		if !had {
			_, err := fmt.Fprintln(w, "No token was set.")
			return err
		}
		_, err := fmt.Fprintln(w, "Token cleared. Unset "+tokenEnv+" to stop using it.")
		return err
	})
}

func runSignup(cmd *cobra.Command, _ []string) error {
	a := appFrom(cmd)
	password, err := readPassword(cmd)
	if err != nil {
		return err
	}

	req := apiclient.SignupRequest{Email: authEmail, Password: password}
	if authName != "" {
		req.Name = &authName
	}
	if authContactEmail != "" {
		req.ContactEmail = &authContactEmail
	}
	user, err := a.client.Signup(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("failed to sign up: %w", err)
	}
	return a.emit(user, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "Registered %s. An administrator must approve the account before login.\n", user.Email)
		return err
	})
}

func runWhoami(cmd *cobra.Command, _ []string) error {
	a := appFrom(cmd)
	claims, err := a.session.Claims()
	if err != nil {
		if errors.Is(err, session.ErrNoToken) {
			return a.requireToken()
		}
		return fmt.Errorf("failed to decode token: %w", err)
	}
	return a.emit(claims, func(w io.Writer) error {
		return writeClaims(w, claims, time.Now())
	})
}

func writeClaims(w io.Writer, claims map[string]any, now time.Time) error {
	keys := make([]string, 0, len(claims))
	for k := range claims {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, k := range keys {
		fmt.Fprintf(tw, "%s\t%s\n", k, claimValue(claims[k]))
	}
	if exp, ok := session.ExpiresAt(claims); ok {
		state := "valid for " + exp.Sub(now).Round(time.Second).String()
		if !exp.After(now) {
			state = "expired"
		}
		fmt.Fprintf(tw, "expires\t%s (%s)\n", exp.Format(time.RFC3339), state)
	}
	return tw.Flush()
}

// claimValue prints JSON numbers without exponent notation.
func claimValue(v any) string {
	if f, ok := v.(float64); ok && f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return fmt.Sprint(v)
}
