package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ppiankov/clearview/internal/api"
)

var (
	loginUser     string
	loginPassword string
	passwordStdin bool
)

// loginCmd exchanges credentials for a session token
var loginCmd = &cobra.Command{
	Use:     "login",
	Aliases: []string{"signup"},
	Short:   "Sign in to the fact-checking service",
	Long: `Sign in with a username and password. The session token is stored
locally and sent with every request until you log out or the service
rejects it.

Example:
  clearview login -u alice
  echo "$PASSWORD" | clearview login -u alice --password-stdin`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the stored session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv(cmd)
		if err != nil {
			return err
		}
		if err := e.session.Logout(); err != nil {
			return fmt.Errorf("logout: %w", err)
		}
		fmt.Fprintln(e.stdout, "Logged out.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show session and local state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv(cmd)
		if err != nil {
			return err
		}
		s := e.out.Styles()

		fmt.Fprintf(e.stdout, "%s %s\n", s.Label.Render("Service:"), e.client.BaseURL())
		if sess, ok := e.session.Current(); ok {
			fmt.Fprintf(e.stdout, "%s %s\n", s.Label.Render("Session:"), s.Success.Render("signed in ("+sess.Scheme+")"))
		} else {
			fmt.Fprintf(e.stdout, "%s %s\n", s.Label.Render("Session:"), s.Muted.Render("signed out"))
		}
		saving := "on"
		if !e.cfg.History.Enabled {
			saving = "off"
		}
		fmt.Fprintf(e.stdout, "%s %d entries (saving %s)\n", s.Label.Render("History:"), e.history.Len(), saving)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd, logoutCmd, statusCmd)

	loginCmd.Flags().StringVarP(&loginUser, "username", "u", "", "username")
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "password (prefer --password-stdin)")
	loginCmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin")
}

func runLogin(cmd *cobra.Command, args []string) error {
	e, err := newEnv(cmd)
	if err != nil {
		return err
	}

	in := bufio.NewReader(cmd.InOrStdin())

	username := strings.TrimSpace(loginUser)
	if username == "" && !passwordStdin {
		fmt.Fprint(e.stderr, "Username: ")
		if username, err = readLine(in); err != nil {
			return fmt.Errorf("read username: %w", err)
		}
	}
	if username == "" {
		return fmt.Errorf("username is required")
	}

	password := loginPassword
	switch {
	case passwordStdin:
		if password, err = readLine(in); err != nil {
			return fmt.Errorf("read password: %w", err)
		}
	case password == "":
		if password, err = promptPassword(in, e.stderr); err != nil {
			return fmt.Errorf("read password: %w", err)
		}
	}
	if password == "" {
		return fmt.Errorf("password is required")
	}

	e.logf("Signing in to %s as %s\n", e.client.BaseURL(), username)

	if _, err := e.session.Login(cmd.Context(), username, password); err != nil {
		return fmt.Errorf("login failed: %s", api.Message(err))
	}

	fmt.Fprintln(e.stdout, e.out.Styles().Success.Render("✓ Logged in as "+username))
	return nil
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// promptPassword reads a password without echo when stdin is a terminal
func promptPassword(in *bufio.Reader, prompt io.Writer) (string, error) {
	fmt.Fprint(prompt, "Password: ")
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(prompt)
		return string(b), err
	}
	return readLine(in)
}
