package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/byway-lms/byway-admin/internal/auth"
	"github.com/byway-lms/byway-admin/internal/browser"
	"github.com/byway-lms/byway-admin/pkg/session"
)

var errNotSignedIn = errors.New("not signed in: run byway-admin login")

func newLoginCmd(a *app) *cobra.Command {
	var email string
	var passwordStdin bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Long: "Exchange an administrator's email and password for a session token.\n" +
			"Only tokens that carry the admin role are stored.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := bufio.NewReader(cmd.InOrStdin())
			out := cmd.ErrOrStderr()

			if email == "" {
				fmt.Fprint(out, "Email: ") //nolint:errcheck
				line, err := in.ReadString('\n')
				if err != nil && !errors.Is(err, io.EOF) {
					return fmt.Errorf("read email: %w", err)
				}
				email = strings.TrimSpace(line)
			}

			var password string
			var err error
			if passwordStdin {
				password, err = readLine(in)
			} else {
				fmt.Fprint(out, "Password: ") //nolint:errcheck
				password, err = a.readPassword(cmd, in)
				fmt.Fprintln(out) //nolint:errcheck
			}
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}

			u, err := a.auth.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			return a.printer(cmd).user(u, "Signed in as "+displayName(u))
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Administrator email (prompted if omitted)")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")
	return cmd
}

// readPassword prompts without echo on a terminal and falls back to a plain
// line read otherwise.
func (a *app) readPassword(cmd *cobra.Command, in *bufio.Reader) (string, error) {
	if a.opts.ReadPassword != nil {
		return a.opts.ReadPassword()
	}
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	return readLine(in)
}

func readLine(in *bufio.Reader) (string, error) {
	line, err := in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func newGoogleLoginCmd(a *app) *cobra.Command {
	var idToken string
	var timeout time.Duration
	var noBrowser bool

	cmd := &cobra.Command{
		Use:   "google-login",
		Short: "Sign in with a Google account",
		Long: "Open Google sign-in in the browser and exchange the returned ID token\n" +
			"for a Byway session. Pass --id-token to skip the browser.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.ErrOrStderr()
			if idToken == "" {
				flow := auth.GoogleFlow{
					ClientID: a.cfg.GoogleClientID,
					Open:     browser.Open,
					Prompt: func(u string) {
						fmt.Fprintf(out, "Open this URL to sign in:\n\n  %s\n\n", u) //nolint:errcheck
					},
					Timeout: timeout,
				}
				if noBrowser {
					flow.Open = func(string) error { return errors.New("browser disabled") }
				}
				fmt.Fprintln(out, "Waiting for Google sign-in...") //nolint:errcheck
				tok, err := flow.IDToken(cmd.Context())
				if err != nil {
					return err
				}
				idToken = tok
			}

			u, err := a.auth.GoogleLogin(cmd.Context(), idToken)
			if err != nil {
				return err
			}
			return a.printer(cmd).user(u, "Signed in as "+displayName(u))
		},
	}
	cmd.Flags().StringVar(&idToken, "id-token", "", "Google ID token to exchange")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "How long to wait for the browser")
	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "Print the sign-in URL instead of opening it")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.auth.Logout(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.") //nolint:errcheck
			return nil
		},
	}
}

// whoami is the session as the route guard sees it.
type whoami struct {
	State     string       `json:"state" yaml:"state"`
	User      session.User `json:"user,omitempty" yaml:"user,omitempty"`
	ExpiresAt string       `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in administrator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := whoami{State: a.guard.State().String()}
			if u, ok := a.guard.CurrentUser(); ok {
				w.User = u
			}
			if tok, ok := a.guard.GetToken(); ok {
				if c, err := a.guard.Decode(tok); err == nil && !c.Expiry().IsZero() {
					w.ExpiresAt = c.Expiry().Format(time.RFC3339)
				}
			}
			return a.printer(cmd).whoami(w)
		},
	}
}

func displayName(u session.User) string {
	switch {
	case u.Name != "" && u.Email != "":
		return u.Name + " <" + u.Email + ">"
	case u.Email != "":
		return u.Email
	}
	return u.Name
}
