// Package browser opens links such as cover pictures and the Google sign-in
// page in the user's default browser.
package browser

import (
	"errors"
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
)

// ErrNoURL is returned when there is nothing to open.
var ErrNoURL = errors.New("no url to open")

// command returns the launcher for goos.
func command(goos, target string) (*exec.Cmd, error) {
	switch goos {
	case "darwin":
		return exec.Command("open", target), nil
	case "linux", "freebsd", "openbsd", "netbsd":
		return exec.Command("xdg-open", target), nil
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", target), nil
	default:
		return nil, fmt.Errorf("unsupported OS: %s", goos)
	}
}

// Open opens an http or https URL in the user's default browser.
func Open(rawURL string) error {
	if rawURL == "" {
		return ErrNoURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("browser.Open: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("browser.Open: refusing %q scheme", u.Scheme)
	}
	cmd, err := command(runtime.GOOS, u.String())
	if err != nil {
		return fmt.Errorf("browser.Open: %w", err)
	}
	return cmd.Start()
}
