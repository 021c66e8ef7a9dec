package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// GoogleAuthURL is Google's OAuth 2.0 authorization endpoint.
const GoogleAuthURL = "https://accounts.google.com/o/oauth2/v2/auth"

// ErrNoClientID means federated login was requested without a Google client id.
var ErrNoClientID = errors.New("google client id is not configured (set BYWAY_GOOGLE_CLIENT_ID)")

// GoogleFlow obtains a Google ID token through the browser. Google posts the
// token back to a one-shot callback server on the loopback interface.
type GoogleFlow struct {
	ClientID string
	// Open shows the sign-in page, typically browser.Open.
	Open func(url string) error
	// Prompt is told the URL when Open fails so the user can visit it by hand.
	Prompt  func(url string)
	Timeout time.Duration
	// AuthURL overrides GoogleAuthURL.
	AuthURL string
}

type callbackResult struct {
	idToken string
	err     error
}

// IDToken runs the browser round trip and returns the ID token.
func (f GoogleFlow) IDToken(ctx context.Context) (string, error) {
	if f.ClientID == "" {
		return "", ErrNoClientID
	}
	timeout := f.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("auth.IDToken: start callback listener: %w", err)
	}
	defer listener.Close() //nolint:errcheck

	state, err := randomHex(16)
	if err != nil {
		return "", fmt.Errorf("auth.IDToken: generate state: %w", err)
	}
	nonce, err := randomHex(16)
	if err != nil {
		return "", fmt.Errorf("auth.IDToken: generate nonce: %w", err)
	}

	port := listener.Addr().(*net.TCPAddr).Port
	redirect := "http://127.0.0.1:" + strconv.Itoa(port) + "/callback"

	resultCh := make(chan callbackResult, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		// Requests without the matching state are not ours; keep waiting.
		if r.FormValue("state") != state {
			http.Error(w, "invalid state", http.StatusForbidden)
			return
		}
		if e := r.FormValue("error"); e != "" {
			http.Error(w, "sign-in failed", http.StatusBadRequest)
			deliver(resultCh, callbackResult{err: fmt.Errorf("google: %s", e)})
			return
		}
		tok := r.FormValue("id_token")
		if tok == "" {
			http.Error(w, "missing id_token", http.StatusBadRequest)
			deliver(resultCh, callbackResult{err: errors.New("callback received without id_token")})
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, callbackHTML) //nolint:errcheck
		deliver(resultCh, callbackResult{idToken: tok})
	})

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if srvErr := srv.Serve(listener); srvErr != nil && !errors.Is(srvErr, http.ErrServerClosed) {
			deliver(resultCh, callbackResult{err: srvErr})
		}
	}()
	defer func() {
		shutCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutCtx) //nolint:errcheck
	}()

	loginURL := f.loginURL(redirect, state, nonce)
	if f.Open == nil || f.Open(loginURL) != nil {
		if f.Prompt != nil {
			f.Prompt(loginURL)
		}
	}

	select {
	case res := <-resultCh:
		if res.err != nil {
			return "", fmt.Errorf("auth.IDToken: %w", res.err)
		}
		return res.idToken, nil
	case <-ctx.Done():
		return "", fmt.Errorf("auth.IDToken: %w", ctx.Err())
	case <-time.After(timeout):
		return "", fmt.Errorf("auth.IDToken: no callback received within %s", timeout)
	}
}

func (f GoogleFlow) loginURL(redirect, state, nonce string) string {
	base := f.AuthURL
	if base == "" {
		base = GoogleAuthURL
	}
	q := url.Values{}
	q.Set("client_id", f.ClientID)
	q.Set("redirect_uri", redirect)
	q.Set("response_type", "id_token")
	q.Set("response_mode", "form_post")
	q.Set("scope", "openid email profile")
	q.Set("state", state)
	q.Set("nonce", nonce)
	q.Set("prompt", "select_account")
	return base + "?" + q.Encode()
}

// deliver keeps the first result; later callbacks are dropped.
func deliver(ch chan<- callbackResult, r callbackResult) {
	select {
	case ch <- r:
	default:
	}
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

const callbackHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>Byway Admin</title>
<style>
body{background:#0f172a;color:#e2e8f0;font-family:system-ui,sans-serif;height:100vh;margin:0;display:flex;align-items:center;justify-content:center}
.card{text-align:center}
h1{font-size:20px;margin-bottom:8px}
p{color:#94a3b8;font-size:14px}
</style>
</head>
<body>
<div class="card">
<h1>Signed in to Byway Admin</h1>
<p>You can close this tab and return to your terminal.</p>
</div>
</body>
</html>`
