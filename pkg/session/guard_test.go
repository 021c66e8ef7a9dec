package session

import (
	"encoding/base64"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}

func newTestGuard(t *testing.T, token string) *Guard {
	t.Helper()
	store := NewMemoryStore()
	if token != "" {
		if err := store.Set(token); err != nil {
			t.Fatal(err)
		}
	}
	return NewGuard(store, WithClock(func() time.Time { return fixedNow }))
}

func TestMalformedTokensAreNoSession(t *testing.T) {
	payload := func(s string) string { return base64.RawURLEncoding.EncodeToString([]byte(s)) }
	header := payload(`{"alg":"HS256","typ":"JWT"}`)

	tests := []struct {
		name  string
		token string
	}{
		{"single segment", "abc"},
		{"two segments", "abc.def"},
		{"four segments", "a.b.c.d"},
		{"garbage base64", header + ".!!!.sig"},
		{"payload not json", header + "." + payload("not json") + ".sig"},
		{"payload is array", header + "." + payload(`["admin"]`) + ".sig"},
		{"payload is string", header + "." + payload(`"admin"`) + ".sig"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(tt.token); err == nil {
				t.Fatalf("Decode(%q) succeeded, want error", tt.token)
			} else {
				var decErr *DecodeError
				if !errors.As(err, &decErr) {
					t.Errorf("Decode error = %T, want *DecodeError", err)
				}
			}

			g := newTestGuard(t, tt.token)
			if g.IsAuthenticated() {
				t.Error("IsAuthenticated() = true, want false")
			}
			if g.IsAdmin() {
				t.Error("IsAdmin() = true, want false")
			}
			if _, ok := g.CurrentUser(); ok {
				t.Error("CurrentUser() ok = true, want false")
			}
			if got := g.State(); got != StateInvalid {
				t.Errorf("State() = %v, want %v", got, StateInvalid)
			}
		})
	}
}

func TestExpiryBoundary(t *testing.T) {
	future := signToken(t, jwt.MapClaims{"exp": fixedNow.Add(time.Second).Unix(), "role": "Admin"})
	past := signToken(t, jwt.MapClaims{"exp": fixedNow.Add(-time.Second).Unix(), "role": "Admin"})
	exact := signToken(t, jwt.MapClaims{"exp": fixedNow.Unix(), "role": "Admin"})
	noExp := signToken(t, jwt.MapClaims{"role": "Admin"})

	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{"one second ahead", future, true},
		{"one second behind", past, false},
		{"exactly now", exact, false},
		{"missing exp", noExp, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGuard(t, tt.token)
			if got := g.IsAuthenticated(); got != tt.want {
				t.Errorf("IsAuthenticated() = %v, want %v", got, tt.want)
			}
		})
	}

	g := newTestGuard(t, past)
	if _, err := g.Check(); !errors.Is(err, ErrExpiredSession) {
		t.Errorf("Check() error = %v, want ErrExpiredSession", err)
	}
}

func TestIsAdminClaimLocations(t *testing.T) {
	exp := fixedNow.Add(time.Hour).Unix()

	tests := []struct {
		name   string
		claims jwt.MapClaims
		want   bool
	}{
		{"microsoft uri title case", jwt.MapClaims{ClaimRoleMicrosoft: "Admin"}, true},
		{"soap uri lower case", jwt.MapClaims{ClaimRoleSOAP: "admin"}, true},
		{"role upper case", jwt.MapClaims{"role": "ADMIN"}, true},
		{"roles list", jwt.MapClaims{"roles": []string{"Instructor", "Admin"}}, true},
		{"role list", jwt.MapClaims{"role": []any{"student", "admin"}}, true},
		{"instructor only", jwt.MapClaims{"role": "Instructor"}, false},
		{"no role claim", jwt.MapClaims{"sub": "42"}, false},
		{"admin substring is not admin", jwt.MapClaims{"role": "administrator"}, false},
		{"first non-empty location wins", jwt.MapClaims{ClaimRoleMicrosoft: "Instructor", "role": "Admin"}, false},
		{"empty location falls through", jwt.MapClaims{ClaimRoleMicrosoft: "", "roles": []string{"admin"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.claims["exp"] = exp
			g := newTestGuard(t, signToken(t, tt.claims))
			if !g.IsAuthenticated() {
				t.Fatal("IsAuthenticated() = false, want true")
			}
			if got := g.IsAdmin(); got != tt.want {
				t.Errorf("IsAdmin() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInstructorIsAuthenticatedButNotAdmin(t *testing.T) {
	g := newTestGuard(t, signToken(t, jwt.MapClaims{
		"exp":  fixedNow.Add(time.Hour).Unix(),
		"role": "Instructor",
	}))
	if !g.IsAuthenticated() {
		t.Error("IsAuthenticated() = false, want true")
	}
	if g.IsAdmin() {
		t.Error("IsAdmin() = true, want false")
	}
	if _, err := g.Check(); !errors.Is(err, ErrMissingRole) {
		t.Errorf("Check() error = %v, want ErrMissingRole", err)
	}
	if got := g.State(); got != StateValidNonAdmin {
		t.Errorf("State() = %v, want %v", got, StateValidNonAdmin)
	}
}

func TestAdminOnExpiredTokenIsFalse(t *testing.T) {
	g := newTestGuard(t, signToken(t, jwt.MapClaims{
		"exp":  fixedNow.Add(-time.Hour).Unix(),
		"role": "admin",
	}))
	if g.IsAdmin() {
		t.Error("IsAdmin() = true for expired token, want false")
	}
	if got := g.State(); got != StateExpired {
		t.Errorf("State() = %v, want %v", got, StateExpired)
	}
}

func TestCurrentUserNormalizesLegacyClaims(t *testing.T) {
	tests := []struct {
		name   string
		claims jwt.MapClaims
		want   User
	}{
		{
			name: "enterprise uris",
			claims: jwt.MapClaims{
				ClaimNameIdentifier: "17",
				ClaimName:           "Kamal",
				ClaimEmailAddress:   "kamal@byway.dev",
				ClaimRoleMicrosoft:  []string{"Admin", "Instructor"},
			},
			want: User{SubjectID: "17", Name: "Kamal", Email: "kamal@byway.dev", Role: "Admin"},
		},
		{
			name: "plain keys",
			claims: jwt.MapClaims{
				"sub":   "abc",
				"name":  "Dana",
				"email": "dana@byway.dev",
				"role":  "Instructor",
			},
			want: User{SubjectID: "abc", Name: "Dana", Email: "dana@byway.dev", Role: "Instructor"},
		},
		{
			name: "name falls back to nameidentifier",
			claims: jwt.MapClaims{
				ClaimNameIdentifier: "user-9",
			},
			want: User{SubjectID: "user-9", Name: "user-9"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.claims["exp"] = fixedNow.Add(time.Hour).Unix()
			g := newTestGuard(t, signToken(t, tt.claims))
			got, ok := g.CurrentUser()
			if !ok {
				t.Fatal("CurrentUser() ok = false, want true")
			}
			if got != tt.want {
				t.Errorf("CurrentUser() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestCurrentUserAbsentWithoutToken(t *testing.T) {
	g := newTestGuard(t, "")
	if _, ok := g.CurrentUser(); ok {
		t.Error("CurrentUser() ok = true with no token")
	}
	if got := g.State(); got != StateAbsent {
		t.Errorf("State() = %v, want %v", got, StateAbsent)
	}
	if _, err := g.Check(); !errors.Is(err, ErrNoSession) {
		t.Errorf("Check() error = %v, want ErrNoSession", err)
	}
}

func TestUnknownAlgStillDecodes(t *testing.T) {
	enc := base64.RawURLEncoding.EncodeToString
	tok := enc([]byte(`{"alg":"XX512"}`)) + "." + enc([]byte(`{"role":"admin","exp":4102444800}`)) + ".sig"
	c, err := Decode(tok)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if !c.IsAdmin() {
		t.Error("IsAdmin() = false, want true")
	}
}

func TestStateIsRecomputedPerCall(t *testing.T) {
	now := fixedNow
	store := NewMemoryStore()
	g := NewGuard(store, WithClock(func() time.Time { return now }))

	if err := g.SetToken(signToken(t, jwt.MapClaims{"exp": fixedNow.Add(time.Minute).Unix(), "role": "admin"})); err != nil {
		t.Fatal(err)
	}
	if !g.IsAdmin() {
		t.Fatal("IsAdmin() = false before expiry")
	}
	now = fixedNow.Add(2 * time.Minute)
	if g.IsAuthenticated() {
		t.Error("IsAuthenticated() = true after the clock passed exp")
	}
}

func TestSetTokenRoundTripWithoutValidation(t *testing.T) {
	for _, tok := range []string{"not-a-jwt", "a.b.c", " padded ", signToken(t, jwt.MapClaims{"exp": 1})} {
		g := newTestGuard(t, "")
		if err := g.SetToken(tok); err != nil {
			t.Fatalf("SetToken(%q) error: %v", tok, err)
		}
		got, ok := g.GetToken()
		if !ok || got != tok {
			t.Errorf("GetToken() = %q, %v; want %q, true", got, ok, tok)
		}
	}
}

func TestRemoveTokenIdempotent(t *testing.T) {
	stores := map[string]Store{
		"memory": NewMemoryStore(),
		"file":   NewFileStore(filepath.Join(t.TempDir(), "nested", TokenFileName)),
	}
	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			g := NewGuard(store)
			if err := g.SetToken("x.y.z"); err != nil {
				t.Fatal(err)
			}
			for i := 0; i < 2; i++ {
				if err := g.RemoveToken(); err != nil {
					t.Fatalf("RemoveToken() call %d error: %v", i+1, err)
				}
				if _, ok := g.GetToken(); ok {
					t.Errorf("GetToken() present after RemoveToken() call %d", i+1)
				}
				if got := g.State(); got != StateAbsent {
					t.Errorf("State() = %v after RemoveToken() call %d, want absent", got, i+1)
				}
			}
		})
	}
}

func TestEvaluateDoesNotTouchStore(t *testing.T) {
	g := newTestGuard(t, "")
	exp := float64(fixedNow.Add(time.Hour).Unix())

	c, err := g.Evaluate(signToken(t, jwt.MapClaims{"exp": exp, "role": "Admin", "email": "a@b.c"}))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if u := c.User(); u.Email != "a@b.c" || u.Role != "Admin" {
		t.Errorf("User() = %+v", u)
	}
	if _, ok := g.GetToken(); ok {
		t.Error("Evaluate must not store the token")
	}

	_, err = g.Evaluate(signToken(t, jwt.MapClaims{"exp": exp, "role": "Instructor"}))
	if !errors.Is(err, ErrMissingRole) {
		t.Errorf("non-admin: err = %v, want ErrMissingRole", err)
	}
	_, err = g.Evaluate(signToken(t, jwt.MapClaims{"exp": float64(fixedNow.Unix()), "role": "Admin"}))
	if !errors.Is(err, ErrExpiredSession) {
		t.Errorf("expired: err = %v, want ErrExpiredSession", err)
	}
}
