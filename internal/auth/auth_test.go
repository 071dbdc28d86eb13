package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/alfredjeanlab/pharmacy/internal/model"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "correct horse" || !strings.HasPrefix(hash, "$2") {
		t.Fatalf("unexpected hash %q", hash)
	}
	if err := CheckPassword(hash, "correct horse"); err != nil {
		t.Errorf("CheckPassword(right) = %v", err)
	}
	if err := CheckPassword(hash, "wrong horse"); !errors.Is(err, ErrBadCredentials) {
		t.Errorf("CheckPassword(wrong) = %v, want ErrBadCredentials", err)
	}
}

func TestHashPasswordTooShort(t *testing.T) {
	if _, err := HashPassword("short"); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("err = %v, want ErrPasswordTooShort", err)
	}
}

func TestCheckPasswordEmptyHash(t *testing.T) {
	if err := CheckPassword("", "anything"); !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("err = %v", err)
	}
	if err := CheckPassword("not-a-hash", "anything"); !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("err = %v", err)
	}
}

func testUser() (*model.SystemUser, *model.Role) {
	role := &model.Role{ID: uuid.New(), Name: "cashier", Permissions: []string{"sales-invoices:*", "products:read"}}
	user := &model.SystemUser{ID: uuid.New(), Username: "amira", RoleID: role.ID}
	return user, role
}

func TestIssueAndVerify(t *testing.T) {
	iss, err := NewIssuer("s3cret", time.Hour)
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	user, role := testUser()

	token, expires, err := iss.Issue(user, role)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if d := time.Until(expires); d < 59*time.Minute || d > time.Hour+time.Second {
		t.Errorf("expires in %v, want about 1h", d)
	}

	claims, err := iss.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Subject != user.ID.String() || claims.Username != "amira" || claims.Role != "cashier" {
		t.Errorf("claims = %+v", claims)
	}

	tests := []struct {
		resource, action string
		want             bool
	}{
		{"products", "read", true},
		{"products", "write", false},
		{"sales-invoices", "write", true},
		{"users", "read", false},
	}
	for _, tt := range tests {
		if got := claims.Can(tt.resource, tt.action); got != tt.want {
			t.Errorf("Can(%s, %s) = %v, want %v", tt.resource, tt.action, got, tt.want)
		}
	}
}

func TestVerifyRejects(t *testing.T) {
	iss, _ := NewIssuer("s3cret", time.Hour)
	other, _ := NewIssuer("different", time.Hour)
	user, role := testUser()
	foreign, _, err := other.Issue(user, role)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	expired, _ := NewIssuer("s3cret", time.Minute)
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	stale, _, err := expired.Issue(user, role)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuerName,
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Permissions: []string{"*"},
	})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}

	for name, token := range map[string]string{
		"garbage":   "not.a.token",
		"empty":     "",
		"wrong key": foreign,
		"expired":   stale,
		"alg none":  unsigned,
	} {
		if _, err := iss.Verify(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("%s: err = %v, want ErrInvalidToken", name, err)
		}
	}
}

func TestNewIssuerRequiresSecret(t *testing.T) {
	if _, err := NewIssuer("  ", time.Hour); err == nil {
		t.Fatal("expected error for blank secret")
	}
	iss, err := NewIssuer("x", 0)
	if err != nil {
		t.Fatal(err)
	}
	if iss.ttl != DefaultTokenTTL {
		t.Errorf("ttl = %v, want %v", iss.ttl, DefaultTokenTTL)
	}
}

func TestClaimsContext(t *testing.T) {
	ctx := context.Background()
	if ClaimsFromContext(ctx) != nil {
		t.Fatal("expected nil claims")
	}
	if got := Actor(ctx); got != "system" {
		t.Errorf("Actor = %q", got)
	}
	var nilClaims *Claims
	if nilClaims.Can("products", "read") {
		t.Error("nil claims must not grant anything")
	}

	ctx = WithClaims(ctx, &Claims{Username: "amira", Permissions: []string{"*"}})
	if got := Actor(ctx); got != "amira" {
		t.Errorf("Actor = %q", got)
	}
	if !ClaimsFromContext(ctx).Can("anything", "write") {
		t.Error("* must grant everything")
	}
}
