package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/alfredjeanlab/pharmacy/internal/auth"
	"github.com/alfredjeanlab/pharmacy/internal/config"
	"github.com/alfredjeanlab/pharmacy/internal/model"
	"github.com/alfredjeanlab/pharmacy/internal/seed"
	"github.com/alfredjeanlab/pharmacy/internal/store/memory"
	"github.com/alfredjeanlab/pharmacy/internal/ui"
)

func TestFormatEvent(t *testing.T) {
	at := time.Date(2025, 3, 1, 9, 30, 15, 0, time.UTC)
	tests := []struct {
		name string
		data string
		want string
	}{
		{"entity change", `{"entity":"Product","id":"abc","data":{"code":"PAR500"}}`, "09:30:15 Product abc"},
		{"other event", `{"branchId": "b1",  "quantity": 3}`, `09:30:15 {"branchId":"b1","quantity":3}`},
		{"not json", `hello`, "09:30:15 hello"},
		{"low stock", `{"branchId":"b1","productId":"p1","quantity":2,"reorderLevel":5}`, "09:30:15 LOW STOCK product p1 at branch b1: 2 left (reorder at 5)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatEvent(at, []byte(tt.data), ui.Styler{}); got != tt.want {
				t.Errorf("formatEvent = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPrintEvents(t *testing.T) {
	ch := make(chan []byte, 2)
	ch <- []byte(`{"entity":"Branch","id":"1"}`)
	ch <- []byte(`{"entity":"Branch","id":"2"}`)
	close(ch)

	var buf bytes.Buffer
	if err := printEvents(context.Background(), ch, &buf, true, ui.Styler{}); err != nil {
		t.Fatal(err)
	}
	want := `{"entity":"Branch","id":"1"}` + "\n" + `{"entity":"Branch","id":"2"}` + "\n"
	if buf.String() != want {
		t.Fatalf("output = %q", buf.String())
	}
}

func TestPrintEvents_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := printEvents(ctx, make(chan []byte), io.Discard, false, ui.Styler{}); err != nil {
		t.Fatal(err)
	}
}

func TestReadPassword_Pipe(t *testing.T) {
	got, err := readPassword(strings.NewReader("hunter22\r\nignored\n"), io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	if got != "hunter22" {
		t.Fatalf("password = %q", got)
	}

	if _, err := readPassword(strings.NewReader(""), io.Discard); err == nil {
		t.Fatal("expected an error for empty input")
	}
}

func TestCreateUser(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	f, err := seed.Default()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := seed.Apply(ctx, st, f); err != nil {
		t.Fatal(err)
	}

	u, err := createUser(ctx, st, newUser{Username: "amira", Email: "amira@example.com", Role: "pharmacist", Password: "long-enough"})
	if err != nil {
		t.Fatalf("createUser: %v", err)
	}
	if u.FullName != "amira" || !u.IsActive {
		t.Fatalf("unexpected user %+v", u)
	}

	stored, err := st.GetUserByUsername(ctx, "amira")
	if err != nil {
		t.Fatal(err)
	}
	if err := auth.CheckPassword(stored.PasswordHash, "long-enough"); err != nil {
		t.Fatalf("stored hash does not match: %v", err)
	}

	audit, err := st.GetAuditEvent(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if audit.Topic != "pharmacy.users.created" || audit.EntityID != u.ID.String() || audit.Actor != "pharmad" {
		t.Fatalf("unexpected audit event %+v", audit)
	}
	if bytes.Contains(audit.Payload, []byte(stored.PasswordHash)) {
		t.Fatal("audit payload contains the password hash")
	}
}

func TestCreateUser_Rejected(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	if err := st.Roles().Create(ctx, &model.Role{Name: "admin", Permissions: []string{model.PermissionAll}}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		nu   newUser
		want string
	}{
		{"unknown role", newUser{Username: "a", Email: "a@example.com", Role: "ghost", Password: "long-enough"}, "pharmad seed"},
		{"short password", newUser{Username: "a", Email: "a@example.com", Role: "admin", Password: "short"}, "at least"},
		{"bad email", newUser{Username: "a", Email: "nope", Role: "admin", Password: "long-enough"}, "email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := createUser(ctx, st, tt.nu)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestStartBackups_Disabled(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tests := []struct {
		name string
		cfg  config.Config
	}{
		{"no interval", config.Config{BackupS3Bucket: "b"}},
		{"no bucket", config.Config{BackupInterval: time.Minute}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if s := startBackups(context.Background(), &tt.cfg, memory.New(), nil, logger); s != nil {
				s.Stop()
				t.Fatal("expected backups to stay off")
			}
		})
	}
}
