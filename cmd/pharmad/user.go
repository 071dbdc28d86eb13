package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/alfredjeanlab/pharmacy/internal/auth"
	"github.com/alfredjeanlab/pharmacy/internal/events"
	"github.com/alfredjeanlab/pharmacy/internal/model"
	"github.com/alfredjeanlab/pharmacy/internal/store"
)

var userCmd = &cobra.Command{
	Use:     "user",
	Short:   "Manage operator accounts",
	GroupID: "data",
}

var userCreateCmd = &cobra.Command{
	Use:   "create <username>",
	Short: "Create an operator account",
	Long:  "Create an operator account. The password is prompted for on a terminal, or read from the first line of stdin otherwise.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, logCloser, err := setup()
		if err != nil {
			return err
		}
		defer logCloser.Close()

		email, _ := cmd.Flags().GetString("email")
		fullName, _ := cmd.Flags().GetString("full-name")
		roleName, _ := cmd.Flags().GetString("role")

		password, err := readPassword(cmd.InOrStdin(), cmd.ErrOrStderr())
		if err != nil {
			return err
		}

		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		u, err := createUser(cmd.Context(), st, newUser{
			Username: args[0],
			Email:    email,
			FullName: fullName,
			Role:     roleName,
			Password: password,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created user %s (%s)\n", u.Username, u.ID)
		return nil
	},
}

func init() {
	userCreateCmd.Flags().String("email", "", "email address (required)")
	userCreateCmd.Flags().String("full-name", "", "display name (default username)")
	userCreateCmd.Flags().String("role", "admin", "role name")
	_ = userCreateCmd.MarkFlagRequired("email")
	userCmd.AddCommand(userCreateCmd)
}

type newUser struct {
	Username string
	Email    string
	FullName string
	Role     string
	Password string
}

// createUser inserts an active user with role nu.Role and records the
// creation in the audit log.
func createUser(ctx context.Context, st store.Store, nu newUser) (*model.SystemUser, error) {
	role, err := st.GetRoleByName(ctx, nu.Role)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("role %q does not exist; run `pharmad seed` first", nu.Role)
		}
		return nil, err
	}
	hash, err := auth.HashPassword(nu.Password)
	if err != nil {
		return nil, err
	}
	if nu.FullName == "" {
		nu.FullName = nu.Username
	}
	u := &model.SystemUser{
		Username:     nu.Username,
		Email:        nu.Email,
		FullName:     nu.FullName,
		PasswordHash: hash,
		RoleID:       role.ID,
		IsActive:     true,
	}
	if err := model.ValidateSystemUser(u); err != nil {
		return nil, err
	}
	if err := st.Users().Create(ctx, u); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(events.EntityChanged{Entity: model.SystemUserSchema.Entity(), ID: u.ID.String(), Data: u})
	if err != nil {
		return nil, err
	}
	if err := st.RecordAuditEvent(ctx, &model.AuditEvent{
		Topic:      events.Topic("users", events.VerbCreated),
		EntityType: model.SystemUserSchema.Entity(),
		EntityID:   u.ID.String(),
		Actor:      "pharmad",
		Payload:    payload,
	}); err != nil {
		return nil, err
	}
	return u, nil
}

// readPassword prompts twice without echo when in is a terminal, and reads
// one line otherwise so the password can be piped in.
func readPassword(in io.Reader, prompt io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, "Password: ")
		first, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", err
		}
		fmt.Fprint(prompt, "Confirm password: ")
		second, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", err
		}
		if string(first) != string(second) {
			return "", errors.New("passwords do not match")
		}
		return string(first), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("no password on stdin")
	}
	return password, nil
}
