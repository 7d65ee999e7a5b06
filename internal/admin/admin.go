// Package admin implements gophauth-admin, the operator command line for
// staff accounts, account removal, token revocation and avatars.
package admin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/filex"
	"github.com/dmitrijs2005/gophauth/internal/netx"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/dmitrijs2005/gophauth/internal/server/validation"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// Gateway is the part of services.AuthService the admin tool needs.
type Gateway interface {
	RegisterStaff(ctx context.Context, in validation.RegistrationInput) (*models.Account, error)
	AccountByEmail(ctx context.Context, email string) (*models.Account, error)
	DeleteMe(ctx context.Context, id uuid.UUID) error
	Logout(ctx context.Context, refreshToken string) error
	AvatarUploadURL(ctx context.Context, id uuid.UUID) (*services.AvatarUpload, error)
}

// Connect opens a Gateway. The returned func releases it.
type Connect func(ctx context.Context) (Gateway, func(), error)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

func NewRootCommand(connect Connect, out io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "gophauth-admin",
		Short:         "Operator tool for gophauth accounts and tokens",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(out)

	// read from os.Args by config.LoadBaseConfig; declared so cobra accepts it
	cmd.PersistentFlags().StringP("config", "c", "", "Path to JSON config file")

	cmd.AddCommand(newCreateStaffCommand(connect))
	cmd.AddCommand(newDeleteAccountCommand(connect))
	cmd.AddCommand(newRevokeCommand(connect))
	cmd.AddCommand(newSetAvatarCommand(connect))
	return cmd
}

// withGateway runs fn against a freshly connected gateway.
func withGateway(cmd *cobra.Command, connect Connect, fn func(ctx context.Context, g Gateway) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	g, release, err := connect(ctx)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer release()
	return fn(ctx, g)
}

func newCreateStaffCommand(connect Connect) *cobra.Command {
	var (
		email     string
		firstName string
		lastName  string
		phone     string
	)

	cmd := &cobra.Command{
		Use:   "create-staff",
		Short: "Create a staff account; the password is read from the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := promptPassword(cmd.OutOrStdout(), "Password: ")
			if err != nil {
				return err
			}
			defer common.WipeByteArray(pw)

			confirm, err := promptPassword(cmd.OutOrStdout(), "Repeat password: ")
			if err != nil {
				return err
			}
			defer common.WipeByteArray(confirm)

			in := validation.RegistrationInput{
				Email:                email,
				Password:             string(pw),
				PasswordConfirmation: string(confirm),
				FirstName:            firstName,
				LastName:             lastName,
			}
			if phone != "" {
				in.PhoneNumber = &phone
			}

			return withGateway(cmd, connect, func(ctx context.Context, g Gateway) error {
				account, err := g.RegisterStaff(ctx, in)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created staff account %s (%s)\n", account.ID, account.Email)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&firstName, "first-name", "", "First name")
	cmd.Flags().StringVar(&lastName, "last-name", "", "Last name")
	cmd.Flags().StringVar(&phone, "phone", "", "Phone number in E.164 form")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("first-name")
	_ = cmd.MarkFlagRequired("last-name")
	return cmd
}

func newDeleteAccountCommand(connect Connect) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "delete-account",
		Short: "Delete an account and its profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withGateway(cmd, connect, func(ctx context.Context, g Gateway) error {
				account, err := g.AccountByEmail(ctx, email)
				if err != nil {
					return lookupError(email, err)
				}
				if err := g.DeleteMe(ctx, account.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted account %s\n", account.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email of the account to delete")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newRevokeCommand(connect Connect) *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "revoke",
		Short: "Blacklist a refresh token",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withGateway(cmd, connect, func(ctx context.Context, g Gateway) error {
				if err := g.Logout(ctx, strings.TrimSpace(token)); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "token revoked")
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "Refresh token to revoke")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}

func newSetAvatarCommand(connect Connect) *cobra.Command {
	var (
		email string
		file  string
	)

	cmd := &cobra.Command{
		Use:   "set-avatar",
		Short: "Upload a profile picture for an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, contentType, err := filex.ReadImage(file, filex.MaxAvatarBytes)
			if err != nil {
				return err
			}

			return withGateway(cmd, connect, func(ctx context.Context, g Gateway) error {
				account, err := g.AccountByEmail(ctx, email)
				if err != nil {
					return lookupError(email, err)
				}
				up, err := g.AvatarUploadURL(ctx, account.ID)
				if err != nil {
					return err
				}
				if err := netx.UploadToPresignedURL(ctx, nil, up.UploadURL, contentType, data); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "avatar stored as %s\n", up.Key)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email of the account")
	cmd.Flags().StringVar(&file, "file", "", "Image file to upload")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func promptPassword(w io.Writer, prompt string) ([]byte, error) {
	if _, err := fmt.Fprint(w, prompt); err != nil {
		return nil, err
	}
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return nil, fmt.Errorf("read password: %w", err)
	}
	return pw, nil
}

func lookupError(email string, err error) error {
	if errors.Is(err, common.ErrNotFound) {
		return fmt.Errorf("no account with email %q", email)
	}
	return err
}
