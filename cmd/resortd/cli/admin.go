package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/palmcove/resortd/internal/model"
	"github.com/palmcove/resortd/internal/service"
	"github.com/palmcove/resortd/internal/store"
)

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage administrator accounts",
		Long:  "Create, list, enable and disable the accounts that can sign in to the admin API.",
	}

	cmd.AddCommand(newAdminCreateCmd())
	cmd.AddCommand(newAdminListCmd())
	cmd.AddCommand(newAdminActiveCmd("enable", true))
	cmd.AddCommand(newAdminActiveCmd("disable", false))

	return cmd
}

// ---------- admin create ----------

func newAdminCreateCmd() *cobra.Command {
	var (
		email    string
		password string
		name     string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new administrator",
		Example: `  resortd admin create --email admin@example.com --password 's3cret-pass'
  resortd admin create --email admin@example.com  # prompts for password`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, st, err := openConfiguredStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			if password == "" {
				if password, err = promptPassword(); err != nil {
					return err
				}
			}

			auth := service.NewAuthenticator(st, newLogger(cfg.Logging), cfg.Auth.MinPasswordLength)
			admin, err := auth.CreateAdministrator(cmd.Context(), email, name, password)
			if err != nil {
				if errors.Is(err, service.ErrEmailTaken) {
					return fmt.Errorf("administrator %q already exists", email)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created administrator %q (id %d)\n", admin.Email, admin.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Administrator email address (required)")
	cmd.Flags().StringVar(&password, "password", "", "Password (prompted if omitted)")
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.MarkFlagRequired("email")

	return cmd
}

func promptPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("--password is required when stdin is not a terminal")
	}

	fmt.Print("Password: ")
	pw, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	fmt.Print("Confirm password: ")
	confirm, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read confirmation: %w", err)
	}

	if string(pw) != string(confirm) {
		return "", errors.New("passwords do not match")
	}
	return string(pw), nil
}

// ---------- admin list ----------

func newAdminListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List administrators",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, err := openConfiguredStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			admins, err := st.ListAdministrators(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				return writeJSON(out, admins)
			}
			if len(admins) == 0 {
				fmt.Fprintln(out, "No administrators. Use 'resortd admin create' to add one.")
				return nil
			}
			printAdmins(out, admins)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func printAdmins(w io.Writer, admins []model.Administrator) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tEMAIL\tNAME\tACTIVE\tLAST LOGIN")
	for _, a := range admins {
		last := "never"
		if a.LastLoginAt != nil {
			last = a.LastLoginAt.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", a.ID, a.Email, a.Name, yesNo(a.IsActive), last)
	}
	tw.Flush()
}

// ---------- admin enable / disable ----------

func newAdminActiveCmd(use string, active bool) *cobra.Command {
	short := "Allow an administrator to sign in again"
	if !active {
		short = "Prevent an administrator from signing in"
	}

	return &cobra.Command{
		Use:   use + " <email|id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, st, err := openConfiguredStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			var admin *model.Administrator
			if id, perr := strconv.ParseInt(args[0], 10, 64); perr == nil {
				admin, err = st.GetAdministrator(ctx, id)
			} else {
				admin, err = st.GetAdministratorByEmail(ctx, args[0])
			}
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("administrator %q not found", args[0])
			}
			if err != nil {
				return err
			}

			if err := st.SetAdministratorActive(ctx, admin.ID, active); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Administrator %q %sd\n", admin.Email, use)
			return nil
		},
	}
}
