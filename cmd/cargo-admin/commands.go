package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BearBump/CargoBox/internal/client"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

type globalFlags struct {
	apiURL   string
	phone    string
	password string
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "cargo-admin",
		Short:         "Admin tasks for CargoBox",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&g.apiURL, "api", envOr("CARGOBOX_API_URL", "http://localhost:8080"), "cargo-api base URL")
	root.PersistentFlags().StringVar(&g.phone, "phone", os.Getenv("CARGOBOX_BOOTSTRAP_ADMIN_PHONE"), "admin phone")
	root.PersistentFlags().StringVar(&g.password, "password", os.Getenv("CARGOBOX_BOOTSTRAP_ADMIN_PASSWORD"), "admin password")

	root.AddCommand(
		createAdminCmd(g),
		whoamiCmd(g),
		importUsersCmd(g),
		importPackagesCmd(g),
		impersonateCmd(g),
	)
	return root
}

func signedIn(ctx context.Context, g *globalFlags) (*client.Client, error) {
	if g.phone == "" || g.password == "" {
		return nil, errors.New("--phone and --password are required")
	}
	c := client.New(g.apiURL)
	if _, err := c.SignIn(ctx, g.phone, g.password); err != nil {
		return nil, errors.Wrap(err, "sign in")
	}
	return c, nil
}

func createAdminCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "create-admin",
		Short: "Create the bootstrap admin configured on the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := client.New(g.apiURL).CreateAdmin(cmd.Context())
			if err != nil {
				return err
			}
			if res.Created {
				fmt.Fprintf(cmd.OutOrStdout(), "admin created: %s\n", res.UserID)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "admin already exists: %s\n", res.UserID)
			}
			return nil
		},
	}
}

func whoamiCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := signedIn(cmd.Context(), g)
			if err != nil {
				return err
			}
			me, err := c.Me(cmd.Context())
			if err != nil {
				return err
			}
			printMe(cmd.OutOrStdout(), me)
			return nil
		},
	}
}

func printMe(w io.Writer, me *client.Me) {
	fmt.Fprintf(w, "%s %s (%s) role=%s\n", me.Profile.ClientCode, me.Profile.FullName, me.Profile.Phone, me.Role)
}

func openFile(path string) (*os.File, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", errors.Wrap(err, "open file")
	}
	return f, filepath.Base(path), nil
}

func importUsersCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "import-users FILE",
		Short: "Create clients from an xlsx, xls or csv file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := signedIn(cmd.Context(), g)
			if err != nil {
				return err
			}
			f, name, err := openFile(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			res, err := c.ImportUsers(cmd.Context(), name, f)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "created: %d, failed: %d\n", res.Success, res.Failed)
			for _, e := range res.Errors {
				fmt.Fprintf(out, "  row %d %s: %s\n", e.Row, e.ClientCode, e.Message)
			}
			return nil
		},
	}
}

func importPackagesCmd(g *globalFlags) *cobra.Command {
	var opts client.PackageImport
	cmd := &cobra.Command{
		Use:   "import-packages FILE",
		Short: "Mark tracking numbers from a spreadsheet as in transit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := signedIn(cmd.Context(), g)
			if err != nil {
				return err
			}
			f, name, err := openFile(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			res, err := c.ImportPackages(cmd.Context(), name, f, opts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "inserted: %d, updated: %d, skipped: %d\n", res.Inserted, res.Updated, res.Skipped)
			for _, e := range res.Errors {
				fmt.Fprintf(out, "  row %d: %s\n", e.Row, e.Message)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&opts.TrackColumn, "track-column", 1, "1-based column with tracking numbers")
	cmd.Flags().IntVar(&opts.WeightColumn, "weight-column", 0, "1-based column with weight, kg")
	cmd.Flags().IntVar(&opts.DateColumn, "date-column", 0, "1-based column with arrival date")
	cmd.Flags().StringVar(&opts.ArrivalDate, "arrival-date", "", "arrival date for every row, YYYY-MM-DD")
	cmd.Flags().Float64Var(&opts.PricePerKg, "price", 0, "price per kg, defaults to the settings value")
	return cmd
}

func impersonateCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "impersonate USER_ID",
		Short: "Sign in as a client, show their profile and return to the admin session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := uuid.Parse(args[0])
			if err != nil {
				return errors.Wrap(err, "user id")
			}
			ctx := cmd.Context()
			c, err := signedIn(ctx, g)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			imp, err := c.LoginAsUser(ctx, target)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "acting as %s (%s)\n", imp.UserName, imp.ClientCode)
			me, err := c.Me(ctx)
			if err != nil {
				return err
			}
			printMe(out, me)

			if err := c.RestoreAdmin(ctx); err != nil {
				return errors.Wrap(err, "restore admin session")
			}
			me, err = c.Me(ctx)
			if err != nil {
				return err
			}
			fmt.Fprint(out, "back as ")
			printMe(out, me)
			return nil
		},
	}
}
