package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/palmcove/resortd/internal/demo"
	"github.com/palmcove/resortd/internal/store"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Manage the resort database",
		Long:  "Apply schema migrations, report the schema version and load the sample catalog.",
	}

	cmd.AddCommand(newDBMigrateCmd())
	cmd.AddCommand(newDBStatusCmd())
	cmd.AddCommand(newDBSeedCmd())

	return cmd
}

// ---------- db migrate ----------

func newDBMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			st, err := openStore(ctx, cfg.Database, true)
			if err != nil {
				return err
			}
			defer st.Close()

			v, err := st.MigrationVersion(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Database %s is at schema version %d\n", cfg.Database.Driver, v)
			return nil
		},
	}
}

// ---------- db status ----------

func newDBStatusCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show connectivity and schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, st, err := openConfiguredStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			v, err := st.MigrationVersion(ctx)
			if err != nil {
				return err
			}
			admins, err := st.CountAdministrators(ctx)
			if err != nil {
				return err
			}
			customers, err := st.CountCustomers(ctx)
			if err != nil {
				return err
			}

			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
					"driver":         cfg.Database.Driver,
					"schema_version": v,
					"administrators": admins,
					"customers":      customers,
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Driver:          %s\n", cfg.Database.Driver)
			fmt.Fprintf(out, "Schema version:  %d\n", v)
			fmt.Fprintf(out, "Administrators:  %d\n", admins)
			fmt.Fprintf(out, "Customers:       %d\n", customers)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

// ---------- db seed ----------

func newDBSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert the sample rooms, amenities and extras",
		Long: `Insert the sample catalog that is also served while the database is down.
Rooms whose number already exists are skipped. Amenities and extras are only
inserted into empty tables.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			st, err := openStore(ctx, cfg.Database, true)
			if err != nil {
				return err
			}
			defer st.Close()
			return seedCatalog(ctx, st, cmd.OutOrStdout())
		},
	}
}

// seedCatalog inserts the demo catalog. It is safe to run repeatedly.
func seedCatalog(ctx context.Context, st *store.Store, out io.Writer) error {
	var rooms int
	for _, r := range demo.Rooms() {
		r.ID = 0
		if err := st.CreateRoom(ctx, &r); err != nil {
			if errors.Is(err, store.ErrConflict) {
				continue
			}
			return fmt.Errorf("seed room %s: %w", r.RoomNumber, err)
		}
		rooms++
	}

	var amenities, services int
	existing, err := st.ListAmenities(ctx, false)
	if err != nil {
		return err
	}
	if len(existing) == 0 {
		for _, a := range demo.Amenities() {
			a.ID = 0
			if err := st.CreateAmenity(ctx, &a); err != nil {
				return fmt.Errorf("seed amenity %s: %w", a.Name, err)
			}
			amenities++
		}
	}
	extras, err := st.ListServices(ctx, false)
	if err != nil {
		return err
	}
	if len(extras) == 0 {
		for _, s := range demo.Services() {
			s.ID = 0
			if err := st.CreateService(ctx, &s); err != nil {
				return fmt.Errorf("seed service %s: %w", s.Name, err)
			}
			services++
		}
	}

	fmt.Fprintf(out, "Seeded %d rooms, %d amenities, %d services\n", rooms, amenities, services)
	return nil
}
