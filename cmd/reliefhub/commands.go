package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/reliefops/reliefhub/internal/auth"
	"github.com/reliefops/reliefhub/internal/database"
)

func bootstrapCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bootstrap",
		Short: "Import the schema into the configured database",
		Long:  `Runs the schema import even when the database already exists. Statements are idempotent.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			db := openDatabase()
			defer db.Close()

			if err := db.Bootstrap(); err != nil {
				return err
			}
			log.Info().Str("driver", cfg.DBDriver).Msg("Schema imported")
			return nil
		},
	}
}

func userAddCmd() *cobra.Command {
	var in auth.RegisterInput
	var role string

	cmd := &cobra.Command{
		Use:   "useradd",
		Short: "Create an account with any role",
		Long:  `Creates staff and admin accounts, which cannot be created through self-service registration.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if in.Password == "" {
				in.Password = os.Getenv("RELIEFHUB_NEW_PASSWORD")
			}
			in.Role = database.Role(role)

			db := openDatabase()
			defer db.Close()

			svc := auth.NewService(database.NewUsers(db), nil, cfg.BcryptCost)
			id, err := svc.Register(in)
			if err != nil {
				var verrs auth.ValidationErrors
				if errors.As(err, &verrs) {
					for field, msg := range verrs {
						fmt.Fprintf(os.Stderr, "%s: %s\n", field, msg)
					}
				}
				return err
			}

			fmt.Printf("Created %s account %q (id %d)\n", in.Role, in.Username, id)
			return nil
		},
	}

	cmd.Flags().StringVarP(&in.Username, "username", "u", "", "Login name")
	cmd.Flags().StringVarP(&in.Email, "email", "e", "", "Email address")
	cmd.Flags().StringVar(&in.FullName, "full-name", "", "Display name")
	cmd.Flags().StringVar(&in.Phone, "phone", "", "Phone number")
	cmd.Flags().StringVar(&in.Password, "password", "", "Password (or set RELIEFHUB_NEW_PASSWORD)")
	cmd.Flags().StringVarP(&role, "role", "r", string(database.RoleStaff), "Role: admin, staff, volunteer or donor")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func maintenanceCmd() *cobra.Command {
	var vacuum bool

	cmd := &cobra.Command{
		Use:   "maintenance",
		Short: "Refresh planner statistics and optionally reclaim space",
		RunE: func(cmd *cobra.Command, args []string) error {
			db := openDatabase()
			defer db.Close()

			if err := db.Optimize(); err != nil {
				return err
			}
			log.Info().Msg("Database optimized")

			if vacuum {
				if err := db.Vacuum(); err != nil {
					return err
				}
				log.Info().Msg("Database vacuumed")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&vacuum, "vacuum", false, "Also rebuild storage (VACUUM / OPTIMIZE TABLE)")
	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show row counts per table",
		RunE: func(cmd *cobra.Command, args []string) error {
			db := openDatabase()
			defer db.Close()

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "driver\t%s\n", db.Dialect())
			for _, table := range database.Tables {
				row, err := db.FetchOne("SELECT COUNT(*) AS total FROM " + table)
				if err != nil {
					return fmt.Errorf("failed to count %s: %w", table, err)
				}
				fmt.Fprintf(tw, "%s\t%v\n", table, row.Get("total"))
			}
			return tw.Flush()
		},
	}
}

func alertTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "alert-test [provider...]",
		Short: "Send a test alert through the configured providers",
		RunE: func(cmd *cobra.Command, args []string) error {
			alerts, err := alertManager()
			if err != nil {
				return err
			}

			providers := args
			if len(providers) == 0 {
				providers = alerts.ListProviders()
			}
			if len(providers) == 0 {
				return errors.New("no alert providers configured")
			}

			var failed int
			for _, name := range providers {
				if err := alerts.TestProvider(name); err != nil {
					log.Error().Err(err).Str("provider", name).Msg("Test alert failed")
					failed++
					continue
				}
				fmt.Printf("%s: ok\n", name)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d providers failed", failed, len(providers))
			}
			return nil
		},
	}
}
