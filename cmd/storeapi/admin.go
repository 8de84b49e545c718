package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/storefront/store-api/internal/core/service"
	storemongo "github.com/storefront/store-api/internal/infrastructure/db/mongo"
	"github.com/storefront/store-api/internal/infrastructure/security"
)

type adminOptions struct {
	email    string
	password string
	name     string
}

func (o *adminOptions) bind(fs *pflag.FlagSet) {
	fs.StringVar(&o.email, "email", "", "admin email address (required)")
	fs.StringVar(&o.password, "password", "", "password for a new account; ignored when promoting")
	fs.StringVar(&o.name, "name", "", "display name for a new account")
}

// NewCreateAdminCmd creates the create-admin subcommand. It is the only way
// to grant the admin role to an account that has none.
func NewCreateAdminCmd() *cobra.Command {
	opts := &adminOptions{}
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin account or promote an existing one",
		Long: `Create an active admin account with the given email and password. When
an account with that email already exists it is promoted to admin and
reactivated; its password is left unchanged.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCreateAdmin(cmd, opts)
		},
	}
	opts.bind(cmd.Flags())
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func runCreateAdmin(cmd *cobra.Command, opts *adminOptions) error {
	ctx := cmd.Context()
	cfg, log, err := setup(ctx)
	if err != nil {
		return err
	}

	client, db, err := connectMongo(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer disconnectMongo(client, log)

	if err := storemongo.EnsureIndexes(ctx, db); err != nil {
		return oops.Code("INDEXES_FAILED").With("operation", "ensure indexes").Wrap(err)
	}

	hasher, err := security.NewBcryptHasher(cfg.Password.BcryptCost)
	if err != nil {
		return oops.Code("SETUP_FAILED").With("operation", "create hasher").Wrap(err)
	}
	policy := service.PasswordPolicy{
		MinLength:     cfg.Password.MinLength,
		RequireDigit:  cfg.Password.RequireDigit,
		RequireUpper:  cfg.Password.RequireUpper,
		RequireLower:  cfg.Password.RequireLower,
		RequireSymbol: cfg.Password.RequireSymbol,
	}
	users := service.NewUserService(storemongo.NewUserRepository(db), hasher, policy, log)

	admin, created, err := users.EnsureAdmin(ctx, opts.email, opts.password, opts.name)
	if err != nil {
		return oops.Code("CREATE_ADMIN_FAILED").With("email", opts.email).Wrap(err)
	}
	if created {
		cmd.Printf("Created admin %s (%s)\n", admin.Email, admin.ID)
	} else {
		cmd.Printf("Promoted %s (%s) to admin\n", admin.Email, admin.ID)
	}
	return nil
}
