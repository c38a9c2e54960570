package cmd

import (
	"context"
	"fmt"
	"os"

	goredis "github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"

	"github.com/bedasa/dataport/internal/deploy"
	"github.com/bedasa/dataport/internal/exporter"
	"github.com/bedasa/dataport/internal/notify"
	"github.com/bedasa/dataport/internal/profile"
	profilefile "github.com/bedasa/dataport/internal/profile/file"
	profileredis "github.com/bedasa/dataport/internal/profile/redis"
	"github.com/bedasa/dataport/internal/provider/csv"
	"github.com/bedasa/dataport/internal/registry"
	"github.com/bedasa/dataport/internal/source/sqlite"
	"github.com/bedasa/dataport/sdk"
	"github.com/pinpt/go-common/v10/log"
)

// addStoreFlags registers the flags every profile driven command shares
func addStoreFlags(cmd *cobra.Command) {
	cmd.Flags().String("db", "dataport.db", "path to the sqlite database")
	cmd.Flags().String("profiles", "profiles.json", "path to the profile store file")
	cmd.Flags().String("redis", "", "redis host:port for the profile store, overrides --profiles")
	cmd.Flags().Int("redisDB", 0, "redis db number")
	cmd.Flags().Int("store", 0, "pin the run to a store id")
	cmd.Flags().Int("language", 0, "language id override")
	cmd.Flags().Int("currency", 0, "currency id override")
	cmd.Flags().Int("customer", 0, "customer id override for tier prices")
	cmd.Flags().IntSlice("ids", nil, "restrict the run to these entity ids")
	cmd.Flags().Bool("no-grouped", false, "replace grouped products with their associated products")
	cmd.Flags().String("order-status", "", "status applied to exported orders after the run (processing, complete)")
}

// newRegistry returns the provider registry with the built in providers
func newRegistry() *registry.Registry {
	reg := registry.New()
	for _, entity := range []sdk.EntityType{
		sdk.EntityTypeProduct,
		sdk.EntityTypeOrder,
		sdk.EntityTypeCategory,
		sdk.EntityTypeManufacturer,
		sdk.EntityTypeCustomer,
		sdk.EntityTypeSubscription,
	} {
		if err := reg.Register(csv.New(entity)); err != nil {
			panic(err)
		}
	}
	return reg
}

// openSource opens the sqlite data source named by --db
func openSource(cmd *cobra.Command) (*sqlite.Source, error) {
	dbPath, _ := cmd.Flags().GetString("db")
	return sqlite.New(dbPath)
}

// openProfiles opens the profile store, redis when --redis is set, a json
// file otherwise
func openProfiles(ctx context.Context, cmd *cobra.Command, logger log.Logger) (profile.Store, error) {
	redisURL, _ := cmd.Flags().GetString("redis")
	if redisURL != "" {
		redisDb, _ := cmd.Flags().GetInt("redisDB")
		client := goredis.NewClient(&goredis.Options{
			Addr: redisURL,
			DB:   redisDb,
		})
		log.Debug(logger, "attempt to ping redis", "url", redisURL)
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("error connecting to redis at %s: %w", redisURL, err)
		}
		log.Info(logger, "redis ping OK", "url", redisURL, "db", redisDb)
		return profileredis.New(ctx, client, "dataport")
	}
	fn, _ := cmd.Flags().GetString("profiles")
	return profilefile.New(fn)
}

// newMailer builds the SMTP mailer from the environment, nil when no SMTP
// endpoint is configured
func newMailer() *notify.SMTPMailer {
	addr := os.Getenv("DATAPORT_SMTP_ADDR")
	if addr == "" {
		return nil
	}
	return &notify.SMTPMailer{
		Addr:     addr,
		Username: os.Getenv("DATAPORT_SMTP_USERNAME"),
		Password: os.Getenv("DATAPORT_SMTP_PASSWORD"),
		From:     os.Getenv("DATAPORT_SMTP_FROM"),
	}
}

// newPublishers builds the deployment publishers available to this process
func newPublishers(ctx context.Context, logger log.Logger, mailer *notify.SMTPMailer) []deploy.Publisher {
	publishers := []deploy.Publisher{
		deploy.NewFileSystemPublisher(),
		deploy.NewHTTPPublisher(),
	}
	if mailer != nil {
		publishers = append(publishers, deploy.NewEmailPublisher(mailer))
	}
	if os.Getenv("AWS_REGION") != "" || os.Getenv("AWS_ENDPOINT_URL_S3") != "" {
		s3pub, err := deploy.NewS3Publisher(ctx)
		if err != nil {
			log.Warn(logger, "s3 deployments unavailable", "err", err)
		} else {
			publishers = append(publishers, s3pub)
		}
	}
	return publishers
}

// newExporter wires the exporter for a command invocation
func newExporter(ctx context.Context, cmd *cobra.Command, logger log.Logger, source sdk.DataSource, profiles profile.Store) *exporter.Exporter {
	mailer := newMailer()
	var notifier *notify.CompletionNotifier
	if mailer != nil {
		notifier = &notify.CompletionNotifier{
			Mailer:         mailer,
			WebmasterEmail: os.Getenv("DATAPORT_WEBMASTER_EMAIL"),
			CompanyEmail:   os.Getenv("DATAPORT_COMPANY_EMAIL"),
		}
	}
	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		out = "exports"
	}
	return exporter.New(exporter.Config{
		Logger:     logger,
		Source:     source,
		Profiles:   profiles,
		Publishers: newPublishers(ctx, logger, mailer),
		Notifier:   notifier,
		ExportRoot: out,
	})
}

// loadRequest resolves the profile and provider and applies the projection
// flags
func loadRequest(cmd *cobra.Command, profiles profile.Store, reg *registry.Registry, profileID int) (*sdk.ExportRequest, error) {
	p, err := profiles.Get(profileID)
	if err != nil {
		return nil, fmt.Errorf("error loading profile %d: %w", profileID, err)
	}
	provider, ok := reg.Get(p.ProviderSystemName)
	if !ok {
		return nil, fmt.Errorf("profile %d uses unknown provider %q", profileID, p.ProviderSystemName)
	}
	storeID, _ := cmd.Flags().GetInt("store")
	languageID, _ := cmd.Flags().GetInt("language")
	currencyID, _ := cmd.Flags().GetInt("currency")
	customerID, _ := cmd.Flags().GetInt("customer")
	ids, _ := cmd.Flags().GetIntSlice("ids")
	noGrouped, _ := cmd.Flags().GetBool("no-grouped")
	orderStatus, _ := cmd.Flags().GetString("order-status")
	return &sdk.ExportRequest{
		Provider:  provider,
		Profile:   p,
		EntityIDs: ids,
		Projection: sdk.Projection{
			StoreID:           storeID,
			LanguageID:        languageID,
			CurrencyID:        currencyID,
			CustomerID:        customerID,
			NoGroupedProducts: noGrouped,
			OrderStatusChange: sdk.OrderStatusChange(orderStatus),
		},
		HasPermission: true,
	}, nil
}
