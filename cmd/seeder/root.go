package main

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"shelf-search-go/internal/config"
	"shelf-search-go/internal/repository"
	"shelf-search-go/internal/service"
	"shelf-search-go/pkg/database"
	"shelf-search-go/pkg/es"
	"shelf-search-go/pkg/kafka"
	"shelf-search-go/pkg/log"
	"shelf-search-go/pkg/storage"
	"shelf-search-go/pkg/tasks"
	"shelf-search-go/pkg/token"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var (
		configPath string
		seedPath   string
		tokenFor   string
		skipCovers bool
	)

	cmd := &cobra.Command{
		Use:   "seeder",
		Short: "Load catalog rows and covers into the configured backends",
		Long: `Seeder reads a JSON catalog file, upserts the rows into the configured
catalog backend, uploads cover files to object storage and publishes one
catalog change event per owner so running search instances drop stale indexes.`,
		Example: `  # Import a catalog
  seeder --config configs/config.yaml --file catalog.json

  # Print a bearer token for an identity
  seeder --config configs/config.yaml --token-for abcdef12-3456-7890-abcd-ef1234567890`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if seedPath == "" && tokenFor == "" {
				return fmt.Errorf("one of --file or --token-for is required")
			}

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			log.Init(cfg.Log.Level, "console", "")
			defer log.Sync()

			if tokenFor != "" {
				if _, err := service.NormalizeOwnerID(tokenFor); err != nil {
					return err
				}
				signed, err := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessTokenExpireHours).GenerateToken(tokenFor)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), signed)
			}
			if seedPath == "" {
				return nil
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runImport(ctx, cmd, cfg, seedPath, skipCovers)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "./configs/config.yaml", "Path to the YAML config file")
	cmd.Flags().StringVar(&seedPath, "file", "", "Path to the JSON catalog file")
	cmd.Flags().StringVar(&tokenFor, "token-for", "", "Print a signed bearer token for this identity (UUID)")
	cmd.Flags().BoolVar(&skipCovers, "skip-covers", false, "Do not upload cover files")

	return cmd
}

func runImport(ctx context.Context, cmd *cobra.Command, cfg *config.Config, seedPath string, skipCovers bool) error {
	file, err := loadSeedFile(seedPath)
	if err != nil {
		return err
	}

	catalogRepo, err := openCatalog(ctx, cfg)
	if err != nil {
		return err
	}

	s := &seeder{catalog: catalogRepo, now: time.Now}
	if !skipCovers {
		client, err := storage.InitMinIO(ctx, cfg.MinIO, true)
		if err != nil {
			return err
		}
		s.covers = repository.NewCoverRepository(client, cfg.MinIO.BucketName)
	}
	if cfg.Kafka.Enabled {
		kafka.InitProducer(cfg.Kafka)
		defer func() {
			if err := kafka.CloseProducer(); err != nil {
				log.Errorf("关闭 Kafka 生产者失败: %v", err)
			}
		}()
		s.publish = func(ctx context.Context, task tasks.CatalogChangeTask) error {
			return kafka.ProduceCatalogChange(ctx, task)
		}
	}

	summary, err := s.Run(ctx, file, filepath.Dir(seedPath))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "owners: %d, rows: %d, covers: %d, events: %d\n",
		summary.Owners, summary.Rows, summary.Covers, summary.Events)
	return nil
}

func openCatalog(ctx context.Context, cfg *config.Config) (repository.CatalogRepository, error) {
	switch cfg.Catalog.Backend {
	case config.CatalogBackendMySQL:
		db, err := database.InitMySQL(cfg.Database.MySQL.DSN)
		if err != nil {
			return nil, err
		}
		return repository.NewCatalogMySQLRepository(db), nil
	case config.CatalogBackendElasticsearch:
		client, err := es.InitES(ctx, cfg.Elasticsearch, cfg.Catalog.ESIndex)
		if err != nil {
			return nil, err
		}
		return repository.NewCatalogESRepository(client, cfg.Catalog.ESIndex), nil
	default:
		rdb, err := database.InitRedis(ctx, cfg.Database.Redis)
		if err != nil {
			return nil, err
		}
		return repository.NewCatalogRedisRepository(rdb, cfg.Catalog.RedisKeyPrefix), nil
	}
}
