package reportpdf

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/rs/zerolog/log"

	"github.com/nicholaszhao/uptime-report-pdf/packages/go/config"
	"github.com/nicholaszhao/uptime-report-pdf/packages/go/database"
	"github.com/nicholaszhao/uptime-report-pdf/packages/go/storage"
	"github.com/nicholaszhao/uptime-report-pdf/services/reportpdf/render"
)

// Setup builds a Service and its optional collaborators from configuration.
// The returned cleanup releases the ledger connection.
func Setup(ctx context.Context, cfg *config.Config) (*Service, func(), error) {
	store, err := storage.New(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("creating object store: %w", err)
	}

	chain, err := render.New(cfg.Renderers, render.Settings{
		ChromiumPath:    cfg.ChromiumPath,
		WkhtmltopdfPath: cfg.WkhtmltopdfPath,
		TmpDir:          cfg.RenderTmpDir,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("creating renderers: %w", err)
	}

	svc := NewService(cfg, store, chain)
	cleanup := func() {}

	// Connect to database if configured
	if cfg.DatabaseURL != "" {
		db, err := database.NewPostgresDB(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Warn().Err(err).Msg("Run ledger unavailable, continuing without it")
		} else {
			svc.SetLedger(db)
			cleanup = db.Close
		}
	}

	if cfg.SNSTopicARN != "" {
		awsCfg, err := storage.LoadAWSConfig(ctx, cfg.S3Region)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		svc.SetNotifier(NewSNSNotifier(sns.NewFromConfig(awsCfg), cfg.SNSTopicARN))
	}

	log.Info().
		Str("backend", cfg.StorageBackend).
		Str("src_bucket", cfg.SrcBucket).
		Str("dest_bucket", cfg.DestBucket).
		Strs("renderers", chain.Names()).
		Bool("allow_pdf_skip", bool(cfg.AllowPDFSkip)).
		Msg("Report service configured")

	return svc, cleanup, nil
}
