package cli

import (
	"context"
	"fmt"
	"time"

	"kheops-album-tools/config"
	"kheops-album-tools/constants"
	"kheops-album-tools/dicomfile"
	"kheops-album-tools/metadata"
	"kheops-album-tools/subset"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func (app *App) extractCommand() *cobra.Command {
	var upload bool
	cmd := &cobra.Command{
		Use:     "extract",
		Aliases: []string{"extract_subset"},
		Short:   "Copy the DICOM files matching metadata criteria into the subset folder",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.session(cmd)
			if err != nil {
				return err
			}
			defer s.logger.Sync()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return app.extract(ctx, s, upload)
		},
	}
	cmd.Flags().BoolVar(&upload, "upload", false, "store the extracted files in the configured MinIO bucket")
	return cmd
}

func (app *App) extract(ctx context.Context, s *session, upload bool) error {
	mc, err := s.cfg.Metadata()
	if err != nil {
		return err
	}
	source, err := s.cfg.SourceFolder()
	if err != nil {
		return err
	}
	dest, err := s.cfg.SubsetFolder()
	if err != nil {
		return err
	}

	var uploader *subset.Uploader
	if upload {
		minioConfig, ok := s.cfg.MinIO()
		if !ok {
			return fmt.Errorf("%w %q", config.ErrMissingKey, "minio.uri")
		}
		if uploader, err = subset.NewUploaderFromConfig(minioConfig, s.logger); err != nil {
			return err
		}
	}

	csvPath, err := s.prompt.ask("Criteria CSV file")
	if err != nil {
		return s.settle(err)
	}
	rows, err := metadata.ReadCriteriaCSV(csvPath)
	if err != nil {
		return s.settle(err)
	}

	var locker subset.Locker = subset.NopLocker{}
	if addr := s.cfg.RedisURI(); addr != "" {
		redisLocker, err := subset.DialRedisLocker(ctx, addr, constants.DefaultLockTTLSeconds*time.Second, s.logger)
		if err != nil {
			return err
		}
		defer redisLocker.Close()
		locker = redisLocker
	}

	store, err := app.openStore(ctx, mc, s.logger)
	if err != nil {
		return err
	}
	defer store.Close(context.Background())

	extractor := subset.NewExtractor(dicomfile.NewFileReader(), locker, s.logger)
	reports, err := extractor.ExtractAll(ctx, source, dest, store, rows)
	for _, report := range reports {
		fmt.Fprintln(s.out, report.Summary())
	}
	if err != nil {
		return s.settle(err)
	}

	if uploader != nil {
		for _, report := range reports {
			n, err := uploader.Upload(ctx, report)
			if err != nil {
				s.logger.Error("upload failed", zap.String("run_id", report.RunID), zap.Error(err))
				return s.settle(err)
			}
			fmt.Fprintf(s.out, "%s: %d files stored\n", report.RunID, n)
		}
	}
	return nil
}

func (app *App) whoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Authenticate and show the identity carried by the token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.session(cmd)
			if err != nil {
				return err
			}
			defer s.logger.Sync()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cred, err := s.credential(ctx)
			if err != nil {
				return err
			}

			claims, err := cred.Claims()
			if err != nil {
				fmt.Fprintln(s.out, "Token is not a JWT, no identity to show")
				return nil
			}
			fmt.Fprintf(s.out, "User:    %s\n", claims.PreferredUsername)
			if claims.Email != "" {
				fmt.Fprintf(s.out, "Email:   %s\n", claims.Email)
			}
			fmt.Fprintf(s.out, "Subject: %s\n", claims.Sub)
			fmt.Fprintf(s.out, "Issuer:  %s\n", claims.Iss)
			if claims.Exp > 0 {
				fmt.Fprintf(s.out, "Expires: %s\n", time.Unix(claims.Exp, 0).UTC().Format(time.RFC3339))
			}
			return nil
		},
	}
}
