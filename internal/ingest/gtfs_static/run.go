package gtfs_static

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"tarediiran-industries.com/gtfs-board/internal/common"
	"tarediiran-industries.com/gtfs-board/internal/db"
	"tarediiran-industries.com/gtfs-board/internal/logging"
)

func extractFile(file *zip.File, dstPath string) error {
	dstFile, err := os.OpenFile(dstPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer dstFile.Close()

	fileInArchive, err := file.Open()
	if err != nil {
		return err
	}
	defer fileInArchive.Close()

	_, err = io.Copy(dstFile, fileInArchive)
	return err
}

// UnzipToTempDir extracts the known GTFS files of a feed archive.
func UnzipToTempDir(zipPath string, logger *slog.Logger) (string, error) {
	dir, err := os.MkdirTemp("", "gtfs-ingest-*")
	if err != nil {
		return "", err
	}

	reader, err := zip.OpenReader(zipPath)
	if err != nil {
		os.RemoveAll(dir)
		return "", err
	}
	defer reader.Close()

	for _, file := range reader.File {
		if file.FileInfo().IsDir() {
			continue
		}

		name := filepath.Base(file.Name)
		if !isKnownFile(name) {
			logger.Debug("ignoring file in GTFS archive", slog.String("file", file.Name))
			continue
		}

		if err := extractFile(file, filepath.Join(dir, name)); err != nil {
			os.RemoveAll(dir)
			return "", fmt.Errorf("extract %s: %w", file.Name, err)
		}
	}

	logging.LogOperation(logger, "gtfs_archive_extracted",
		slog.String("zip", zipPath),
		slog.String("dir", dir))

	return dir, nil
}

func DownloadToTempFile(ctx context.Context, url string, logger *slog.Logger) (string, error) {
	tmpFile, err := os.CreateTemp("", "gtfs-ingest-*.zip")
	if err != nil {
		return "", err
	}
	defer tmpFile.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		os.Remove(tmpFile.Name())
		return "", err
	}

	response, err := http.DefaultClient.Do(req)
	if err != nil {
		os.Remove(tmpFile.Name())
		return "", fmt.Errorf("failed to download %s: %w", url, err)
	}
	defer logging.SafeCloseWithLogging(response.Body, logger, "http_response_body")

	if response.StatusCode != http.StatusOK {
		os.Remove(tmpFile.Name())
		return "", fmt.Errorf("HTTP error: status code %d", response.StatusCode)
	}

	written, err := io.Copy(tmpFile, response.Body)
	if err != nil {
		os.Remove(tmpFile.Name())
		return "", fmt.Errorf("failed to write downloaded file to temp location: %w", err)
	}

	logging.LogOperation(logger, "gtfs_archive_downloaded",
		slog.String("url", url),
		slog.String("path", tmpFile.Name()),
		slog.Int64("bytes", written))
	return tmpFile.Name(), nil
}

// Ingest downloads or opens the archive and loads it; it is Run without the process plumbing.
func Ingest(ctx context.Context, cfg Config, logger *slog.Logger) ([]LoadResult, error) {
	zipPath := cfg.ZipPath
	if cfg.Url != "" {
		downloaded, err := DownloadToTempFile(ctx, cfg.Url, logger)
		if err != nil {
			return nil, err
		}
		defer os.Remove(downloaded)
		zipPath = downloaded
	}

	dir, err := UnzipToTempDir(zipPath, logger)
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	var database *db.Database
	if !cfg.DryRun {
		database, err = db.NewDatabaseConnection(ctx, cfg.DatabaseConnection)
		if err != nil {
			return nil, err
		}
		defer database.Close()
	}

	return LoadGtfsFromDirectory(ctx, dir, database, logger)
}

func Run(cfg Config, stdOut io.Writer, logger *slog.Logger) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	benchmarker := common.NewBenchmarker(logger, "gtfs-static-ingest")
	results, err := Ingest(ctx, cfg, logger)
	elapsed := benchmarker.Close()
	if err != nil {
		logging.LogError(logger, "GTFS static ingest failed", err)
		return 1
	}

	for _, result := range results {
		if result.Skipped {
			fmt.Fprintf(stdOut, "%-20s %-16s skipped\n", result.FileName, result.Table)
			continue
		}
		fmt.Fprintf(stdOut, "%-20s %-16s %d rows\n", result.FileName, result.Table, result.Rows)
	}
	logging.LogOperation(logger, "gtfs_static_ingest_finished",
		slog.Bool("dry_run", cfg.DryRun),
		slog.Duration("duration", elapsed))
	return 0
}
