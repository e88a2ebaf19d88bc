package gtfs_static

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"tarediiran-industries.com/gtfs-board/internal/db"
	"tarediiran-industries.com/gtfs-board/internal/logging"
)

type FileTableEntry struct {
	FileName  string
	TableName string
	Required  bool

	// Columns the API queries; created empty when the feed omits them.
	ExtraColumns []string
	Indexes      []string
}

var FileTableMapping = []FileTableEntry{
	{FileName: "agency.txt", TableName: "agency"},
	{FileName: "routes.txt", TableName: "routes", Required: true,
		ExtraColumns: []string{"route_short_name", "route_long_name"}, Indexes: []string{"route_id"}},
	{FileName: "trips.txt", TableName: "trips", Required: true,
		ExtraColumns: []string{"trip_headsign"}, Indexes: []string{"trip_id"}},
	{FileName: "stops.txt", TableName: "stops", Required: true, Indexes: []string{"stop_id"}},
	{FileName: "stop_times.txt", TableName: "stop_times", Required: true, Indexes: []string{"stop_id"}},
	{FileName: "calendar.txt", TableName: "calendar"},
	{FileName: "calendar_dates.txt", TableName: "calendar_dates"},
}

type LoadResult struct {
	FileName string
	Table    string
	Rows     int64
	Skipped  bool
}

func isKnownFile(name string) bool {
	for _, entry := range FileTableMapping {
		if entry.FileName == name {
			return true
		}
	}
	return false
}

func ReadCSVForColumnNames(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)

	// Gets just the first row, which contains the headers
	headers, err := reader.Read()
	if err != nil {
		return nil, err
	}

	for i, header := range headers {
		headers[i] = strings.TrimSpace(strings.TrimPrefix(header, "\ufeff"))
	}
	return headers, nil
}

func CountCSVRows(filePath string) (int64, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	var rows int64
	for {
		_, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, err
		}
		rows++
	}
	if rows > 0 {
		rows-- // header
	}
	return rows, nil
}

func ValidateGtfsDirectory(dirPath string) error {
	for _, entry := range FileTableMapping {
		if entry.Required {
			filePath := filepath.Join(dirPath, entry.FileName)
			if _, err := os.Stat(filePath); os.IsNotExist(err) {
				return fmt.Errorf("required file %s is missing", entry.FileName)
			}
		}
	}

	return nil
}

func tableColumns(header []string, extra []string) []string {
	columns := append([]string(nil), header...)
	seen := make(map[string]bool, len(header))
	for _, column := range header {
		seen[column] = true
	}
	for _, column := range extra {
		if !seen[column] {
			columns = append(columns, column)
			seen[column] = true
		}
	}
	return columns
}

func buildCreateTable(tableName string, columns []string) string {
	definitions := make([]string, len(columns))
	for i, column := range columns {
		definitions[i] = db.QuoteIdentifier(column) + " TEXT"
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", db.QuoteIdentifier(tableName), strings.Join(definitions, ", "))
}

// replaceTable drops and recreates the entry's table, then bulk-loads the file.
func replaceTable(ctx context.Context, database *db.Database, entry FileTableEntry, filePath string) (int64, error) {
	header, err := ReadCSVForColumnNames(filePath)
	if err != nil {
		return 0, fmt.Errorf("%s: read header: %w", entry.FileName, err)
	}

	table := db.QuoteIdentifier(entry.TableName)
	if _, err := database.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
		return 0, fmt.Errorf("%s: drop table: %w", entry.TableName, err)
	}
	if _, err := database.ExecContext(ctx, buildCreateTable(entry.TableName, tableColumns(header, entry.ExtraColumns))); err != nil {
		return 0, fmt.Errorf("%s: create table: %w", entry.TableName, err)
	}

	rows, err := database.CopyFrom(ctx, entry.TableName, header, filePath)
	if err != nil {
		return 0, fmt.Errorf("%s: load: %w", entry.TableName, err)
	}

	for _, column := range entry.Indexes {
		index := db.QuoteIdentifier(fmt.Sprintf("idx_%s_%s", entry.TableName, column))
		query := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", index, table, db.QuoteIdentifier(column))
		if _, err := database.ExecContext(ctx, query); err != nil {
			return rows, fmt.Errorf("%s: create index on %s: %w", entry.TableName, column, err)
		}
	}

	return rows, nil
}

// LoadGtfsFromDirectory replaces one table per known GTFS file in dirPath.
// With a nil database it only counts rows.
func LoadGtfsFromDirectory(ctx context.Context, dirPath string, database *db.Database, logger *slog.Logger) ([]LoadResult, error) {
	if err := ValidateGtfsDirectory(dirPath); err != nil {
		return nil, err
	}

	results := make([]LoadResult, 0, len(FileTableMapping))
	for _, entry := range FileTableMapping {
		filePath := filepath.Join(dirPath, entry.FileName)
		result := LoadResult{FileName: entry.FileName, Table: entry.TableName}

		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			logger.Warn("optional GTFS file missing", slog.String("file", entry.FileName))
			result.Skipped = true
			results = append(results, result)
			continue
		}

		var rows int64
		var err error
		if database == nil {
			rows, err = CountCSVRows(filePath)
		} else {
			rows, err = replaceTable(ctx, database, entry, filePath)
		}
		if err != nil {
			return results, err
		}

		result.Rows = rows
		results = append(results, result)
		logging.LogOperation(logger, "gtfs_table_loaded",
			slog.String("table", entry.TableName),
			slog.Int64("rows", rows),
			slog.Bool("dry_run", database == nil))
	}

	return results, nil
}
