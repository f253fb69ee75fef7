// Package common provides helpers shared by the ledger store adapters and the
// command line tools.
package common

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/PeterGeers/myAdmin-sub005/internal/logging"
	"github.com/PeterGeers/myAdmin-sub005/internal/models"

	"github.com/gocarina/gocsv"
)

// DefaultDelimiter is the field separator used when none is configured.
const DefaultDelimiter = ','

// ReadCSVFile reads CSV data into a slice of structs using gocsv.
// TCSVRow is the struct type that maps to the CSV columns. A file holding only
// a header, or nothing at all, yields an empty slice.
func ReadCSVFile[TCSVRow any](filePath string, logger logging.Logger) ([]TCSVRow, error) {
	logger = logging.OrNop(logger)
	logger.Debug("Reading CSV file", logging.Field{Key: "file", Value: filePath})

	file, err := os.Open(filepath.Clean(filePath))
	if err != nil {
		return nil, fmt.Errorf("error opening CSV file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close file")
		}
	}()

	rows, err := ReadCSV[TCSVRow](file)
	if err != nil {
		return nil, err
	}

	logger.Debug("Successfully read CSV data",
		logging.Field{Key: "file", Value: filePath},
		logging.Field{Key: logging.FieldCount, Value: len(rows)})
	return rows, nil
}

// ReadCSV decodes CSV rows from r.
func ReadCSV[TCSVRow any](r io.Reader) ([]TCSVRow, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("error reading CSV data: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []TCSVRow{}, nil
	}

	var rows []TCSVRow
	if err := gocsv.UnmarshalBytes(data, &rows); err != nil {
		return nil, fmt.Errorf("error parsing CSV data: %w", err)
	}
	return rows, nil
}

// WriteCSVFile writes rows to filePath, creating parent directories as needed.
func WriteCSVFile[TCSVRow any](rows []TCSVRow, filePath string, delimiter rune, logger logging.Logger) error {
	if rows == nil {
		return fmt.Errorf("cannot write nil rows to CSV")
	}
	logger = logging.OrNop(logger)

	if err := os.MkdirAll(filepath.Dir(filePath), models.PermissionDirectory); err != nil {
		return fmt.Errorf("error creating directory: %w", err)
	}

	file, err := os.OpenFile(filepath.Clean(filePath), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, models.PermissionDataFile)
	if err != nil {
		return fmt.Errorf("error creating CSV file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close file")
		}
	}()

	if err := WriteCSV(file, rows, delimiter); err != nil {
		return err
	}

	logger.Info("Wrote CSV file",
		logging.Field{Key: "file", Value: filePath},
		logging.Field{Key: logging.FieldCount, Value: len(rows)})
	return nil
}

// WriteCSV encodes rows to w with the given delimiter.
func WriteCSV[TCSVRow any](w io.Writer, rows []TCSVRow, delimiter rune) error {
	if delimiter == 0 {
		delimiter = DefaultDelimiter
	}
	csvWriter := csv.NewWriter(w)
	csvWriter.Comma = delimiter

	if err := gocsv.MarshalCSV(rows, gocsv.NewSafeCSVWriter(csvWriter)); err != nil {
		return fmt.Errorf("error writing CSV data: %w", err)
	}
	csvWriter.Flush()
	return csvWriter.Error()
}
