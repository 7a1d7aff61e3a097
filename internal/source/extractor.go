package source

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/atharva-patade/Ireland-Property-Price-Register-Analysis/internal/logger"
	"github.com/atharva-patade/Ireland-Property-Price-Register-Analysis/internal/pipeline"
)

// ExtractArchive unpacks every CSV member of the given zip file into destDir
// and returns the extracted paths. Non-CSV members and unsafe paths are
// skipped with a warning.
func ExtractArchive(zipPath, destDir string, log *logger.Logger) ([]string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("open archive %q: %w", zipPath, err)
	}
	defer r.Close()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("create extract dir: %w", err)
	}

	var extracted []string
	for _, member := range r.File {
		if !strings.EqualFold(filepath.Ext(member.Name), ".csv") {
			continue
		}

		// Guard against zip slip.
		dest := filepath.Join(destDir, filepath.Base(member.Name))
		if !strings.HasPrefix(filepath.Clean(dest), filepath.Clean(destDir)+string(os.PathSeparator)) {
			log.Warn("Skipping unsafe archive member", map[string]interface{}{
				"member": member.Name,
			})
			continue
		}

		if err := extractMember(member, dest); err != nil {
			log.Warn("Failed to extract archive member", map[string]interface{}{
				"member": member.Name,
				"error":  err.Error(),
			})
			continue
		}
		extracted = append(extracted, dest)
	}

	log.Info("Archive extracted", map[string]interface{}{
		"archive": zipPath,
		"files":   len(extracted),
	})
	return extracted, nil
}

func extractMember(member *zip.File, dest string) error {
	rc, err := member.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(f, rc)
	return err
}

// ReadCSVFile parses one register CSV file into a Batch of raw rows.
// The register publishes files in Windows-1252; bytes that are not valid
// UTF-8 are decoded from that charset. The header must carry every expected
// register column.
func ReadCSVFile(path string, log *logger.Logger) (Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Batch{}, fmt.Errorf("read %q: %w", path, err)
	}

	if !utf8.Valid(data) {
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
		if err != nil {
			return Batch{}, fmt.Errorf("decode %q as windows-1252: %w", path, err)
		}
		data = decoded
	}
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})

	r := csv.NewReader(bytes.NewReader(data))
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return Batch{}, fmt.Errorf("parse %q: %w", path, err)
	}
	if len(records) == 0 {
		return Batch{}, fmt.Errorf("%q is empty", path)
	}

	header := make([]string, len(records[0]))
	for i, cell := range records[0] {
		header[i] = strings.TrimSpace(cell)
	}
	if err := validateHeader(header); err != nil {
		return Batch{}, fmt.Errorf("%q: %w", path, err)
	}

	rows := make([]map[string]string, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(map[string]string, len(header))
		for i, cell := range record {
			if i < len(header) {
				row[header[i]] = cell
			}
		}
		rows = append(rows, row)
	}

	name := filepath.Base(path)
	log.Debug("Read source file", map[string]interface{}{
		"source_file": name,
		"rows":        len(rows),
	})
	return Batch{SourceFile: name, Rows: rows}, nil
}

func validateHeader(header []string) error {
	present := make(map[string]bool, len(header))
	for _, col := range header {
		present[col] = true
	}
	var missing []string
	for _, col := range pipeline.ExpectedColumns {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing expected columns: %s", strings.Join(missing, ", "))
	}
	return nil
}
