package source

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atharva-patade/Ireland-Property-Price-Register-Analysis/internal/logger"
	"github.com/atharva-patade/Ireland-Property-Price-Register-Analysis/internal/pipeline"
)

const utf8Header = "Date of Sale (dd/mm/yyyy),Address,County,Eircode,Price (€),Not Full Market Price,VAT Exclusive,Description of Property,Property Size Description"

func writeZip(t *testing.T, members map[string]string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "PPR-ALL.zip")
	f, err := os.Create(path)
	require.NoError(t, err)

	w := zip.NewWriter(f)
	for name, content := range members {
		member, err := w.Create(name)
		require.NoError(t, err)
		_, err = member.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())
	return path
}

func TestExtractArchive(t *testing.T) {
	zipPath := writeZip(t, map[string]string{
		"PPR-2021.csv": utf8Header + "\n01/05/2021,1 Main St,Cork,,\"€200,000.00\",No,No,New Dwelling house /Apartment,\n",
		"README.txt":   "not a csv",
	})
	destDir := filepath.Join(t.TempDir(), "extracted")

	files, err := ExtractArchive(zipPath, destDir, logger.New("test"))
	require.NoError(t, err)

	require.Len(t, files, 1)
	assert.Equal(t, "PPR-2021.csv", filepath.Base(files[0]))
	_, err = os.Stat(files[0])
	assert.NoError(t, err)
}

func TestExtractArchive_SkipsUnsafePaths(t *testing.T) {
	zipPath := writeZip(t, map[string]string{
		"../escape.csv": utf8Header + "\n",
	})
	destDir := filepath.Join(t.TempDir(), "extracted")

	// filepath.Base flattens the member name, so the file lands inside
	// destDir rather than above it.
	files, err := ExtractArchive(zipPath, destDir, logger.New("test"))
	require.NoError(t, err)
	for _, f := range files {
		assert.True(t, strings.HasPrefix(f, destDir))
	}
}

func TestReadCSVFile_UTF8(t *testing.T) {
	path := filepath.Join(t.TempDir(), "PPR-2021-05.csv")
	content := utf8Header + "\n" +
		"01/05/2021,\"1 Main St, Douglas\",Cork,T12AB34,\"€200,000.00\",No,Yes,Second-Hand Dwelling house /Apartment,\n" +
		"02/05/2021,2 Elm Ave,Dublin,,€310000,Yes,No,New Dwelling house /Apartment,greater than or equal to 38 sq metres\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	batch, err := ReadCSVFile(path, logger.New("test"))
	require.NoError(t, err)

	assert.Equal(t, "PPR-2021-05.csv", batch.SourceFile)
	require.Len(t, batch.Rows, 2)
	assert.Equal(t, "1 Main St, Douglas", batch.Rows[0][pipeline.ColAddress])
	assert.Equal(t, "€200,000.00", batch.Rows[0][pipeline.ColPrice])
	assert.Equal(t, "Yes", batch.Rows[1][pipeline.ColNotFullMarketPrice])
}

func TestReadCSVFile_Windows1252(t *testing.T) {
	// The register serves files in Windows-1252: the euro sign is byte 0x80
	// and é is 0xE9, both invalid as UTF-8.
	raw := strings.ReplaceAll(utf8Header, "€", "\x80") + "\n" +
		"01/05/2021,1 C\xe9ide M\xf3r,Galway,,\x80150000,No,No,Second-Hand Dwelling house /Apartment,\n"

	path := filepath.Join(t.TempDir(), "PPR-2021-05.csv")
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	batch, err := ReadCSVFile(path, logger.New("test"))
	require.NoError(t, err)

	require.Len(t, batch.Rows, 1)
	assert.Equal(t, "1 Céide Mór", batch.Rows[0][pipeline.ColAddress])
	assert.Equal(t, "€150000", batch.Rows[0][pipeline.ColPrice])
}

func TestReadCSVFile_MissingColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("Address,County\n1 Main St,Cork\n"), 0o644))

	_, err := ReadCSVFile(path, logger.New("test"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing expected columns")
}

func TestReadCSVFile_BOMStripped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "PPR-2021-06.csv")
	content := "\xEF\xBB\xBF" + utf8Header + "\n01/06/2021,1 Main St,Cork,,€100000,No,No,New Dwelling house /Apartment,\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	batch, err := ReadCSVFile(path, logger.New("test"))
	require.NoError(t, err)
	require.Len(t, batch.Rows, 1)
	assert.Equal(t, "01/06/2021", batch.Rows[0][pipeline.ColSaleDate])
}
