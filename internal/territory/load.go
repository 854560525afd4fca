package territory

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Load reads service-area polygons from an ESRI shapefile. A .zip archive
// is extracted to a temp directory first and the .shp inside is used.
func Load(path string) (*Territory, error) {
	shpPath := path
	if strings.EqualFold(filepath.Ext(path), ".zip") {
		dir, err := os.MkdirTemp("", "territory-*")
		if err != nil {
			return nil, eris.Wrap(err, "territory: create extract dir")
		}
		defer func() { _ = os.RemoveAll(dir) }()

		if err := extractZIP(path, dir); err != nil {
			return nil, eris.Wrapf(err, "territory: extract %s", path)
		}
		if shpPath, err = findFileByExt(dir, ".shp"); err != nil {
			return nil, eris.Wrapf(err, "territory: no shapefile in %s", path)
		}
	}

	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "territory: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	t := &Territory{}
	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok {
			skipped++
			continue
		}
		t.polygons = append(t.polygons, assemblePolygons(poly)...)
	}
	if len(t.polygons) == 0 {
		return nil, eris.Errorf("territory: no polygons in %s", shpPath)
	}

	zap.L().Info("territory: shapefile loaded",
		zap.String("path", path),
		zap.Int("areas", len(t.polygons)),
		zap.Int("skipped_shapes", skipped))
	return t, nil
}

// extractZIP extracts an archive to the destination directory, flattening
// entries to their base names.
func extractZIP(zipPath, destDir string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return eris.Wrap(err, "open zip")
	}
	defer r.Close() //nolint:errcheck

	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		destPath := filepath.Join(destDir, filepath.Base(f.Name))

		rc, err := f.Open()
		if err != nil {
			return eris.Wrapf(err, "open zip entry %s", f.Name)
		}

		outFile, err := os.Create(destPath)
		if err != nil {
			_ = rc.Close()
			return eris.Wrapf(err, "create %s", destPath)
		}

		if _, err := io.Copy(outFile, rc); err != nil {
			_ = outFile.Close()
			_ = rc.Close()
			return eris.Wrapf(err, "extract %s", f.Name)
		}
		_ = outFile.Close()
		_ = rc.Close()
	}

	return nil
}

// findFileByExt finds the first file with the given extension in a directory.
func findFileByExt(dir, ext string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", eris.Wrap(err, "read directory")
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(strings.ToLower(e.Name()), ext) {
			return filepath.Join(dir, e.Name()), nil
		}
	}
	return "", eris.Errorf("no %s file found in %s", ext, dir)
}
