package upload

import (
	"bytes"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/siherrmann/schoolpayManager/grid"
)

// ExportDir is the directory export artifacts are stored under.
const ExportDir = "exports"

// ExportPath returns the store path of an export file name. Directory parts
// of filename are dropped.
func ExportPath(filename string) (string, error) {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "" || name == "." || name == "/" || name == ".." {
		return "", fmt.Errorf("invalid export file name %q", filename)
	}
	return path.Join(ExportDir, name), nil
}

// SaveExport writes an export artifact under ExportDir.
func SaveExport(fs Filesystem, export *grid.Export) (File, error) {
	if export == nil {
		return File{}, fmt.Errorf("export is nil")
	}
	exportPath, err := ExportPath(export.Filename)
	if err != nil {
		return File{}, err
	}

	err = fs.Write(exportPath, bytes.NewReader(export.Payload), int64(len(export.Payload)))
	if err != nil {
		return File{}, fmt.Errorf("failed to write export %s: %w", exportPath, err)
	}

	return File{
		Name:     exportPath,
		Size:     int64(len(export.Payload)),
		MimeType: export.MimeType,
	}, nil
}

// ListExports returns the stored export artifacts ordered by name.
func ListExports(fs Filesystem) ([]File, error) {
	files, err := fs.ListFiles()
	if err != nil {
		return nil, err
	}

	exports := []File{}
	for _, file := range files {
		name := strings.ReplaceAll(file.Name, "\\", "/")
		if strings.HasPrefix(name, ExportDir+"/") {
			file.Name = name
			exports = append(exports, file)
		}
	}
	sort.Slice(exports, func(i, j int) bool {
		return exports[i].Name < exports[j].Name
	})
	return exports, nil
}
