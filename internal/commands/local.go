package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/crowdwave/reactoxide/internal/models"
)

// LocalFiles turns local file paths into upload candidates. A path that cannot be
// stat'ed gets a zero size and fails when its turn to be opened comes.
func LocalFiles(paths []string) []models.UploadFile {
	files := make([]models.UploadFile, 0, len(paths))
	for _, p := range paths {
		var size int64
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			size = info.Size()
		}
		files = append(files, models.UploadFile{
			Name: filepath.Base(p),
			Size: size,
			Open: func() (io.ReadCloser, error) {
				f, err := os.Open(p)
				if err != nil {
					return nil, fmt.Errorf("open %s: %w", p, err)
				}
				return f, nil
			},
		})
	}
	return files
}
