// SPDX-License-Identifier: Apache-2.0

package migrations

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

//go:embed *.sql
var embeddedFiles embed.FS

type File struct {
	Name    string
	Version string
	SQL     string
}

// Ordered returns the embedded migrations sorted by their numeric prefix
// ("0001_transactions.sql" has version "0001").
func Ordered() ([]File, error) {
	entries, err := fs.ReadDir(embeddedFiles, ".")
	if err != nil {
		return nil, err
	}

	files := make([]File, 0, len(entries))
	seen := make(map[string]string, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, _, ok := strings.Cut(entry.Name(), "_")
		if !ok || version == "" {
			return nil, fmt.Errorf("migration %s: missing version prefix", entry.Name())
		}
		if prev, dup := seen[version]; dup {
			return nil, fmt.Errorf("migration %s: version %s already used by %s", entry.Name(), version, prev)
		}
		seen[version] = entry.Name()

		body, err := embeddedFiles.ReadFile(entry.Name())
		if err != nil {
			return nil, err
		}

		files = append(files, File{
			Name:    entry.Name(),
			Version: version,
			SQL:     string(body),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Name < files[j].Name
	})

	return files, nil
}
