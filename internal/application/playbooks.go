package application

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ahrav/go-tactician/internal/logging"
)

var titleCaser = cases.Title(language.English)

// LoadPlaybooksDir indexes every Markdown guide under dir, deriving the
// title from the file stem ("econ_basics.md" -> "Econ Basics"). A
// missing directory is not an error; the loader just reports zero
// guides. One unreadable file is logged and skipped.
func LoadPlaybooksDir(ctx context.Context, indexer *Indexer, dir string, log *logging.Logger) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}

	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".md" {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		content, err := os.ReadFile(path)
		if err != nil {
			if log != nil {
				log.WithError(err).WithField("path", path).Warn("skipping unreadable playbook")
			}
			continue
		}

		stem := strings.TrimSuffix(entry.Name(), ".md")
		title := titleCaser.String(strings.ReplaceAll(stem, "_", " "))
		if err := indexer.AddPlaybook(ctx, title, string(content), []string{stem}); err != nil {
			return loaded, err
		}
		loaded++
	}
	return loaded, nil
}
