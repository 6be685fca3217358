package docs

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"github.com/arturoeanton/go-mini-rag/internal/domain"
)

// Loader reads indexable documents from the filesystem. Loading is
// best-effort: unreadable files are logged and skipped, never fatal.
type Loader struct {
	allowed map[string]bool
	log     *zap.Logger
}

// NewLoader creates a loader accepting plain-text, markdown, and PDF files.
func NewLoader(log *zap.Logger) *Loader {
	return &Loader{
		allowed: map[string]bool{".txt": true, ".md": true, ".pdf": true},
		log:     log,
	}
}

// Load reads documents from a file or directory. Directories are walked
// recursively; files with other extensions are silently skipped. A missing
// path yields an empty result, not an error.
func (l *Loader) Load(path string) []domain.Document {
	info, err := os.Stat(path)
	if err != nil {
		return nil
	}

	if !info.IsDir() {
		if doc, ok := l.readFile(path, info.ModTime()); ok {
			return []domain.Document{doc}
		}
		return nil
	}

	var items []domain.Document
	walkErr := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			l.log.Warn("skipping unreadable entry", zap.String("path", p), zap.Error(err))
			return nil
		}
		if d.IsDir() || !l.allowed[strings.ToLower(filepath.Ext(p))] {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			l.log.Warn("skipping file without metadata", zap.String("path", p), zap.Error(err))
			return nil
		}
		if doc, ok := l.readFile(p, fi.ModTime()); ok {
			items = append(items, doc)
		}
		return nil
	})
	if walkErr != nil {
		l.log.Warn("document walk aborted", zap.String("path", path), zap.Error(walkErr))
	}
	return items
}

// Stats summarizes the documents found under a path.
func (l *Loader) Stats(path string) domain.DocStats {
	docs := l.Load(path)

	stats := domain.DocStats{TotalDocuments: len(docs)}
	for _, d := range docs {
		stats.TotalCharacters += len(d.Text)
		stats.TotalWords += len(strings.Fields(d.Text))
	}
	if len(docs) > 0 {
		stats.AverageCharsPerDoc = stats.TotalCharacters / len(docs)
		stats.AverageWordsPerDoc = stats.TotalWords / len(docs)
	}
	return stats
}

func (l *Loader) readFile(path string, modTime time.Time) (domain.Document, bool) {
	var text string
	var err error

	if strings.ToLower(filepath.Ext(path)) == ".pdf" {
		text, err = extractPDFText(path)
	} else {
		text, err = readTextFile(path)
	}
	if err != nil {
		l.log.Warn("error reading file", zap.String("path", path), zap.Error(err))
		return domain.Document{}, false
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Document{}, false
	}

	return domain.Document{Text: text, DocPath: path, ModTime: modTime}, true
}

// readTextFile reads a file as UTF-8, replacing invalid byte sequences
// instead of failing on them.
func readTextFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.ToValidUTF8(string(data), "�"), nil
}

// extractPDFText extracts text per page and concatenates the pages with
// newline separators.
func extractPDFText(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			// one bad page does not discard the rest
			continue
		}
		sb.WriteString(pageText)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}
