package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/MrSnakeDoc/berth/internal/domain"
	"github.com/MrSnakeDoc/berth/internal/logger"
)

// Loader reads the service catalog from disk.
//
// There is no caching: every Load re-reads the file so edits take effect
// on the next request without a restart.
type Loader struct {
	filePath string
	mapper   *Mapper
	log      logger.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLogger sets where skipped services are reported.
func WithLogger(log logger.Logger) LoaderOption {
	return func(l *Loader) { l.log = log }
}

// NewLoader creates a new catalog loader
func NewLoader(filePath string, opts ...LoaderOption) *Loader {
	l := &Loader{
		filePath: filePath,
		mapper:   NewMapper(),
		log:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Path returns the catalog file path.
func (l *Loader) Path() string { return l.filePath }

// Load reads, parses and maps the catalog file. Malformed services are
// logged and left out.
func (l *Loader) Load() (*domain.Catalog, error) {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	doc, err := Parse(data, filepath.Ext(l.filePath))
	if err != nil {
		return nil, err
	}

	c, skipped := l.mapper.MapCatalog(doc)
	for _, err := range skipped {
		l.log.Warn("skipping malformed catalog service",
			logger.String("file", l.filePath),
			logger.Error(err))
	}
	return c, nil
}

// Parse decodes a catalog document. JSON catalogs (".json", ".jsonc") may
// carry comments and trailing commas; they are normalised first. JSON is a
// subset of YAML so both go through the same decoder and keep key order.
func Parse(data []byte, ext string) (*Document, error) {
	switch strings.ToLower(ext) {
	case ".json", ".jsonc":
		data = jsonc.ToJSON(data)
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	return &doc, nil
}
