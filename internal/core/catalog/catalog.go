package catalog

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"pantry-matcher/internal/infrastructure/config"
	"pantry-matcher/internal/pkg/common"
)

//go:embed default_catalog.yaml
var defaultCatalog []byte

// Format 目錄檔格式
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Catalog 標準食材目錄
type Catalog struct {
	Version     string                       `json:"version" yaml:"version"`
	Ingredients []common.CanonicalIngredient `json:"ingredients" yaml:"ingredients"`
}

// Default 內建目錄
func Default() (*Catalog, error) {
	return Parse(defaultCatalog, FormatYAML)
}

// Parse 解析目錄內容
func Parse(data []byte, format Format) (*Catalog, error) {
	var c Catalog
	switch format {
	case FormatJSON:
		if err := common.ParseJSONBytesStrict(data, &c); err != nil {
			return nil, common.Wrap(common.ErrCatalogLoad, fmt.Errorf("decode json catalog: %w", err))
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &c); err != nil {
			return nil, common.Wrap(common.ErrCatalogLoad, fmt.Errorf("decode yaml catalog: %w", err))
		}
	default:
		return nil, common.Wrap(common.ErrCatalogLoad, fmt.Errorf("unsupported catalog format %q", format))
	}

	if len(c.Ingredients) == 0 {
		return nil, common.Wrap(common.ErrCatalogInvalid, fmt.Errorf("catalog has no ingredients"))
	}
	return &c, nil
}

// FormatOf 依副檔名判斷格式，預設為 YAML
func FormatOf(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return FormatJSON
	default:
		return FormatYAML
	}
}

// LoadFile 從檔案載入目錄
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, common.Wrap(common.ErrCatalogLoad, fmt.Errorf("read catalog %s: %w", path, err))
	}
	return Parse(data, FormatOf(path))
}

// Load 依設定載入目錄：URL 優先，其次為檔案，皆未設定時使用內建目錄
func Load(ctx context.Context, cfg config.CatalogConfig) (*Catalog, error) {
	var (
		c      *Catalog
		err    error
		source string
	)
	switch {
	case cfg.URL != "":
		source = cfg.URL
		c, err = NewFetcher(cfg.Timeout).Fetch(ctx, cfg.URL)
	case cfg.Path != "":
		source = cfg.Path
		c, err = LoadFile(cfg.Path)
	default:
		source = "embedded"
		c, err = Default()
	}
	if err != nil {
		return nil, err
	}

	common.LogInfo("食材目錄已載入",
		zap.String("source", source),
		zap.String("version", c.Version),
		zap.Int("ingredients", len(c.Ingredients)),
	)
	return c, nil
}
