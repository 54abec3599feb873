package catalog

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"pantry-matcher/internal/pkg/common"
)

// Fetcher 從遠端下載食材目錄
type Fetcher struct {
	client *resty.Client
}

// NewFetcher 創建目錄下載器
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(200*time.Millisecond).
		SetHeader("Accept", "application/yaml, application/json;q=0.9").
		SetHeader("User-Agent", "pantry-matcher")

	return &Fetcher{client: client}
}

// Fetch 下載並解析目錄
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Catalog, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		return nil, common.Wrap(common.ErrCatalogLoad, fmt.Errorf("fetch catalog %s: %w", url, err))
	}

	if resp.StatusCode() != http.StatusOK {
		common.LogWarn("下載食材目錄失敗",
			zap.String("url", url),
			zap.Int("status", resp.StatusCode()),
		)
		return nil, common.Wrap(common.ErrCatalogLoad, fmt.Errorf("fetch catalog %s: status %d", url, resp.StatusCode()))
	}

	// 以 Content-Type 判斷格式，其次看網址副檔名
	format := FormatOf(url)
	if strings.Contains(resp.Header().Get("Content-Type"), "json") {
		format = FormatJSON
	}
	return Parse(resp.Body(), format)
}
