package airtable

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aymshop/storefront/internal/config"
	"github.com/aymshop/storefront/internal/logger"
	"github.com/aymshop/storefront/internal/models"
	"github.com/aymshop/storefront/pkg/util"
	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// maxPages bounds offset pagination against a source that never stops returning offsets.
const maxPages = 100

// Fetcher retrieves the catalog from the external product table.
type Fetcher interface {
	FetchCatalog(ctx context.Context) ([]models.Product, error)
}

type Record struct {
	ID     string
	Fields gjson.Result
}

type Page struct {
	Records []Record
	Offset  string
}

type Client interface {
	ListRecords(ctx context.Context, offset string) (*Page, error)
}

type client struct {
	http    *resty.Client
	baseURL string
	baseID  string
	table   string
	apiKey  string
	log     *zap.SugaredLogger
}

func NewClient(cfg *config.Config) Client {
	return newClient(cfg.Airtable, cfg.Catalog.FetchTimeout)
}

func newClient(cfg config.AirtableConfig, timeout time.Duration) *client {
	return &client{
		http:    util.NewRestyClient(timeout),
		baseURL: cfg.BaseURL,
		baseID:  cfg.BaseID,
		table:   cfg.Table,
		apiKey:  cfg.APIKey,
		log:     logger.MustNamed("airtable"),
	}
}

func (c *client) ListRecords(ctx context.Context, offset string) (*Page, error) {
	req := c.http.R().
		SetContext(ctx).
		SetAuthToken(c.apiKey).
		SetHeader("Accept", "application/json").
		SetPathParams(map[string]string{
			"baseID": c.baseID,
			"table":  c.table,
		})
	if offset != "" {
		req.SetQueryParam("offset", offset)
	}

	resp, err := req.Get(c.baseURL + "/v0/{baseID}/{table}")
	if err != nil {
		return nil, fmt.Errorf("%w: request: %w", models.ErrSourceUnavailable, err)
	}
	if resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		c.log.Errorw("airtable api error", "status", resp.StatusCode(), "body", resp.String())
		return nil, fmt.Errorf("%w: airtable api error: %d", models.ErrSourceUnavailable, resp.StatusCode())
	}

	body := resp.Body()
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: malformed payload", models.ErrSourceUnavailable)
	}
	records := gjson.GetBytes(body, "records")
	if !records.IsArray() {
		return nil, fmt.Errorf("%w: payload has no records list", models.ErrSourceUnavailable)
	}

	page := &Page{Offset: gjson.GetBytes(body, "offset").String()}
	for _, r := range records.Array() {
		page.Records = append(page.Records, Record{
			ID:     r.Get("id").String(),
			Fields: r.Get("fields"),
		})
	}
	return page, nil
}

type fetcher struct {
	client Client
	log    *zap.SugaredLogger
}

func NewFetcher(client Client) Fetcher {
	return &fetcher{
		client: client,
		log:    logger.MustNamed("fetcher"),
	}
}

// FetchCatalog walks every page once. Records without a name are skipped with a warning.
func (f *fetcher) FetchCatalog(ctx context.Context) ([]models.Product, error) {
	products := make([]models.Product, 0)
	offset := ""
	for i := 0; i < maxPages; i++ {
		page, err := f.client.ListRecords(ctx, offset)
		if err != nil {
			return nil, err
		}
		for _, r := range page.Records {
			p, ok := NormalizeRecord(r.ID, r.Fields)
			if !ok {
				f.log.Warnw("record has no name, skipping", "record_id", r.ID)
				continue
			}
			products = append(products, p)
		}
		if page.Offset == "" {
			return products, nil
		}
		offset = page.Offset
	}
	f.log.Warnw("stopped paging catalog", "max_pages", maxPages)
	return products, nil
}
