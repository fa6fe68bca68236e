package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"

	"modelrun/pkg/types"
)

const (
	localPrefix = "file://"
	// maxCatalogBytes caps the catalog body; real catalogs are a few KB.
	maxCatalogBytes = 8 << 20
)

// Options configures a Client. Zero values select defaults.
type Options struct {
	URL string
	// Timeout bounds each fetch attempt (0 = no bound).
	Timeout time.Duration
	// Retries is the number of extra attempts after a failed fetch.
	Retries int
	// RetryInterval is the first backoff interval (default 500ms).
	RetryInterval time.Duration
	HTTPClient    *http.Client
	Logger        *zerolog.Logger
}

// Client resolves model ids against the remote catalog.
type Client struct {
	url           string
	timeout       time.Duration
	retries       int
	retryInterval time.Duration
	httpClient    *http.Client
	log           zerolog.Logger
}

// New constructs a catalog client.
func New(opts Options) *Client {
	c := &Client{
		url:           strings.TrimSpace(opts.URL),
		timeout:       opts.Timeout,
		retries:       opts.Retries,
		retryInterval: opts.RetryInterval,
		httpClient:    opts.HTTPClient,
		log:           zerolog.Nop(),
	}
	if c.retries < 0 {
		c.retries = 0
	}
	if c.retryInterval <= 0 {
		c.retryInterval = 500 * time.Millisecond
	}
	// Timeout=0 on the client: every request carries its own deadline.
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 0}
	}
	if opts.Logger != nil {
		c.log = opts.Logger.With().Str("component", "catalog").Logger()
	}
	return c
}

// URL returns the catalog location.
func (c *Client) URL() string { return c.url }

// List fetches every record of the catalog.
func (c *Client) List(ctx context.Context) ([]types.CatalogRecord, error) {
	if c.retries == 0 {
		recs, err := c.fetch(ctx)
		return recs, unwrapPermanent(err)
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryInterval
	recs, err := backoff.Retry(ctx, func() ([]types.CatalogRecord, error) {
		return c.fetch(ctx)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(c.retries+1)),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.log.Warn().Err(err).Dur("retry_in", next).Msg("catalog fetch failed")
		}),
	)
	if err != nil {
		err = unwrapPermanent(err)
		if IsCatalogUnavailable(err) {
			return nil, err
		}
		return nil, ErrCatalogUnavailable(c.url, err)
	}
	return recs, nil
}

func unwrapPermanent(err error) error {
	var p *backoff.PermanentError
	if errors.As(err, &p) {
		return p.Unwrap()
	}
	return err
}

// Resolve returns the descriptor of the record whose name equals id exactly.
func (c *Client) Resolve(ctx context.Context, id string) (types.ModelDescriptor, error) {
	recs, err := c.List(ctx)
	if err != nil {
		return types.ModelDescriptor{}, err
	}
	rec, ok := Find(recs, id)
	if !ok {
		return types.ModelDescriptor{}, ErrModelNotFound(id, Suggest(recs, id, 3)...)
	}
	d := Describe(rec)
	c.log.Debug().Str("model", d.ID).Float64("size_gb", d.SizeGB).Str("quant", string(d.Quantization)).
		Str("source", d.SourceModelID).Str("revision", d.Revision).Msg("model resolved")
	return d, nil
}

// Find looks up a record by exact, case-sensitive name.
func Find(recs []types.CatalogRecord, id string) (types.CatalogRecord, bool) {
	for _, r := range recs {
		if r.Name == id {
			return r, true
		}
	}
	return types.CatalogRecord{}, false
}

// Describe converts a catalog record to a descriptor. Missing fields stay zero
// except the revision, which becomes types.RevisionNone.
func Describe(rec types.CatalogRecord) types.ModelDescriptor {
	d := types.ModelDescriptor{ID: rec.Name, Revision: types.RevisionNone}
	if rec.SizeGB != nil {
		d.SizeGB = *rec.SizeGB
	}
	if rec.Type != nil && *rec.Type != "" {
		if strings.Contains(*rec.Type, "16b") {
			d.Quantization = types.QuantNone
		} else {
			d.Quantization = types.QuantGPTQ
		}
	}
	if rec.HFID != nil {
		d.SourceModelID = *rec.HFID
	}
	if rec.HFBranch != nil && *rec.HFBranch != "" {
		d.Revision = *rec.HFBranch
	}
	return d
}

// fetch performs a single catalog read. 4xx answers are not retried.
func (c *Client) fetch(ctx context.Context) ([]types.CatalogRecord, error) {
	if c.url == "" {
		return nil, backoff.Permanent(ErrCatalogUnavailable(c.url, errors.New("no catalog url configured")))
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	start := time.Now()
	body, err := c.read(ctx)
	if err != nil {
		return nil, err
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, ErrCatalogUnavailable(c.url, errors.New("empty response"))
	}
	var recs []types.CatalogRecord
	if err := json.Unmarshal(body, &recs); err != nil {
		return nil, backoff.Permanent(ErrCatalogUnavailable(c.url, fmt.Errorf("decode: %w", err)))
	}
	if len(recs) == 0 {
		return nil, ErrCatalogUnavailable(c.url, errors.New("catalog has no records"))
	}
	c.log.Debug().Int("records", len(recs)).Dur("dur", time.Since(start)).Msg("catalog fetched")
	return recs, nil
}

func (c *Client) read(ctx context.Context) ([]byte, error) {
	if strings.HasPrefix(c.url, localPrefix) {
		b, err := os.ReadFile(strings.TrimPrefix(c.url, localPrefix))
		if err != nil {
			return nil, backoff.Permanent(ErrCatalogUnavailable(c.url, err))
		}
		return b, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, backoff.Permanent(ErrCatalogUnavailable(c.url, err))
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, ErrCatalogUnavailable(c.url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		herr := ErrCatalogUnavailable(c.url, fmt.Errorf("http %s: %s", resp.Status, strings.TrimSpace(string(b))))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, backoff.Permanent(herr)
		}
		return nil, herr
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxCatalogBytes))
	if err != nil {
		return nil, ErrCatalogUnavailable(c.url, err)
	}
	return b, nil
}
