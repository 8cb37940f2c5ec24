// Package wfs fetches parcel polygons from an OGC Web Feature Service that
// serves GeoJSON.
package wfs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/Veraticus/suito/internal/common"
	"github.com/Veraticus/suito/internal/model"
	"github.com/Veraticus/suito/internal/service"
)

// DefaultChunkSize bounds the number of ids in one filtered request.
const DefaultChunkSize = 100

const defaultParallelism = 4

// Config configures a Client.
type Config struct {
	HTTPClient  *http.Client
	Logger      *slog.Logger
	BaseURL     string
	Timeout     time.Duration
	ChunkSize   int
	Parallelism int
}

// Client implements service.GeometrySource.
type Client struct {
	httpClient  *http.Client
	logger      *slog.Logger
	baseURL     string
	chunkSize   int
	parallelism int
}

var _ service.GeometrySource = (*Client)(nil)

// NewClient creates a WFS client. A zero Timeout means requests never time out.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: geometry base URL is required", common.ErrMissingConfig)
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("%w: geometry base URL: %w", common.ErrInvalidConfig, err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}

	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	parallelism := cfg.Parallelism
	if parallelism <= 0 {
		parallelism = defaultParallelism
	}

	return &Client{
		httpClient:  httpClient,
		logger:      common.OrDefault(cfg.Logger),
		baseURL:     cfg.BaseURL,
		chunkSize:   chunkSize,
		parallelism: parallelism,
	}, nil
}

// Fetch returns the features of layerID, restricted to ids when non-empty.
// Filtered fetches are split into chunks that run concurrently; the merged
// result keeps chunk order.
func (c *Client) Fetch(ctx context.Context, layerID string, ids []string) ([]model.Feature, error) {
	if layerID == "" {
		return nil, common.NewValidationError("layer", "layer id is required")
	}
	if len(ids) == 0 {
		return c.fetchOne(ctx, BuildURL(c.baseURL, layerID, ""))
	}

	chunks := slices.Collect(slices.Chunk(dedupe(ids), c.chunkSize))
	results := make([][]model.Feature, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.parallelism)
	for i, ch := range chunks {
		g.Go(func() error {
			features, err := c.fetchOne(gctx, BuildURL(c.baseURL, layerID, Filter(ch)))
			if err != nil {
				return err
			}
			results[i] = features
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []model.Feature
	for _, r := range results {
		out = append(out, r...)
	}
	c.logger.Debug("filtered geometry fetch complete",
		"layer", layerID, "ids", len(ids), "chunks", len(chunks), "features", len(out))
	return out, nil
}

func (c *Client) fetchOne(ctx context.Context, u string) ([]model.Feature, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &common.FetchError{Source: common.SourceGeometry, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &common.FetchError{Source: common.SourceGeometry, Err: fmt.Errorf("request failed: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &common.FetchError{Source: common.SourceGeometry, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &common.FetchError{
			Source:     common.SourceGeometry,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("server responded %s", strings.TrimSpace(snippet(body))),
		}
	}

	features, err := Parse(body)
	if err != nil {
		return nil, &common.FetchError{Source: common.SourceGeometry, Err: err}
	}
	return features, nil
}

// BuildURL returns the GetFeature URL for layerID. filter is an OGC filter
// document, or "" for the whole layer.
func BuildURL(baseURL, layerID, filter string) string {
	q := "SERVICE=WFS&VERSION=1.1.0&REQUEST=GetFeature" +
		"&TYPENAME=" + url.QueryEscape(layerID) +
		"&SRSNAME=EPSG:4326&OUTPUTFORMAT=GeoJSON"
	if filter != "" {
		q += "&FILTER=" + url.QueryEscape(filter)
	}
	return baseURL + "?" + q
}

// Filter builds an OGC filter matching any of ids on polygon_uuid.
func Filter(ids []string) string {
	var b strings.Builder
	b.WriteString("<Filter><Or>")
	for _, id := range ids {
		b.WriteString("<PropertyIsEqualTo><PropertyName>")
		b.WriteString(model.PropPolygonUUID)
		b.WriteString("</PropertyName><Literal>")
		b.WriteString(xmlEscape(id))
		b.WriteString("</Literal></PropertyIsEqualTo>")
	}
	b.WriteString("</Or></Filter>")
	return b.String()
}

var xmlReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

func xmlEscape(s string) string {
	return xmlReplacer.Replace(s)
}

type collection struct {
	Features *[]rawFeature `json:"features"`
	Type     string        `json:"type"`
}

type rawFeature struct {
	Properties map[string]any  `json:"properties"`
	Geometry   json.RawMessage `json:"geometry"`
}

// ErrNoFeatures means the response was not a feature collection.
var ErrNoFeatures = errors.New("response has no features member")

// Parse decodes a GeoJSON feature collection into features. Features keep
// their raw properties; ID and centroid are read from polygon_uuid, point_lat
// and point_lng.
func Parse(body []byte) ([]model.Feature, error) {
	var fc collection
	if err := json.Unmarshal(body, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse GeoJSON: %w", err)
	}
	if fc.Features == nil {
		return nil, ErrNoFeatures
	}

	out := make([]model.Feature, 0, len(*fc.Features))
	for _, rf := range *fc.Features {
		props := rf.Properties
		if props == nil {
			props = map[string]any{}
		}
		f := model.Feature{
			Properties: props,
			Geometry:   rf.Geometry,
			ID:         stringValue(props[model.PropPolygonUUID]),
		}
		lat, latOK := floatValue(props[model.PropPointLat])
		lon, lonOK := floatValue(props[model.PropPointLng])
		if latOK && lonOK {
			f.Centroid = model.Centroid{Lat: lat, Lon: lon}
			f.HasCentroid = true
		}
		out = append(out, f)
	}
	return out, nil
}

func stringValue(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

func floatValue(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// snippet truncates body to at most 200 bytes without splitting a rune.
func snippet(body []byte) string {
	const limit = 200
	if len(body) <= limit {
		return string(body)
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return string(body[:cut]) + "..."
}
