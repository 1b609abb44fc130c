package elevation

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"geocurtain/internal/geom"

	"github.com/pkg/errors"
)

const (
	DefaultBaseURL  = "https://maps.googleapis.com"
	DefaultMaxBatch = 256
	DefaultTimeout  = 10 * time.Second

	elevationPath = "/maps/api/elevation/json"
)

// Google queries the Google Maps Elevation API. The API key is supplied
// explicitly by the caller.
type Google struct {
	apiKey   string
	baseURL  string
	maxBatch int
	client   *http.Client
}

// GoogleOption customises a Google oracle.
type GoogleOption func(*Google)

// WithBaseURL points the client at another host (tests, proxies).
func WithBaseURL(u string) GoogleOption {
	return func(g *Google) {
		if u != "" {
			g.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithMaxBatch caps the number of locations per request.
func WithMaxBatch(n int) GoogleOption {
	return func(g *Google) {
		if n > 0 {
			g.maxBatch = n
		}
	}
}

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) GoogleOption {
	return func(g *Google) {
		if c != nil {
			g.client = c
		}
	}
}

// WithTimeout sets the per-request timeout of the default client.
func WithTimeout(d time.Duration) GoogleOption {
	return func(g *Google) {
		if d > 0 {
			g.client = &http.Client{Timeout: d}
		}
	}
}

func NewGoogle(apiKey string, opts ...GoogleOption) *Google {
	g := &Google{
		apiKey:   apiKey,
		baseURL:  DefaultBaseURL,
		maxBatch: DefaultMaxBatch,
		client:   &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type googleResult struct {
	Elevation float64 `json:"elevation"`
	Location  struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	} `json:"location"`
	Resolution float64 `json:"resolution"`
}

type googleResponse struct {
	Results      []googleResult `json:"results"`
	Status       string         `json:"status"`
	ErrorMessage string         `json:"error_message,omitempty"`
}

// Elevations issues one request per batch of at most maxBatch points, in
// order. Any failing batch fails the whole query.
func (g *Google) Elevations(ctx context.Context, pts []geom.GeoPoint) ([]float64, error) {
	if len(pts) == 0 {
		return nil, nil
	}
	if g.apiKey == "" {
		return nil, Failuref("google elevation: missing api key")
	}
	out := make([]float64, 0, len(pts))
	for start := 0; start < len(pts); start += g.maxBatch {
		end := min(start+g.maxBatch, len(pts))
		elevs, err := g.fetch(ctx, pts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, elevs...)
	}
	return out, nil
}

func (g *Google) fetch(ctx context.Context, pts []geom.GeoPoint) ([]float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.requestURL(pts), nil)
	if err != nil {
		return nil, Fail(withoutURL(err), "google elevation: build request")
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, Fail(withoutURL(err), "google elevation: "+http.MethodGet)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, Failuref("google elevation: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var payload googleResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, Failuref("google elevation: decode: %v", err)
	}
	if payload.Status != "OK" {
		if payload.ErrorMessage != "" {
			return nil, Failuref("google elevation: status %s: %s", payload.Status, payload.ErrorMessage)
		}
		return nil, Failuref("google elevation: status %s", payload.Status)
	}
	if len(payload.Results) != len(pts) {
		return nil, Failuref("google elevation: %d results for %d locations", len(payload.Results), len(pts))
	}
	out := make([]float64, len(payload.Results))
	for i, r := range payload.Results {
		out[i] = r.Elevation
	}
	return out, nil
}

// withoutURL strips the request URL, which carries the API key, from
// transport errors.
func withoutURL(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return ue.Err
	}
	return err
}

// locations are "lat,lng" pairs joined by '|'
func (g *Google) requestURL(pts []geom.GeoPoint) string {
	locs := make([]string, len(pts))
	for i, p := range pts {
		locs[i] = strconv.FormatFloat(p.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(p.Lng, 'f', -1, 64)
	}
	q := url.Values{}
	q.Set("locations", strings.Join(locs, "|"))
	q.Set("key", g.apiKey)
	return g.baseURL + elevationPath + "?" + q.Encode()
}
