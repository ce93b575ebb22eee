package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"
)

const DefaultURL = "https://nominatim.openstreetmap.org/search"

var ErrNoResults = errors.New("no results found for address")

type Options struct {
	URL       string
	UserAgent string
	// MinInterval spaces consecutive upstream requests
	MinInterval time.Duration
	CacheSize   int
}

// Geocoder resolves pickup addresses to coordinates with Nominatim. Results
// are cached in memory.
type Geocoder struct {
	logger  *logrus.Logger
	opts    Options
	cache   *lru.Cache
	client  *http.Client
	mu      sync.Mutex
	lastReq time.Time
}

func NewGeocoder(opts Options, logger *logrus.Logger) (*Geocoder, error) {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	if opts.URL == "" {
		opts.URL = DefaultURL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "RecycleHub/1.0"
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 1024
	}

	cache, err := lru.New(opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create geocode cache: %w", err)
	}

	return &Geocoder{
		logger: logger,
		opts:   opts,
		cache:  cache,
		client: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

type nominatimResponse []struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

func cacheKey(address string) string {
	return strings.ToLower(strings.Join(strings.Fields(address), " "))
}

// Geocode returns the coordinates of the first match for address.
func (g *Geocoder) Geocode(ctx context.Context, address string) (orb.Point, error) {
	key := cacheKey(address)
	if key == "" {
		return orb.Point{}, fmt.Errorf("%w: empty address", ErrNoResults)
	}
	if v, ok := g.cache.Get(key); ok {
		return v.(orb.Point), nil
	}

	if err := g.wait(ctx); err != nil {
		return orb.Point{}, err
	}

	params := url.Values{
		"q":      []string{address},
		"format": []string{"json"},
		"limit":  []string{"1"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.opts.URL+"?"+params.Encode(), nil)
	if err != nil {
		return orb.Point{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", g.opts.UserAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		return orb.Point{}, fmt.Errorf("geocoding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return orb.Point{}, fmt.Errorf("geocoding request failed with status %d", resp.StatusCode)
	}

	var result nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return orb.Point{}, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(result) == 0 {
		g.logger.WithField("address", address).Warn("No geocoding results")
		return orb.Point{}, fmt.Errorf("%w: %s", ErrNoResults, address)
	}

	lat, err := strconv.ParseFloat(result[0].Lat, 64)
	if err != nil {
		return orb.Point{}, fmt.Errorf("invalid latitude %q: %w", result[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(result[0].Lon, 64)
	if err != nil {
		return orb.Point{}, fmt.Errorf("invalid longitude %q: %w", result[0].Lon, err)
	}

	point := orb.Point{lon, lat}
	g.cache.Add(key, point)
	g.logger.WithFields(logrus.Fields{
		"address":   address,
		"latitude":  lat,
		"longitude": lon,
	}).Debug("Geocoded address")
	return point, nil
}

// wait enforces MinInterval between upstream requests.
func (g *Geocoder) wait(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if delay := g.opts.MinInterval - time.Since(g.lastReq); delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	g.lastReq = time.Now()
	return nil
}
