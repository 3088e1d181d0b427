package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"livechat-backend/internal/env"
)

// Location is a best-effort IP geolocation result.
type Location struct {
	Latitude  float64
	Longitude float64
}

type Resolver interface {
	Resolve(ctx context.Context, ip string) (Location, bool)
}

// HTTPResolver queries an ip-api.com compatible endpoint. Every failure
// path returns (zero, false); thread creation never depends on it.
type HTTPResolver struct {
	baseURL string
	client  *http.Client
	enabled bool
}

func NewResolverFromEnv() *HTTPResolver {
	return &HTTPResolver{
		baseURL: env.GetOrDefault(env.GeoAPIURL, "http://ip-api.com/json"),
		client:  &http.Client{Timeout: 2 * time.Second},
		enabled: env.GetBool(env.GeoLookupEnabled),
	}
}

func NewResolver(baseURL string, client *http.Client) *HTTPResolver {
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Second}
	}
	return &HTTPResolver{
		baseURL: baseURL,
		client:  client,
		enabled: true,
	}
}

type geoResponse struct {
	Status string  `json:"status"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
}

func (r *HTTPResolver) Resolve(ctx context.Context, ip string) (Location, bool) {
	if !r.enabled || strings.TrimSpace(ip) == "" {
		return Location{}, false
	}

	url := fmt.Sprintf("%s/%s", strings.TrimRight(r.baseURL, "/"), ip)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Location{}, false
	}

	res, err := r.client.Do(req)
	if err != nil {
		log.Printf("geo lookup failed for %s: %v", ip, err)
		return Location{}, false
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		log.Printf("geo lookup for %s returned status %d", ip, res.StatusCode)
		return Location{}, false
	}

	var body geoResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		log.Printf("geo lookup decode failed for %s: %v", ip, err)
		return Location{}, false
	}

	if body.Status != "success" {
		return Location{}, false
	}

	return Location{Latitude: body.Lat, Longitude: body.Lon}, true
}
