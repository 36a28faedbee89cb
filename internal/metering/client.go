package metering

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned for unknown meters or empty ranges the API reports as 404.
	ErrNotFound = errors.New("metering: not found")
	// ErrUnauthorized is returned when the API rejects the credentials.
	ErrUnauthorized = errors.New("metering: unauthorized")
)

// Client is a minimal REST client for the metering API.
type Client struct {
	baseURL  string
	email    string
	password string
	client   *http.Client
}

// NewClient constructs a metering client.
func NewClient(baseURL, email, password string) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("metering: empty base url")
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		email:    email,
		password: password,
		client:   &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Reading is one timestamped set of meter values.
type Reading struct {
	Time   time.Time
	Values map[string]json.Number
}

// Disaggregation is the per-appliance estimate for one timestamp.
type Disaggregation struct {
	Time       time.Time
	Appliances map[string]float64
}

// Meter is a meter visible to the account.
type Meter struct {
	ID           string `json:"meterId"`
	SerialNumber string `json:"fullSerialNumber"`
	Type         string `json:"type"`
}

type readingResponse struct {
	Time   int64                  `json:"time"`
	Values map[string]json.Number `json:"values"`
}

// Login verifies the credentials.
func (c *Client) Login(ctx context.Context) error {
	if c.email == "" || c.password == "" {
		return errors.New("metering: missing credentials")
	}
	_, err := c.ListMeters(ctx)
	return err
}

// ListMeters returns the meters of the account.
func (c *Client) ListMeters(ctx context.Context) ([]Meter, error) {
	var meters []Meter
	if err := c.doJSON(ctx, "/meters", nil, &meters); err != nil {
		return nil, err
	}
	return meters, nil
}

// GetReadings returns readings between begin and end (Unix milliseconds).
func (c *Client) GetReadings(ctx context.Context, meterID string, begin, end int64, resolution string) ([]Reading, error) {
	if meterID == "" {
		return nil, errors.New("metering: empty meter id")
	}
	query := url.Values{}
	query.Set("meterId", meterID)
	query.Set("from", strconv.FormatInt(begin, 10))
	query.Set("to", strconv.FormatInt(end, 10))
	if resolution != "" {
		query.Set("resolution", resolution)
	}

	var resp []readingResponse
	if err := c.doJSON(ctx, "/readings", query, &resp); err != nil {
		return nil, err
	}
	result := make([]Reading, 0, len(resp))
	for _, item := range resp {
		result = append(result, Reading{Time: time.UnixMilli(item.Time).UTC(), Values: item.Values})
	}
	return result, nil
}

// GetLastReading returns the newest reading of a meter.
func (c *Client) GetLastReading(ctx context.Context, meterID string) (Reading, error) {
	if meterID == "" {
		return Reading{}, errors.New("metering: empty meter id")
	}
	query := url.Values{}
	query.Set("meterId", meterID)

	var resp readingResponse
	if err := c.doJSON(ctx, "/last_reading", query, &resp); err != nil {
		return Reading{}, err
	}
	return Reading{Time: time.UnixMilli(resp.Time).UTC(), Values: resp.Values}, nil
}

// GetDisaggregation returns appliance estimates between begin and end (Unix
// milliseconds), ordered by time.
func (c *Client) GetDisaggregation(ctx context.Context, meterID string, begin, end int64) ([]Disaggregation, error) {
	if meterID == "" {
		return nil, errors.New("metering: empty meter id")
	}
	query := url.Values{}
	query.Set("meterId", meterID)
	query.Set("from", strconv.FormatInt(begin, 10))
	query.Set("to", strconv.FormatInt(end, 10))

	var resp map[string]map[string]float64
	if err := c.doJSON(ctx, "/disaggregation", query, &resp); err != nil {
		return nil, err
	}
	result := make([]Disaggregation, 0, len(resp))
	for rawTime, appliances := range resp {
		ms, err := strconv.ParseInt(rawTime, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("metering: disaggregation timestamp %q: %w", rawTime, err)
		}
		result = append(result, Disaggregation{Time: time.UnixMilli(ms).UTC(), Appliances: appliances})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Time.Before(result[j].Time) })
	return result, nil
}

func (c *Client) doJSON(ctx context.Context, path string, query url.Values, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.email != "" {
		req.SetBasicAuth(c.email, c.password)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case resp.StatusCode >= 300:
		return fmt.Errorf("metering: http %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	return dec.Decode(out)
}
