package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Provider names as they appear in a city's provider order.
const (
	NameDMI       = "dmi"
	NameMetNo     = "met_no"
	NameOpenMeteo = "open_meteo"
)

// Default endpoints.
const (
	DMIURL       = "https://dmigw.govcloud.dk/v1/forecastedr/collections/harmonie_dini_sf/position"
	MetNoURL     = "https://api.met.no/weatherapi/locationforecast/2.0/compact"
	OpenMeteoURL = "https://api.open-meteo.com/v1/forecast"
)

// DefaultUserAgent identifies the service to MET Norway, which rejects
// anonymous clients.
const DefaultUserAgent = "SunnySips/1.0 (api)"

func newClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// getJSON issues a GET and decodes a JSON body into out.
func getJSON(ctx context.Context, h *http.Client, u string, header http.Header, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	resp, err := h.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s returned %d: %s", u, resp.StatusCode, string(b))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// --- MET Norway ---

// MetNo reads cloud_area_fraction from the locationforecast compact
// product.
type MetNo struct {
	BaseURL   string
	UserAgent string
	h         *http.Client
}

// NewMetNo returns a MET Norway provider.
func NewMetNo(timeout time.Duration, userAgent string) *MetNo {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &MetNo{BaseURL: MetNoURL, UserAgent: userAgent, h: newClient(timeout)}
}

func (m *MetNo) Name() string { return NameMetNo }

type metNoPayload struct {
	Properties struct {
		Timeseries []struct {
			Time string `json:"time"`
			Data struct {
				Instant struct {
					Details struct {
						CloudAreaFraction *float64 `json:"cloud_area_fraction"`
					} `json:"details"`
				} `json:"instant"`
			} `json:"data"`
		} `json:"timeseries"`
	} `json:"properties"`
}

func (m *MetNo) Fetch(ctx context.Context, q Query) ([]Sample, error) {
	v := url.Values{}
	v.Set("lat", strconv.FormatFloat(q.Lat, 'f', 6, 64))
	v.Set("lon", strconv.FormatFloat(q.Lon, 'f', 6, 64))
	header := http.Header{}
	header.Set("User-Agent", m.UserAgent)

	var p metNoPayload
	if err := getJSON(ctx, m.h, m.BaseURL+"?"+v.Encode(), header, &p); err != nil {
		return nil, fmt.Errorf("met_no: %w", err)
	}
	var out []Sample
	for _, ts := range p.Properties.Timeseries {
		t, err := parseTime(ts.Time)
		cloud := ts.Data.Instant.Details.CloudAreaFraction
		if err != nil || cloud == nil {
			continue
		}
		out = append(out, Sample{Time: t, Cloud: *cloud})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("met_no: payload did not include cloud_area_fraction values: %w", ErrNoSamples)
	}
	return out, nil
}

// --- DMI ---

// DMI reads cloud_cover from the DMI forecast EDR position query.
type DMI struct {
	BaseURL string
	APIKey  string
	h       *http.Client
}

// NewDMI returns a DMI provider.
func NewDMI(timeout time.Duration, apiKey string) *DMI {
	return &DMI{BaseURL: DMIURL, APIKey: apiKey, h: newClient(timeout)}
}

func (d *DMI) Name() string { return NameDMI }

// EDR coverage JSON, or a GeoJSON feature list on some collections.
type dmiPayload struct {
	Domain struct {
		Axes struct {
			T struct {
				Values []string `json:"values"`
			} `json:"t"`
		} `json:"axes"`
	} `json:"domain"`
	Ranges struct {
		CloudCover struct {
			Values []*float64 `json:"values"`
		} `json:"cloud_cover"`
	} `json:"ranges"`
	Features []struct {
		Properties struct {
			Datetime   string                     `json:"datetime"`
			Time       string                     `json:"time"`
			Parameters map[string]json.RawMessage `json:"parameters"`
		} `json:"properties"`
	} `json:"features"`
}

func (d *DMI) Fetch(ctx context.Context, q Query) ([]Sample, error) {
	v := url.Values{}
	v.Set("coords", fmt.Sprintf("POINT(%s %s)",
		strconv.FormatFloat(q.Lon, 'f', -1, 64), strconv.FormatFloat(q.Lat, 'f', -1, 64)))
	v.Set("datetime", q.Start.UTC().Format(time.RFC3339)+"/"+q.End.UTC().Format(time.RFC3339))
	v.Set("parameter-name", "cloud_cover")
	header := http.Header{}
	if d.APIKey != "" {
		header.Set("X-Gravitee-Api-Key", d.APIKey)
	}

	var p dmiPayload
	if err := getJSON(ctx, d.h, d.BaseURL+"?"+v.Encode(), header, &p); err != nil {
		return nil, fmt.Errorf("dmi: %w", err)
	}

	var out []Sample
	times := p.Domain.Axes.T.Values
	for i, raw := range p.Ranges.CloudCover.Values {
		if i >= len(times) || raw == nil {
			continue
		}
		if t, err := parseTime(times[i]); err == nil {
			out = append(out, Sample{Time: t, Cloud: *raw})
		}
	}
	if len(out) == 0 {
		for _, f := range p.Features {
			ts := f.Properties.Datetime
			if ts == "" {
				ts = f.Properties.Time
			}
			t, err := parseTime(ts)
			if err != nil {
				continue
			}
			if cloud, ok := dmiParameter(f.Properties.Parameters); ok {
				out = append(out, Sample{Time: t, Cloud: cloud})
			}
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("dmi: payload did not include cloud cover timeseries: %w", ErrNoSamples)
	}
	return out, nil
}

// dmiParameter reads cloud_cover or cloud_area_fraction given either as a
// bare number or as {"value": n}.
func dmiParameter(params map[string]json.RawMessage) (float64, bool) {
	for _, key := range []string{"cloud_cover", "cloud_area_fraction"} {
		raw, ok := params[key]
		if !ok {
			continue
		}
		var n float64
		if err := json.Unmarshal(raw, &n); err == nil {
			return n, true
		}
		var wrapped struct {
			Value *float64 `json:"value"`
		}
		if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Value != nil {
			return *wrapped.Value, true
		}
		return 0, false
	}
	return 0, false
}

// --- Open-Meteo ---

// OpenMeteo reads the hourly cloudcover forecast. Missing hourly values
// count as DefaultCloud.
type OpenMeteo struct {
	BaseURL string
	h       *http.Client
}

// NewOpenMeteo returns an Open-Meteo provider.
func NewOpenMeteo(timeout time.Duration) *OpenMeteo {
	return &OpenMeteo{BaseURL: OpenMeteoURL, h: newClient(timeout)}
}

func (o *OpenMeteo) Name() string { return NameOpenMeteo }

type openMeteoPayload struct {
	Hourly struct {
		Time       []string   `json:"time"`
		CloudCover []*float64 `json:"cloudcover"`
	} `json:"hourly"`
}

func (o *OpenMeteo) Fetch(ctx context.Context, q Query) ([]Sample, error) {
	v := url.Values{}
	v.Set("latitude", strconv.FormatFloat(q.Lat, 'f', -1, 64))
	v.Set("longitude", strconv.FormatFloat(q.Lon, 'f', -1, 64))
	v.Set("hourly", "cloudcover")
	v.Set("timezone", "UTC")
	v.Set("start_date", q.Start.UTC().Format(time.DateOnly))
	v.Set("end_date", q.End.UTC().Format(time.DateOnly))

	var p openMeteoPayload
	if err := getJSON(ctx, o.h, o.BaseURL+"?"+v.Encode(), nil, &p); err != nil {
		return nil, fmt.Errorf("open_meteo: %w", err)
	}
	var out []Sample
	for i, raw := range p.Hourly.Time {
		t, err := time.ParseInLocation("2006-01-02T15:04", raw, time.UTC)
		if err != nil {
			continue
		}
		cloud := DefaultCloud
		if i < len(p.Hourly.CloudCover) && p.Hourly.CloudCover[i] != nil {
			cloud = *p.Hourly.CloudCover[i]
		}
		out = append(out, Sample{Time: t, Cloud: cloud})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("open_meteo: payload did not include hourly cloudcover: %w", ErrNoSamples)
	}
	return out, nil
}

// parseTime accepts RFC 3339 with or without a zone. Zoneless values are
// read as UTC.
func parseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty time")
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02T15:04"} {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable time %q", raw)
}

// Registry returns every built-in provider keyed by name.
func Registry(timeout time.Duration, userAgent, dmiKey string) map[string]Provider {
	return map[string]Provider{
		NameDMI:       NewDMI(timeout, dmiKey),
		NameMetNo:     NewMetNo(timeout, userAgent),
		NameOpenMeteo: NewOpenMeteo(timeout),
	}
}
