package meteoblue

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// DefaultBaseURL is the production meteoblue API origin.
const DefaultBaseURL = "https://my.meteoblue.com"

// Credentials holds the partner API credentials for one request. The shared
// secret is optional: outside production it may be absent, in which case
// URLs are returned unsigned.
type Credentials struct {
	APIKey       string
	SharedSecret string
	MapsAPIKey   string
}

// Validate checks that the required keys are present.
func (c Credentials) Validate() error {
	if c.APIKey == "" || c.MapsAPIKey == "" {
		return fmt.Errorf("missing meteoblue API key or meteoblue Maps API key")
	}
	return nil
}

// Location identifies a forecast location.
type Location struct {
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	AboveSeaLevel float64 `json:"aboveSeaLevel"`
	Timezone      string  `json:"timezone" validate:"required"`
}

// Units selects the measurement units for a data-package request.
type Units struct {
	Temperature         string `json:"temperature"`
	WindSpeed           string `json:"windSpeed"`
	PrecipitationAmount string `json:"precipitationAmount"`
	WindDirection       string `json:"windDirection"`
}

// DataPackagesPayload is the validated payload for a v1 data-packages
// request.
type DataPackagesPayload struct {
	Packages []string `json:"packages" validate:"required,min=1"`
	Location Location `json:"location"`
	Units    Units    `json:"units"`
}

// DataPackagesV13Payload extends the v1 payload with an optional
// forecast-day override.
type DataPackagesV13Payload struct {
	DataPackagesPayload
	ForecastDays *int `json:"forecastDays,omitempty" validate:"omitempty,min=0"`
}

// WarningsForLocationPayload requests the weather warnings at a location.
// The coordinates are pointers so a missing field fails validation while
// 0 stays a legal coordinate.
type WarningsForLocationPayload struct {
	Latitude  *float64 `json:"latitude" validate:"required"`
	Longitude *float64 `json:"longitude" validate:"required"`
}

// WarningInfoPayload requests the details of a single weather warning.
type WarningInfoPayload struct {
	ID string `json:"id" validate:"required"`
}

// Builder constructs signed or unsigned meteoblue API URLs from validated
// payloads.
type Builder struct {
	BaseURL     string
	Credentials Credentials
}

// NewBuilder creates a builder against the production API origin.
func NewBuilder(creds Credentials) *Builder {
	return &Builder{BaseURL: DefaultBaseURL, Credentials: creds}
}

// param is one query parameter. Parameters keep their insertion order in
// the final URL; signing depends on the serialized byte sequence.
type param struct {
	key   string
	value string
}

// DataPackagesURLV1 builds the v1 data-packages URL.
func (b *Builder) DataPackagesURLV1(p DataPackagesPayload) (string, error) {
	return b.buildURL("packages/"+strings.Join(p.Packages, "_"), []param{
		{"lat", formatFloat(p.Location.Latitude)},
		{"lon", formatFloat(p.Location.Longitude)},
		{"asl", formatFloat(p.Location.AboveSeaLevel)},
		{"tz", p.Location.Timezone},
		{"temperature", p.Units.Temperature},
		{"windspeed", p.Units.WindSpeed},
		{"precipitationamount", p.Units.PrecipitationAmount},
		{"winddirection", p.Units.WindDirection},
		{"history_days", "0"},
		{"forecast_days", "7"},
	})
}

// DataPackagesURLV13 builds the v1.3 data-packages URL. The forecast-day
// override defaults to 7 when unset.
func (b *Builder) DataPackagesURLV13(p DataPackagesV13Payload) (string, error) {
	forecastDays := "7"
	if p.ForecastDays != nil {
		forecastDays = strconv.Itoa(*p.ForecastDays)
	}

	return b.buildURL("packagesV2/"+strings.Join(p.Packages, "_"), []param{
		{"lat", formatFloat(p.Location.Latitude)},
		{"lon", formatFloat(p.Location.Longitude)},
		{"asl", formatFloat(p.Location.AboveSeaLevel)},
		{"tz", p.Location.Timezone},
		{"temperature", p.Units.Temperature},
		{"windspeed", p.Units.WindSpeed},
		{"precipitationamount", p.Units.PrecipitationAmount},
		{"winddirection", p.Units.WindDirection},
		{"history_days", "0"},
		{"forecast_days", forecastDays},
	})
}

// WarningsForLocationURL builds the warnings-list URL for a location.
func (b *Builder) WarningsForLocationURL(p WarningsForLocationPayload) (string, error) {
	return b.buildURL("warnings/list", []param{
		{"lat", formatFloat(*p.Latitude)},
		{"lon", formatFloat(*p.Longitude)},
	})
}

// WarningInfoURL builds the warning-detail URL.
func (b *Builder) WarningInfoURL(p WarningInfoPayload) (string, error) {
	return b.buildURL("warnings/select", []param{
		{"id", p.ID},
	})
}

// buildURL assembles the URL, appends the API key, and signs the result
// when a shared secret is configured.
func (b *Builder) buildURL(path string, params []param) (string, error) {
	u, err := url.Parse(b.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q: %w", b.BaseURL, err)
	}
	u.Path = "/" + path

	// The API key is always the last parameter before the signature.
	params = append(params, param{"apikey", b.Credentials.APIKey})
	u.RawQuery = encodeOrdered(params)

	if b.Credentials.SharedSecret != "" {
		return SignURL(u, b.Credentials.SharedSecret, DefaultExpiry)
	}
	return u.String(), nil
}

// encodeOrdered serializes parameters preserving insertion order;
// url.Values would sort them, changing the signed byte sequence.
func encodeOrdered(params []param) string {
	var sb strings.Builder
	for i, p := range params {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(p.key))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(p.value))
	}
	return sb.String()
}

// formatFloat serializes a number with plain decimal conversion, no locale
// formatting and no fixed precision.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
