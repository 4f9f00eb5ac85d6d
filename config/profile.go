package config

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PriceFormat controls how the fare service renders prices.
type PriceFormat struct {
	DecimalSeparator  string `yaml:"decimal_separator" json:"decimalSeparator"`
	ThousandSeparator string `yaml:"thousand_separator" json:"thousandSeparator"`
	DecimalPlaces     int    `yaml:"decimal_places" json:"decimalPlaces"`
}

// RequestProfile holds the fixed parts of a fare aggregation request.
// Route, dates, currency and journey type are filled in per call.
type RequestProfile struct {
	PriceFormat   PriceFormat `yaml:"price_format"`
	DatePattern   string      `yaml:"date_pattern"`
	LanguageCode  string      `yaml:"language_code"`
	FaresPerRoute int         `yaml:"fares_per_route"`
	RoutesLimit   int         `yaml:"routes_limit"`
	FaresLimit    int         `yaml:"fares_limit"`
	Page          int         `yaml:"page"`
	OutputFields  []string    `yaml:"output_fields"`
}

// DefaultRequestProfile is what the QA run sends when no profile file is given.
func DefaultRequestProfile() *RequestProfile {
	return &RequestProfile{
		PriceFormat: PriceFormat{
			DecimalSeparator:  ".",
			ThousandSeparator: ",",
			DecimalPlaces:     0,
		},
		DatePattern:   "MM/dd/yyyy",
		LanguageCode:  "en",
		FaresPerRoute: 30,
		RoutesLimit:   10,
		FaresLimit:    7,
		Page:          1,
		OutputFields: []string{
			"returnDate",
			"usdTotalPrice",
			"popularity",
			"originCity",
			"destinationCity",
			"destinationAirportImage",
			"destinationCityImage",
			"destinationStateImage",
			"destinationCountryImage",
			"destinationRegionImage",
			"farenetTravelClass",
			"travelClass",
			"flightDeltaDays",
			"siteEdition",
		},
	}
}

// LoadRequestProfile overlays the YAML file at path on the defaults.
// An empty path returns the defaults.
func LoadRequestProfile(path string) (*RequestProfile, error) {
	profile := DefaultRequestProfile()
	if path == "" {
		return profile, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read profile %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, profile); err != nil {
		return nil, fmt.Errorf("config: parse profile %s: %w", path, err)
	}
	if profile.PriceFormat.DecimalPlaces != 0 {
		return nil, fmt.Errorf("config: profile %s: decimal_places must be 0, prices are compared in whole units", path)
	}
	return profile, nil
}

// Fingerprint identifies the profile contents, so quotes cached under one
// profile are not served for another.
func (p *RequestProfile) Fingerprint() string {
	data, _ := json.Marshal(p)
	return fmt.Sprintf("%x", sha256.Sum256(data))[:16]
}
