// Package offers evaluates promotional-offer eligibility for app clients.
package offers

import (
	"fmt"
	"os"
	"time"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"
)

// Entitlement is a client's subscription tier.
type Entitlement string

const (
	EntitlementFree       Entitlement = "free"
	EntitlementEnthusiast Entitlement = "enthusiast"
)

// IsValid reports whether e is a known entitlement tier.
func (e Entitlement) IsValid() bool {
	return e == EntitlementFree || e == EntitlementEnthusiast
}

// Offer is a promotional offer. Offers are immutable static configuration;
// they are evaluated per request, never mutated.
type Offer struct {
	ID         string        `yaml:"id" json:"id"`
	PaywallID  string        `yaml:"paywallId" json:"paywallId"`
	ValidFrom  time.Time     `yaml:"validFrom" json:"validFrom"`
	ValidUntil time.Time     `yaml:"validUntil" json:"validUntil"`
	VisibleFor []Entitlement `yaml:"visibleFor" json:"visibleFor"`
	MinVersion string        `yaml:"minVersion" json:"minVersion"`
}

// Client describes the requesting app client for eligibility checks.
type Client struct {
	Entitlement Entitlement
	AppVersion  string
}

// IsEligible reports whether the client is eligible for the offer at the
// given time. Three gates must all pass: active period (inclusive on both
// ends), entitlement membership, and minimum app version. An invalid
// version string on either side is an error, not a false.
func IsEligible(offer Offer, client Client, now time.Time) (bool, error) {
	if now.Before(offer.ValidFrom) || now.After(offer.ValidUntil) {
		return false, nil
	}

	entitled := false
	for _, e := range offer.VisibleFor {
		if e == client.Entitlement {
			entitled = true
			break
		}
	}
	if !entitled {
		return false, nil
	}

	clientVersion, err := semver.NewVersion(client.AppVersion)
	if err != nil {
		return false, fmt.Errorf("invalid version format %q: %w", client.AppVersion, err)
	}
	minVersion, err := semver.NewVersion(offer.MinVersion)
	if err != nil {
		return false, fmt.Errorf("invalid version format %q: %w", offer.MinVersion, err)
	}

	return clientVersion.Compare(minVersion) >= 0, nil
}

// Eligible filters the offers down to those the client is eligible for.
func Eligible(available []Offer, client Client, now time.Time) ([]Offer, error) {
	eligible := make([]Offer, 0, len(available))
	for _, offer := range available {
		ok, err := IsEligible(offer, client, now)
		if err != nil {
			return nil, err
		}
		if ok {
			eligible = append(eligible, offer)
		}
	}
	return eligible, nil
}

// LoadFromFile reads the available offers from a YAML file. A missing file
// yields an empty offer list; running without offers is the normal state
// between campaigns.
func LoadFromFile(path string) ([]Offer, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read offers file: %w", err)
	}

	var doc struct {
		Offers []Offer `yaml:"offers"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse offers file: %w", err)
	}
	return doc.Offers, nil
}
