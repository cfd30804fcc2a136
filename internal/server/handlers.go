package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/ptts/sonuby-api/internal/errors"
	"github.com/ptts/sonuby-api/internal/feedback"
	"github.com/ptts/sonuby-api/internal/httputil"
	"github.com/ptts/sonuby-api/internal/meteoblue"
	"github.com/ptts/sonuby-api/internal/offers"
)

const invalidVersionMessage = "Invalid version format. Must adhere to https://semver.org/"

var payloadValidator = validator.New()

// =============================================================================
// Index
// =============================================================================

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) error {
	httputil.WriteJSON(w, map[string]interface{}{
		"message":           "Sonuby Backend",
		"environment":       s.cfg.Environment,
		"currentAppVersion": s.cfg.CurrentAppVersion,
	})
	return nil
}

// =============================================================================
// Sign Endpoints
// =============================================================================

// apiType discriminates sign request payloads.
type apiType string

const (
	apiTypeDataPackages        apiType = "meteoblue_data_packages"
	apiTypeWarningsForLocation apiType = "meteoblue_weather_warnings_for_location"
	apiTypeWarningsInfo        apiType = "meteoblue_weather_warnings_info"
)

type signResponse struct {
	Type apiType `json:"type"`
	URL  string  `json:"url"`
}

// meteoblueBuilder assembles the URL builder from the per-request
// credential view of the configuration.
func (s *Server) meteoblueBuilder() (*meteoblue.Builder, error) {
	creds := meteoblue.Credentials{
		APIKey:       s.cfg.MeteoblueAPIKey,
		SharedSecret: s.cfg.MeteoblueSharedSecret,
		MapsAPIKey:   s.cfg.MeteoblueMapsAPIKey,
	}
	if err := creds.Validate(); err != nil {
		return nil, errors.Internal("", err)
	}

	b := meteoblue.NewBuilder(creds)
	if s.meteoblueBaseURL != "" {
		b.BaseURL = s.meteoblueBaseURL
	}
	return b, nil
}

func (s *Server) handleSignV1(w http.ResponseWriter, r *http.Request) error {
	body, probe, err := readSignBody(r)
	if err != nil {
		return err
	}
	builder, err := s.meteoblueBuilder()
	if err != nil {
		return err
	}

	switch probe {
	case apiTypeDataPackages:
		var p meteoblue.DataPackagesPayload
		if err := decodePayload(body, &p); err != nil {
			return err
		}
		url, err := builder.DataPackagesURLV1(p)
		return writeSignedURL(w, probe, url, err)
	case apiTypeWarningsForLocation:
		var p meteoblue.WarningsForLocationPayload
		if err := decodePayload(body, &p); err != nil {
			return err
		}
		url, err := builder.WarningsForLocationURL(p)
		return writeSignedURL(w, probe, url, err)
	case apiTypeWarningsInfo:
		var p meteoblue.WarningInfoPayload
		if err := decodePayload(body, &p); err != nil {
			return err
		}
		url, err := builder.WarningInfoURL(p)
		return writeSignedURL(w, probe, url, err)
	default:
		return errors.BadRequest("")
	}
}

func (s *Server) handleSignV13(w http.ResponseWriter, r *http.Request) error {
	body, probe, err := readSignBody(r)
	if err != nil {
		return err
	}
	builder, err := s.meteoblueBuilder()
	if err != nil {
		return err
	}

	switch probe {
	case apiTypeDataPackages:
		var p meteoblue.DataPackagesV13Payload
		if err := decodePayload(body, &p); err != nil {
			return err
		}
		url, err := builder.DataPackagesURLV13(p)
		return writeSignedURL(w, probe, url, err)
	case apiTypeWarningsForLocation:
		var p meteoblue.WarningsForLocationPayload
		if err := decodePayload(body, &p); err != nil {
			return err
		}
		url, err := builder.WarningsForLocationURL(p)
		return writeSignedURL(w, probe, url, err)
	case apiTypeWarningsInfo:
		var p meteoblue.WarningInfoPayload
		if err := decodePayload(body, &p); err != nil {
			return err
		}
		url, err := builder.WarningInfoURL(p)
		return writeSignedURL(w, probe, url, err)
	default:
		return errors.BadRequest("")
	}
}

// readSignBody reads the request body and extracts the type discriminant.
func readSignBody(r *http.Request) ([]byte, apiType, error) {
	body, err := httputil.ReadAllStrict(r.Body, 1<<20)
	if err != nil {
		return nil, "", errors.BadRequest("Invalid request body")
	}

	var probe struct {
		Type apiType `json:"type"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, "", errors.BadRequest("Invalid request body")
	}
	return body, probe.Type, nil
}

// decodePayload unmarshals and validates a typed sign payload.
func decodePayload(body []byte, target interface{}) error {
	if err := json.Unmarshal(body, target); err != nil {
		return errors.BadRequest("Invalid request body")
	}
	if err := payloadValidator.Struct(target); err != nil {
		return errors.BadRequest("Invalid request body")
	}
	return nil
}

func writeSignedURL(w http.ResponseWriter, t apiType, url string, err error) error {
	if err != nil {
		return errors.Internal("", err)
	}
	httputil.WriteJSON(w, signResponse{Type: t, URL: url})
	return nil
}

// =============================================================================
// Coupon Endpoints
// =============================================================================

// storefrontIDs maps coupon codes to storefront product identifiers for
// the v1 route.
var storefrontIDs = map[string]string{
	"XMAS": "coupon_50_pc",
}

func (s *Server) handleCouponV1(w http.ResponseWriter, r *http.Request) error {
	coupon := mux.Vars(r)["coupon"]

	storefrontID, ok := storefrontIDs[coupon]
	if !ok {
		return errors.BadRequest("Invalid coupon")
	}

	httputil.WriteJSON(w, map[string]string{"storefrontId": storefrontID})
	return nil
}

// couponAustn808 is the only code the v1.5 route currently recognizes; it
// maps to a Google Play subscription offer.
const couponAustn808 = "AUSTN808"

// productGroupIDs maps the client environment to the Play Store product
// group carrying the discounted subscription.
var productGroupIDs = map[string]string{
	"production":  "sonuby_enthusiast_v1",
	"staging":     "sonuby_staging_enthusiast_v1",
	"beta":        "sonuby_beta_enthusiast_v1",
	"development": "sonuby_dev_enthusiast_v1",
	"testing":     "sonuby_enthusiast_v1",
}

func (s *Server) handleCouponV15(w http.ResponseWriter, r *http.Request) error {
	coupon := mux.Vars(r)["coupon"]
	platform := r.URL.Query().Get("platform")
	clientEnv := r.URL.Query().Get("client_env")

	if platform != "ios" && platform != "android" {
		return errors.BadRequest("")
	}
	productGroupID, ok := productGroupIDs[clientEnv]
	if !ok {
		return errors.BadRequest("")
	}

	// Unrecognized codes are a structured result here, never an error:
	// the app shows its own "unknown code" state.
	if coupon == couponAustn808 && platform == "android" {
		const subscriptionOfferID = "enthusiast-monthly-austn808"
		httputil.WriteJSON(w, map[string]string{
			"type":                "google_play_subscription_offer",
			"productGroupId":      productGroupID,
			"productId":           productGroupID + ":monthly-autorenewing",
			"subscriptionOfferId": subscriptionOfferID,
			"code":                coupon,
		})
		return nil
	}

	httputil.WriteJSON(w, map[string]string{"type": "unknown_code", "code": coupon})
	return nil
}

// =============================================================================
// Feedback Endpoint
// =============================================================================

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) error {
	body, err := httputil.ReadAllStrict(r.Body, 1<<20)
	if err != nil {
		return errors.BadRequest("Invalid request body")
	}

	var fb feedback.Feedback
	if err := json.Unmarshal(body, &fb); err != nil {
		return errors.BadRequest("Invalid request body")
	}
	if err := fb.Validate(); err != nil {
		return errors.BadRequest(err.Error())
	}

	if err := s.notifier.Deliver(r.Context(), &fb); err != nil {
		return err
	}

	httputil.WriteJSON(w, map[string]string{"message": "Feedback received"})
	return nil
}

// =============================================================================
// Offers Endpoint
// =============================================================================

func (s *Server) handleOffers(w http.ResponseWriter, r *http.Request) error {
	entitlement := offers.Entitlement(r.URL.Query().Get("entitlement"))
	appVersion := r.URL.Query().Get("app_version")

	if !entitlement.IsValid() {
		return errors.BadRequest("")
	}
	if _, err := semver.NewVersion(appVersion); err != nil {
		return errors.BadRequest(invalidVersionMessage)
	}

	eligible, err := offers.Eligible(s.offers, offers.Client{
		Entitlement: entitlement,
		AppVersion:  appVersion,
	}, time.Now())
	if err != nil {
		return errors.Internal("", err)
	}

	httputil.WriteJSON(w, map[string]interface{}{"offers": eligible})
	return nil
}

// =============================================================================
// System Notifications Endpoint
// =============================================================================

func (s *Server) handleSystemNotifications(w http.ResponseWriter, r *http.Request) error {
	query := r.URL.Query()
	if query.Get("platform") == "" || query.Get("client_env") == "" {
		return errors.BadRequest("")
	}

	clientVersion, err := semver.NewVersion(query.Get("app_version"))
	if err != nil {
		return errors.BadRequest(invalidVersionMessage)
	}
	currentVersion, err := semver.NewVersion(s.cfg.CurrentAppVersion)
	if err != nil {
		return errors.Internal("", err)
	}

	isUpdateAvailable := currentVersion.LessThan(clientVersion)
	// Forced updates are not used yet.
	isUpdateRequired := false

	httputil.WriteJSON(w, map[string]interface{}{
		"update": map[string]interface{}{
			"current_app_version": clientVersion.Original(),
			"available":           isUpdateAvailable,
			"required":            isUpdateRequired,
			"show_app_store_link": s.cfg.Environment.IsProduction(),
		},
	})
	return nil
}

// =============================================================================
// Credentials Endpoint
// =============================================================================

func (s *Server) handleCredentials(w http.ResponseWriter, r *http.Request) error {
	switch mux.Vars(r)["id"] {
	case "weather-maps":
		httputil.WriteJSON(w, map[string]string{"mapsKey": s.cfg.MeteoblueMapsAPIKey})
		return nil
	case "marea-tides":
		httputil.WriteJSON(w, map[string]string{"mareaTidesKey": s.cfg.MareaTidesAPIKey})
		return nil
	default:
		return errors.BadRequest("")
	}
}

// =============================================================================
// In-App Events Endpoint
// =============================================================================

type inAppEvent struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// inAppEvents maps event IDs to their in-app event payloads. Campaigns are
// added here as needed; the map being empty is the normal state.
var inAppEvents = map[string]inAppEvent{}

func (s *Server) handleInAppEvents(w http.ResponseWriter, r *http.Request) error {
	platform := r.URL.Query().Get("platform")
	if platform != "ios" && platform != "android" {
		return errors.BadRequest("")
	}

	eventID := mux.Vars(r)["eventId"]
	if event, ok := inAppEvents[eventID]; ok {
		httputil.WriteJSON(w, event)
		return nil
	}

	httputil.WriteJSON(w, map[string]string{"type": "unknown"})
	return nil
}
