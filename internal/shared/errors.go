package shared

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Session errors
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrSessionExpired   = fmt.Errorf("session expired")
	ErrAuthFailed       = fmt.Errorf("authentication failed")

	// Generation errors. Classification, metadata parse and cover art failures
	// are recovered inside the pipeline and only ever logged.
	ErrValidation        = fmt.Errorf("validation failed")
	ErrClassification    = fmt.Errorf("intent classification failed")
	ErrMetadataParse     = fmt.Errorf("malformed playlist metadata")
	ErrCoverArt          = fmt.Errorf("cover art generation failed")
	ErrGenerationTimeout = fmt.Errorf("generation timed out")
	ErrNoTracksFound     = fmt.Errorf("no tracks found")

	// Vendor errors
	ErrVendorAuth         = fmt.Errorf("vendor session invalid")
	ErrVendorPermission   = fmt.Errorf("vendor permission denied")
	ErrVendorNotFound     = fmt.Errorf("vendor resource not found")
	ErrVendorRateLimit    = fmt.Errorf("vendor rate limit reached")
	ErrVendorTransient    = fmt.Errorf("vendor temporarily unavailable")
	ErrVendorResponse     = fmt.Errorf("unexpected vendor response")
	ErrNetwork            = fmt.Errorf("network failure")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// Storage errors
	ErrPersistence      = fmt.Errorf("persistence failure")
	ErrPlaylistNotFound = fmt.Errorf("playlist not found")

	// Input errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// VendorError is a normalized failure from an external HTTP API.
//
// Kind is one of the vendor sentinels so callers can match with [errors.Is].
type VendorError struct {
	Vendor  string
	Status  int
	Message string
	Kind    error
}

// NewVendorError classifies an HTTP status into the vendor error taxonomy.
func NewVendorError(vendor string, status int, message string) *VendorError {
	return &VendorError{Vendor: vendor, Status: status, Message: message, Kind: KindForStatus(status, message)}
}

func (e *VendorError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %v (status %d)", e.Vendor, e.Kind, e.Status)
	}
	return fmt.Sprintf("%s: %v (status %d): %s", e.Vendor, e.Kind, e.Status, e.Message)
}

func (e *VendorError) Unwrap() error { return e.Kind }

// KindForStatus maps an HTTP status (and, for 400/403, the vendor message) to a sentinel.
func KindForStatus(status int, message string) error {
	lower := strings.ToLower(message)
	switch {
	case status == 401:
		return ErrVendorAuth
	case status == 403, strings.Contains(lower, "scope"), strings.Contains(lower, "permission"):
		return ErrVendorPermission
	case status == 404:
		return ErrVendorNotFound
	case status == 429:
		return ErrVendorRateLimit
	case status == 502, status == 503, status == 504:
		return ErrVendorTransient
	default:
		return ErrVendorResponse
	}
}

// ValidationError aggregates every rule violation found for one input.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %s", ErrValidation, strings.Join(e.Errors, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// IsTransient reports whether err is worth retrying at the transport layer.
func IsTransient(err error) bool {
	if errors.Is(err, ErrVendorTransient) || errors.Is(err, ErrNetwork) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

var userMessages = []struct {
	kind    error
	message string
}{
	{ErrVendorAuth, "Your Spotify session has expired. Please reconnect your account."},
	{ErrSessionExpired, "Your Spotify session has expired. Please reconnect your account."},
	{ErrNotAuthenticated, "Please connect your Spotify account first."},
	{ErrVendorPermission, "Spotify denied access. Please reconnect and grant the required permissions."},
	{ErrVendorNotFound, "The requested Spotify resource could not be found."},
	{ErrVendorRateLimit, "Too many requests to Spotify. Please wait a moment and try again."},
	{ErrVendorTransient, "Spotify is having trouble right now. Please try again shortly."},
	{ErrGenerationTimeout, "Playlist generation took too long. Try again with fewer songs."},
	{ErrNoTracksFound, "We couldn't find any tracks for this vibe. Try a different description."},
	{ErrPersistence, "We couldn't reach your library. Please try again."},
	{ErrPlaylistNotFound, "That playlist no longer exists."},
	{ErrServiceUnavailable, "Spotify service is not available. Please check your connection and authentication."},
	{ErrNetwork, "Network error. Please check your connection and try again."},
}

// UserMessage translates any error into a message safe to show to a user.
//
// Raw vendor payloads never leak through; unknown errors get a generic message.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var verr *ValidationError
	if errors.As(err, &verr) {
		return strings.Join(verr.Errors, "\n")
	}

	for _, m := range userMessages {
		if errors.Is(err, m.kind) {
			return m.message
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return "Request timeout. Please try again."
		}
		return "Network error. Please check your connection and try again."
	}

	return "Something went wrong. Please try again."
}
