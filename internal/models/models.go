// Package models holds the wire types of the URL shortener API exercised by
// the load profiles, and the fixed request parameters the profiles send.
package models

const (
	// CreatePath is the endpoint that shortens a URL.
	CreatePath = "/create"

	// ShortPathPrefix prefixes every short URL lookup.
	ShortPathPrefix = "/short/"

	// ScenarioTargetURL is the URL shortened by the realistic scenario. Every
	// lookup of a short URL created by it must resolve back to this value.
	ScenarioTargetURL = "https://kubernetes.io/docs/concepts/overview/components/"

	// ScenarioUserID is the user the realistic scenario creates short URLs for.
	ScenarioUserID = "1c8be2ab-694d-40a1-acda-6d2ff09e8b76"

	// WriteTargetURL and WriteUserID are sent by the write-only profiles.
	WriteTargetURL = "https://www.google.com"
	WriteUserID    = "cb9f7d80-691c-4b33-88c6-b1c99dac8cbc"

	// FixedShortURL is the single short URL hit by the fixed endpoint profile.
	FixedShortURL = "XPwhgzM7"

	// MixedShortURL is the read endpoint of the mixed read/write profile.
	MixedShortURL = "CCaICRin"

	// MissingShortURL never exists on the service and must answer 404.
	MissingShortURL = "CCaICRddd"
)

// CreateResponse is the body answered by POST /create.
type CreateResponse struct {
	ShortURL string `json:"shortUrl"`
}

// AccessResponse is the body answered by GET /short/{shortUrl}.
type AccessResponse struct {
	OriginalURL string `json:"originalUrl"`
}

// ShortPath returns the lookup path of a short URL identifier.
func ShortPath(shortURL string) string {
	return ShortPathPrefix + shortURL
}
