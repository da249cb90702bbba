package genesys

import "net/url"

// AuthorizeURL builds the OAuth implicit-grant authorization URL for region.
// The redirect capture and token storage happen outside this module; the
// resulting access token comes back in via NewClient.
func AuthorizeURL(region, clientID, redirectURI string) string {
	if region == "" {
		region = DefaultRegion
	}

	return (&url.URL{
		Scheme: "https",
		Host:   "login." + region,
		Path:   "/oauth/authorize",
		RawQuery: url.Values{
			"client_id":     {clientID},
			"response_type": {"token"},
			"redirect_uri":  {redirectURI},
		}.Encode(),
	}).String()
}
