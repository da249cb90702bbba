package genesys

// DefaultRegion is applied when no region is configured.
const DefaultRegion = "mypurecloud.com"

// Regions lists the public Genesys Cloud region domains. API calls go to
// api.<region>, the auth flow to login.<region>.
var Regions = []string{
	"mypurecloud.com",
	"mypurecloud.ie",
	"mypurecloud.de",
	"mypurecloud.jp",
	"mypurecloud.com.au",
	"usw2.pure.cloud",
	"use2.us-gov-pure.cloud",
	"cac1.pure.cloud",
	"euw2.pure.cloud",
	"aps1.pure.cloud",
	"apne2.pure.cloud",
	"sae1.pure.cloud",
	"mec1.pure.cloud",
}

// KnownRegion reports whether region is one of the published domains.
func KnownRegion(region string) bool {
	for _, r := range Regions {
		if r == region {
			return true
		}
	}
	return false
}
