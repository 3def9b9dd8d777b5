package detector

// Tracker categories.
const (
	CategoryAnalytics        = "analytics"
	CategoryAdvertising      = "advertising"
	CategorySocial           = "social"
	CategorySessionRecording = "session_recording"
	CategoryConsentPlatform  = "consent_platform"
	CategoryABTesting        = "ab_testing"
	CategoryTagManager       = "tag_manager"
	CategoryMarketing        = "marketing"
)

// Tracker is one known third-party tracking domain.
type Tracker struct {
	Domain   string
	Category string
}

// defaultTrackers is ordered; findings list matched domains in this order.
var defaultTrackers = []Tracker{
	// analytics
	{"google-analytics.com", CategoryAnalytics},
	{"analytics.google.com", CategoryAnalytics},
	{"scorecardresearch.com", CategoryAnalytics},
	{"quantserve.com", CategoryAnalytics},
	{"mixpanel.com", CategoryAnalytics},
	{"segment.com", CategoryAnalytics},
	{"segment.io", CategoryAnalytics},
	{"amplitude.com", CategoryAnalytics},
	{"heap.io", CategoryAnalytics},
	{"heapanalytics.com", CategoryAnalytics},
	{"chartbeat.com", CategoryAnalytics},
	{"newrelic.com", CategoryAnalytics},
	{"nr-data.net", CategoryAnalytics},
	{"matomo.cloud", CategoryAnalytics},
	{"statcounter.com", CategoryAnalytics},
	{"kissmetrics.com", CategoryAnalytics},
	{"plausible.io", CategoryAnalytics},
	{"parsely.com", CategoryAnalytics},

	// tag managers
	{"googletagmanager.com", CategoryTagManager},
	{"tealiumiq.com", CategoryTagManager},
	{"tiqcdn.com", CategoryTagManager},
	{"ensighten.com", CategoryTagManager},

	// advertising
	{"doubleclick.net", CategoryAdvertising},
	{"googlesyndication.com", CategoryAdvertising},
	{"googleadservices.com", CategoryAdvertising},
	{"adnxs.com", CategoryAdvertising},
	{"criteo.com", CategoryAdvertising},
	{"criteo.net", CategoryAdvertising},
	{"taboola.com", CategoryAdvertising},
	{"outbrain.com", CategoryAdvertising},
	{"amazon-adsystem.com", CategoryAdvertising},
	{"adsrvr.org", CategoryAdvertising},
	{"bat.bing.com", CategoryAdvertising},
	{"ads-twitter.com", CategoryAdvertising},
	{"rubiconproject.com", CategoryAdvertising},
	{"pubmatic.com", CategoryAdvertising},

	// social
	{"facebook.net", CategorySocial},
	{"platform.twitter.com", CategorySocial},
	{"snap.licdn.com", CategorySocial},
	{"ads.linkedin.com", CategorySocial},
	{"analytics.tiktok.com", CategorySocial},
	{"ct.pinterest.com", CategorySocial},
	{"sc-static.net", CategorySocial},

	// session recording
	{"hotjar.com", CategorySessionRecording},
	{"mouseflow.com", CategorySessionRecording},
	{"crazyegg.com", CategorySessionRecording},
	{"inspectlet.com", CategorySessionRecording},
	{"clarity.ms", CategorySessionRecording},
	{"fullstory.com", CategorySessionRecording},
	{"logrocket.com", CategorySessionRecording},
	{"smartlook.com", CategorySessionRecording},
	{"luckyorange.com", CategorySessionRecording},

	// consent platforms
	{"cookielaw.org", CategoryConsentPlatform},
	{"onetrust.com", CategoryConsentPlatform},
	{"cookiebot.com", CategoryConsentPlatform},
	{"usercentrics.eu", CategoryConsentPlatform},
	{"trustarc.com", CategoryConsentPlatform},
	{"quantcast.com", CategoryConsentPlatform},
	{"didomi.io", CategoryConsentPlatform},

	// A/B testing
	{"optimizely.com", CategoryABTesting},
	{"vwo.com", CategoryABTesting},
	{"abtasty.com", CategoryABTesting},

	// marketing automation
	{"hubspot.com", CategoryMarketing},
	{"hs-scripts.com", CategoryMarketing},
	{"hs-analytics.net", CategoryMarketing},
	{"marketo.net", CategoryMarketing},
	{"pardot.com", CategoryMarketing},
	{"intercom.io", CategoryMarketing},
	{"klaviyo.com", CategoryMarketing},
	{"mailchimp.com", CategoryMarketing},
	{"chimpstatic.com", CategoryMarketing},
}
