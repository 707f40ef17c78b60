// Package lookup defines the app metadata types and the concurrent lookup pipeline.
package lookup

// MaxBatchSize caps the number of package IDs accepted by a single lookup.
const MaxBatchSize = 10

// StoreTitleSuffix is appended by the store to every app page title.
const StoreTitleSuffix = " - Apps on Google Play"

// Meta-tag keys carried by store pages and returned by the search index.
const (
	TagStoreID     = "appstore:store_id"
	TagTitle       = "og:title"
	TagImage       = "og:image"
	TagURL         = "og:url"
	TagDescription = "twitter:description"
)

// RequiredTags lists every meta-tag key an upstream result must carry.
var RequiredTags = []string{TagStoreID, TagTitle, TagImage, TagURL, TagDescription}

// PackageID is an Android application package identifier such as
// "com.google.android.apps.maps". It is used verbatim as the search term.
type PackageID = string

// Metatags is the public metadata record returned for a package.
type Metatags struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Logo        string `json:"logo"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

// SearchEnvelope is the decoded upstream search response.
type SearchEnvelope struct {
	Items []SearchItem `json:"items"`
}

// SearchItem is a single search hit.
type SearchItem struct {
	PageMap PageMap `json:"pagemap"`
}

// PageMap holds the structured annotations extracted from a result page.
type PageMap struct {
	Metatags []map[string]string `json:"metatags"`
}

// Result is a single completed lookup emitted by Service.Stream.
type Result struct {
	ID       PackageID
	Metatags Metatags
	Err      error
}
