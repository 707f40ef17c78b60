package lookup

import "strings"

// StripStoreSuffix removes a trailing StoreTitleSuffix from title. The result
// never ends with the suffix, so applying it again has no effect.
func StripStoreSuffix(title string) string {
	for strings.HasSuffix(title, StoreTitleSuffix) {
		title = strings.TrimSuffix(title, StoreTitleSuffix)
	}
	return title
}

// Extract returns the normalized metadata of the first item in env, or
// ErrNotFound when env holds no items.
func Extract(id PackageID, env SearchEnvelope) (Metatags, error) {
	if len(env.Items) == 0 {
		return Metatags{}, ErrNotFound
	}
	tags := env.Items[0].PageMap.Metatags
	if len(tags) == 0 {
		return Metatags{}, &MalformedResponseError{ID: id, Reason: "result has no metatags"}
	}
	return FromTags(id, tags[0])
}

// FromTags maps a raw meta-tag set onto Metatags. Every key in RequiredTags must
// be present; empty values are kept as they are.
func FromTags(id PackageID, tags map[string]string) (Metatags, error) {
	for _, key := range RequiredTags {
		if _, ok := tags[key]; !ok {
			return Metatags{}, &MalformedResponseError{ID: id, Reason: "missing field " + key}
		}
	}
	return Metatags{
		ID:          tags[TagStoreID],
		Name:        StripStoreSuffix(tags[TagTitle]),
		Logo:        tags[TagImage],
		URL:         tags[TagURL],
		Description: tags[TagDescription],
	}, nil
}
