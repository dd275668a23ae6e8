package store

import "strings"

// DefaultSortBy is used for any key the table does not recognize.
const DefaultSortBy = "most_views"

// sortVocabulary maps UI sort keys to the backend's sort_by values.
var sortVocabulary = map[string]string{
	"views":         "most_views",
	"most_views":    "most_views",
	"likes":         "most_likes",
	"most_likes":    "most_likes",
	"comments":      "most_comments",
	"most_comments": "most_comments",
	"newest":        "newest",
	"oldest":        "oldest",
}

// MapSortKey translates a UI sort key into the backend vocabulary.
func MapSortKey(key string) string {
	if mapped, ok := sortVocabulary[strings.ToLower(strings.TrimSpace(key))]; ok {
		return mapped
	}
	return DefaultSortBy
}

// SortOption is a selectable sort for the video listing.
type SortOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// SortOptions lists the UI sort keys in display order.
var SortOptions = []SortOption{
	{Value: "views", Label: "Most views"},
	{Value: "likes", Label: "Most likes"},
	{Value: "comments", Label: "Most comments"},
	{Value: "newest", Label: "Newest first"},
	{Value: "oldest", Label: "Oldest first"},
}
