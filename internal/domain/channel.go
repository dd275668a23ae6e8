package domain

// Channel is a YouTube channel connected to the user's organization.
// ID identifies it in the UI; ChannelID is the YouTube id used by the
// stats and video endpoints.
type Channel struct {
	ID              string `json:"id"`
	ChannelID       string `json:"channel_id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	CustomURL       string `json:"custom_url"`
	ThumbnailURL    string `json:"thumbnail_url"`
	ViewCount       int64  `json:"view_count"`
	SubscriberCount int64  `json:"subscriber_count"`
	VideoCount      int64  `json:"video_count"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

// GetDisplayName returns the title, falling back to the custom URL.
func (c *Channel) GetDisplayName() string {
	if c == nil {
		return ""
	}
	if c.Title != "" {
		return c.Title
	}
	return c.CustomURL
}

// HasThumbnail returns true if the channel has a thumbnail URL
func (c *Channel) HasThumbnail() bool {
	return c != nil && c.ThumbnailURL != ""
}

// Initial is the placeholder shown when no thumbnail is available.
func (c *Channel) Initial() string {
	name := c.GetDisplayName()
	if name == "" {
		return ""
	}
	return string([]rune(name)[:1])
}

// FindChannel returns the channel with the given internal id.
func FindChannel(channels []Channel, id string) (*Channel, bool) {
	for i := range channels {
		if channels[i].ID == id {
			return &channels[i], true
		}
	}
	return nil, false
}
