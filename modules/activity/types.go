package activity

// RecentRequest asks for one user's feed.
type RecentRequest struct {
	UserID string `json:"user_id"`
}

// RecentResponse carries the feed, oldest first.
type RecentResponse struct {
	Entries []Entry `json:"entries"`
}
