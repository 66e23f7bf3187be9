package stats

import (
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
)

// ActiveUsers tracks user ids seen within a sliding window
type ActiveUsers struct {
	cache *cache.Cache
}

// NewActiveUsers creates a tracker that forgets a user after window without activity
func NewActiveUsers(window time.Duration) *ActiveUsers {
	cleanup := window / 4
	if cleanup < time.Minute {
		cleanup = time.Minute
	}
	return &ActiveUsers{
		cache: cache.New(window, cleanup),
	}
}

// Touch marks the user as active now
func (a *ActiveUsers) Touch(userID int64) {
	a.cache.SetDefault(strconv.FormatInt(userID, 10), struct{}{})
}

// Count returns the number of users active within the window
func (a *ActiveUsers) Count() int {
	// Items skips entries that expired but were not cleaned up yet
	return len(a.cache.Items())
}
