package thread

import (
	"context"
	"testing"
	"time"

	"livechat-backend/internal/cache"
	"livechat-backend/internal/model"
)

// A nil database client proves the cached row short-circuits the lookup.
func TestGetThreadServedFromCache(t *testing.T) {
	c := cache.New(time.Minute)
	want := model.ThreadItem{ThreadID: "thread-1", WebsiteID: "site-1", GuestID: "guest-1"}
	c.Set("thread:thread-1", "threads", want)

	repo := &DynamoRepository{cache: c}
	got, err := repo.GetThread(context.Background(), "thread-1")
	if err != nil {
		t.Fatalf("GetThread returned error: %v", err)
	}
	if got.ThreadID != want.ThreadID || got.WebsiteID != want.WebsiteID {
		t.Errorf("expected cached thread %+v, got %+v", want, got)
	}

	// The delete cascade evicts by key, so a fresh lookup would go back
	// to the table.
	c.Delete("thread:thread-1")
	if _, ok := c.Get("thread:thread-1"); ok {
		t.Error("thread entry should be gone after eviction")
	}
}

func TestGetWebsiteServedFromCache(t *testing.T) {
	c := cache.New(time.Minute)
	want := model.WebsiteItem{WebsiteID: "site-1", Name: "Acme Support", Enabled: true}
	c.Set("website:site-1", "websites", want)

	repo := &DynamoRepository{cache: c}
	got, err := repo.GetWebsite(context.Background(), "site-1")
	if err != nil {
		t.Fatalf("GetWebsite returned error: %v", err)
	}
	if got.WebsiteID != want.WebsiteID || got.Name != want.Name {
		t.Errorf("expected cached website %+v, got %+v", want, got)
	}
}
