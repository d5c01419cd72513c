package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vadim/wedding-chat/internal/domain/chat/entity"
)

// DisplayInfo is how the other party of a conversation is shown
type DisplayInfo struct {
	Name   string
	Avatar string
}

// displayInfoOf reads the other party's name and avatar off a summary
func displayInfoOf(s entity.ConversationSummary) DisplayInfo {
	view := entity.ViewOf(s)
	return DisplayInfo{Name: view.OtherPartyName(), Avatar: view.OtherPartyAvatar()}
}

// DisplayCache maps conversation ids to display info. It only saves
// refetches and is never used to decide access.
type DisplayCache struct {
	mu      sync.RWMutex
	entries map[string]DisplayInfo
}

// NewDisplayCache creates an empty cache
func NewDisplayCache() *DisplayCache {
	return &DisplayCache{entries: make(map[string]DisplayInfo)}
}

// Get returns the cached info of a conversation
func (c *DisplayCache) Get(conversationID string) (DisplayInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	info, ok := c.entries[conversationID]
	return info, ok
}

// Put caches the info of one conversation
func (c *DisplayCache) Put(conversationID string, info DisplayInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[conversationID] = info
}

// Replace swaps the whole cache for one built from a conversation list
func (c *DisplayCache) Replace(summaries []entity.ConversationSummary) {
	entries := make(map[string]DisplayInfo, len(summaries))
	for _, s := range summaries {
		entries[s.ConversationID] = displayInfoOf(s)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = entries
}

// Len returns the number of cached conversations
func (c *DisplayCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// cacheRefresher rebuilds a DisplayCache from a full list fetch on a fixed interval
type cacheRefresher struct {
	cache    *DisplayCache
	reader   ChatReader
	userID   string
	interval time.Duration
	logger   *slog.Logger
	stopCh   chan struct{}
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	running  bool
	mu       sync.Mutex
}

func newCacheRefresher(cache *DisplayCache, reader ChatReader, userID string, interval time.Duration, logger *slog.Logger) *cacheRefresher {
	if interval <= 0 {
		interval = time.Minute
	}
	return &cacheRefresher{
		cache:    cache,
		reader:   reader,
		userID:   userID,
		interval: interval,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// Start fills the cache once and then refreshes it every interval
func (r *cacheRefresher) Start(ctx context.Context) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true
	ctx, r.cancel = context.WithCancel(ctx)
	r.mu.Unlock()

	r.wg.Add(1)
	go r.run(ctx)
}

// Stop stops the refresher and waits for an in-flight refresh
func (r *cacheRefresher) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	cancel := r.cancel
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	close(r.stopCh)
	r.wg.Wait()
}

func (r *cacheRefresher) run(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.refresh(ctx)

	for {
		select {
		case <-ticker.C:
			r.refresh(ctx)
		case <-r.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (r *cacheRefresher) refresh(ctx context.Context) {
	runBackground(ctx, r.logger, "display cache refresh", func(ctx context.Context) error {
		summaries, err := r.reader.ListConversations(ctx, r.userID)
		if err != nil {
			return fmt.Errorf("listing conversations: %w", err)
		}
		r.cache.Replace(summaries)
		r.logger.Debug("display cache refreshed", "user_id", r.userID, "conversations", len(summaries))
		return nil
	})
}
