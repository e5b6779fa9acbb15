package service

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/swiftmeta/internal/config"
	"github.com/swiftmeta/internal/logger"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"
)

const (
	newsCacheKey      = "latest"
	newsSummaryRunes  = 180
	defaultNewsLimit  = 12
	maxNewsFeedsFetch = 4
)

// NewsItem 资讯条目
type NewsItem struct {
	ID      string    `json:"id"`
	Title   string    `json:"title"`
	Image   string    `json:"image,omitempty"`
	Source  string    `json:"source"`
	Date    time.Time `json:"date"`
	URL     string    `json:"url"`
	Summary string    `json:"summary"`
}

// NewsService 聚合 RSS/Atom 资讯并缓存
type NewsService struct {
	cfg    config.NewsConfig
	parser *gofeed.Parser
	cache  *expirable.LRU[string, []NewsItem]
	strip  *bluemonday.Policy

	mu       sync.Mutex
	lastGood []NewsItem
}

// NewNewsService 创建资讯服务
func NewNewsService(cfg config.NewsConfig) *NewsService {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = 50
	}

	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: timeout}
	return &NewsService{
		cfg:    cfg,
		parser: parser,
		cache:  expirable.NewLRU[string, []NewsItem](4, nil, ttl),
		strip:  bluemonday.StrictPolicy(),
	}
}

// Latest 返回按时间倒序的最新资讯
func (s *NewsService) Latest(ctx context.Context, limit int) ([]NewsItem, error) {
	if limit <= 0 {
		limit = defaultNewsLimit
	}
	if limit > s.cfg.MaxItems {
		limit = s.cfg.MaxItems
	}

	items, ok := s.cache.Get(newsCacheKey)
	if !ok {
		fetched, err := s.fetchAll(ctx)
		if err != nil {
			s.mu.Lock()
			stale := s.lastGood
			s.mu.Unlock()
			if len(stale) == 0 {
				return nil, fmt.Errorf("%w: %v", ErrNewsUnavailable, err)
			}
			logger.Warnw("news_refresh_failed_serving_stale", "error", err)
			fetched = stale
		} else {
			s.mu.Lock()
			s.lastGood = fetched
			s.mu.Unlock()
		}
		s.cache.Add(newsCacheKey, fetched)
		items = fetched
	}

	if len(items) > limit {
		items = items[:limit]
	}
	out := make([]NewsItem, len(items))
	copy(out, items)
	return out, nil
}

func (s *NewsService) fetchAll(ctx context.Context) ([]NewsItem, error) {
	feeds := make([]string, 0, len(s.cfg.Feeds))
	for _, feed := range s.cfg.Feeds {
		if feed = strings.TrimSpace(feed); feed != "" {
			feeds = append(feeds, feed)
		}
	}
	if len(feeds) == 0 {
		return nil, fmt.Errorf("no feeds configured")
	}

	results := make([][]NewsItem, len(feeds))
	errs := make([]error, len(feeds))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxNewsFeedsFetch)
	for i, feedURL := range feeds {
		g.Go(func() error {
			items, err := s.fetchFeed(gctx, feedURL)
			if err != nil {
				logger.Warnw("news_feed_fetch_failed", "feed", feedURL, "error", err)
				errs[i] = err
				return nil
			}
			results[i] = items
			return nil
		})
	}
	_ = g.Wait()

	merged := make([]NewsItem, 0)
	seen := make(map[string]struct{})
	var firstErr error
	for i := range feeds {
		if errs[i] != nil && firstErr == nil {
			firstErr = errs[i]
		}
		for _, item := range results[i] {
			if _, dup := seen[item.ID]; dup {
				continue
			}
			seen[item.ID] = struct{}{}
			merged = append(merged, item)
		}
	}
	if len(merged) == 0 && firstErr != nil {
		return nil, firstErr
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Date.After(merged[j].Date)
	})
	if len(merged) > s.cfg.MaxItems {
		merged = merged[:s.cfg.MaxItems]
	}
	return merged, nil
}

func (s *NewsService) fetchFeed(ctx context.Context, feedURL string) ([]NewsItem, error) {
	feed, err := s.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, err
	}
	source := strings.TrimSpace(feed.Title)
	items := make([]NewsItem, 0, len(feed.Items))
	for _, entry := range feed.Items {
		if entry == nil || strings.TrimSpace(entry.Link) == "" {
			continue
		}
		id := strings.TrimSpace(entry.GUID)
		if id == "" {
			id = entry.Link
		}
		date := time.Time{}
		if entry.PublishedParsed != nil {
			date = *entry.PublishedParsed
		} else if entry.UpdatedParsed != nil {
			date = *entry.UpdatedParsed
		}
		items = append(items, NewsItem{
			ID:      id,
			Title:   strings.TrimSpace(entry.Title),
			Image:   newsImage(entry),
			Source:  source,
			Date:    date.UTC(),
			URL:     entry.Link,
			Summary: s.summarize(entry.Description),
		})
	}
	return items, nil
}

func (s *NewsService) summarize(raw string) string {
	text := html.UnescapeString(s.strip.Sanitize(raw))
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= newsSummaryRunes {
		return text
	}
	return strings.TrimSpace(string(runes[:newsSummaryRunes])) + "..."
}

func newsImage(entry *gofeed.Item) string {
	if entry.Image != nil && entry.Image.URL != "" {
		return entry.Image.URL
	}
	for _, enc := range entry.Enclosures {
		if enc != nil && strings.HasPrefix(enc.Type, "image/") {
			return enc.URL
		}
	}
	return ""
}
