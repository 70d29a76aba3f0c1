// Package collector is the aggregation facade over influencer post feeds and
// news feeds. Upstream failures never fail a request: the affected source
// degrades to a deterministic mock payload, and the per-source status in the
// response says so explicitly.
package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/CETANGZHI/crypto-monitor-backend/internal/metrics"
	"github.com/CETANGZHI/crypto-monitor-backend/pkg/config"
)

// Post is one influencer post in the merged feed.
type Post struct {
	ID        string    `json:"id"`
	Handle    string    `json:"handle"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	Likes     int       `json:"likes"`
	Reposts   int       `json:"reposts"`
	CreatedAt time.Time `json:"created_at"`
}

// NewsItem is one article in the merged news feed.
type NewsItem struct {
	ID          string    `json:"id"`
	Source      string    `json:"source"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
}

// SourceStatus reports whether one upstream answered or the response was
// backfilled with mock data.
type SourceStatus struct {
	Source string `json:"source"`
	Live   bool   `json:"live"`
	Reason string `json:"reason,omitempty"`
}

// PostsResponse is the merged, newest-first influencer feed.
type PostsResponse struct {
	RequestID string         `json:"request_id"`
	Posts     []Post         `json:"posts"`
	Sources   []SourceStatus `json:"sources"`
}

// NewsResponse is the merged, newest-first news feed.
type NewsResponse struct {
	RequestID string         `json:"request_id"`
	Items     []NewsItem     `json:"items"`
	Sources   []SourceStatus `json:"sources"`
}

// InfluencerInfo is one registry entry plus feed stats.
type InfluencerInfo struct {
	Influencer
	PostsPerFetch int `json:"posts_per_fetch"`
}

// PostFetcher fetches one influencer's recent posts from the upstream.
type PostFetcher interface {
	FetchPosts(ctx context.Context, inf Influencer) ([]Post, error)
}

// NewsFetcher fetches one source's recent articles from the upstream.
type NewsFetcher interface {
	FetchNews(ctx context.Context, source NewsSource) ([]NewsItem, error)
}

// Service defines the aggregation facade
type Service interface {
	Posts(ctx context.Context) (*PostsResponse, error)
	Influencers(ctx context.Context) ([]InfluencerInfo, error)
	News(ctx context.Context) (*NewsResponse, error)
}

type collectorService struct {
	registry *Registry
	posts    PostFetcher
	news     NewsFetcher
	timeout  time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewService loads the registry from cfg and wires the default fetchers.
func NewService(cfg *config.CollectorConfig, logger *zap.Logger) (Service, error) {
	registry, err := LoadRegistry(cfg.RegistryPath)
	if err != nil {
		return nil, err
	}

	client := &http.Client{Timeout: cfg.RequestTimeout}
	return newService(
		registry,
		&unavailablePostFetcher{},
		&httpNewsFetcher{client: client},
		cfg.RequestTimeout,
		logger,
	), nil
}

func newService(registry *Registry, posts PostFetcher, news NewsFetcher, timeout time.Duration, logger *zap.Logger) *collectorService {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &collectorService{
		registry: registry,
		posts:    posts,
		news:     news,
		timeout:  timeout,
		logger:   logger,
		now:      time.Now,
	}
}

// Posts fans out one fetch per registered influencer, waits for all of them
// and merges the results newest-first.
func (s *collectorService) Posts(ctx context.Context) (*PostsResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	type fetched struct {
		status SourceStatus
		posts  []Post
	}
	results := make(chan fetched, len(s.registry.Influencers))
	for _, inf := range s.registry.Influencers {
		go func(inf Influencer) {
			posts, err := s.posts.FetchPosts(ctx, inf)
			if err != nil {
				metrics.UpstreamFallbacksTotal.WithLabelValues("twitter").Inc()
				s.logger.Warn("post feed degraded to mock data",
					zap.String("handle", inf.Handle),
					zap.Error(err),
				)
				results <- fetched{
					posts:  mockPosts(inf, s.now()),
					status: SourceStatus{Source: inf.Handle, Reason: err.Error()},
				}
				return
			}
			results <- fetched{
				posts:  posts,
				status: SourceStatus{Source: inf.Handle, Live: true},
			}
		}(inf)
	}

	response := &PostsResponse{RequestID: uuid.NewString()}
	for range s.registry.Influencers {
		r := <-results
		response.Posts = append(response.Posts, r.posts...)
		response.Sources = append(response.Sources, r.status)
	}

	response.Posts = dedupePosts(response.Posts)
	sort.Slice(response.Posts, func(i, j int) bool {
		if !response.Posts[i].CreatedAt.Equal(response.Posts[j].CreatedAt) {
			return response.Posts[i].CreatedAt.After(response.Posts[j].CreatedAt)
		}
		return response.Posts[i].ID < response.Posts[j].ID
	})
	sort.Slice(response.Sources, func(i, j int) bool {
		return response.Sources[i].Source < response.Sources[j].Source
	})
	return response, nil
}

func (s *collectorService) Influencers(_ context.Context) ([]InfluencerInfo, error) {
	infos := make([]InfluencerInfo, 0, len(s.registry.Influencers))
	for _, inf := range s.registry.Influencers {
		infos = append(infos, InfluencerInfo{
			Influencer:    inf,
			PostsPerFetch: mockItemsPerSource,
		})
	}
	return infos, nil
}

func (s *collectorService) News(ctx context.Context) (*NewsResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	type fetched struct {
		status SourceStatus
		items  []NewsItem
	}
	results := make(chan fetched, len(s.registry.NewsSources))
	for _, source := range s.registry.NewsSources {
		go func(source NewsSource) {
			items, err := s.news.FetchNews(ctx, source)
			if err != nil {
				metrics.UpstreamFallbacksTotal.WithLabelValues("news").Inc()
				s.logger.Warn("news feed degraded to mock data",
					zap.String("source", source.Name),
					zap.Error(err),
				)
				results <- fetched{
					items:  mockNews(source, s.now()),
					status: SourceStatus{Source: source.Name, Reason: err.Error()},
				}
				return
			}
			results <- fetched{
				items:  items,
				status: SourceStatus{Source: source.Name, Live: true},
			}
		}(source)
	}

	response := &NewsResponse{RequestID: uuid.NewString()}
	for range s.registry.NewsSources {
		r := <-results
		response.Items = append(response.Items, r.items...)
		response.Sources = append(response.Sources, r.status)
	}

	sort.Slice(response.Items, func(i, j int) bool {
		if !response.Items[i].PublishedAt.Equal(response.Items[j].PublishedAt) {
			return response.Items[i].PublishedAt.After(response.Items[j].PublishedAt)
		}
		return response.Items[i].ID < response.Items[j].ID
	})
	sort.Slice(response.Sources, func(i, j int) bool {
		return response.Sources[i].Source < response.Sources[j].Source
	})
	return response, nil
}

func dedupePosts(posts []Post) []Post {
	seen := make(map[string]struct{}, len(posts))
	out := posts[:0]
	for _, p := range posts {
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		out = append(out, p)
	}
	return out
}

// unavailablePostFetcher is the default post fetcher: there is no upstream
// post API wired in this deployment, so every influencer degrades to mock
// data.
type unavailablePostFetcher struct{}

func (f *unavailablePostFetcher) FetchPosts(context.Context, Influencer) ([]Post, error) {
	return nil, errors.New("post upstream not configured")
}

// httpNewsFetcher pulls a JSON article list from sources that carry a feed
// URL in the registry.
type httpNewsFetcher struct {
	client *http.Client
}

func (f *httpNewsFetcher) FetchNews(ctx context.Context, source NewsSource) ([]NewsItem, error) {
	if source.URL == "" {
		return nil, errors.New("news upstream not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build feed request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	var items []NewsItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("failed to decode feed: %w", err)
	}
	for i := range items {
		if items[i].Source == "" {
			items[i].Source = source.Name
		}
	}
	return items, nil
}
