package collector

import (
	"fmt"
	"hash/fnv"
	"time"
)

const mockItemsPerSource = 5

// Mock content is a pure function of the source name, so the fallback payload
// for a given source is stable across requests and assertable in tests.

var mockPostPhrases = []string{
	"BTC looking strong on the weekly. Accumulate.",
	"Just moved some holdings to cold storage. Not financial advice.",
	"ETH gas fees are down again. L2 season continues.",
	"The halving cycle never disappoints. Patience.",
	"Institutional inflows hitting new highs this quarter.",
	"DeFi TVL quietly recovering while nobody watches.",
	"Stablecoin supply expanding. Liquidity is coming back.",
	"On-chain activity says the bottom is in.",
}

var mockHeadlines = []string{
	"Bitcoin ETF sees record weekly inflows",
	"Major exchange reports surge in institutional accounts",
	"Ethereum staking ratio crosses new threshold",
	"Regulators signal clearer rules for digital assets",
	"Mining difficulty reaches all-time high",
	"Layer-2 networks post record transaction counts",
	"Stablecoin issuer expands reserves attestation",
	"Large wallet movement sparks market speculation",
}

func sourceSeed(name string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(name))
	return h.Sum64()
}

func mockPosts(inf Influencer, now time.Time) []Post {
	seed := sourceSeed(inf.Handle)
	posts := make([]Post, 0, mockItemsPerSource)
	for i := 0; i < mockItemsPerSource; i++ {
		k := seed + uint64(i)*2654435761
		posts = append(posts, Post{
			ID:        fmt.Sprintf("mock-%s-%d", inf.Handle, i),
			Handle:    inf.Handle,
			Author:    inf.Name,
			Content:   mockPostPhrases[k%uint64(len(mockPostPhrases))],
			Likes:     int(k % 50000),
			Reposts:   int(k % 9000),
			CreatedAt: now.Add(-time.Duration(i+1) * 37 * time.Minute),
		})
	}
	return posts
}

func mockNews(source NewsSource, now time.Time) []NewsItem {
	seed := sourceSeed(source.Name)
	items := make([]NewsItem, 0, mockItemsPerSource)
	for i := 0; i < mockItemsPerSource; i++ {
		k := seed + uint64(i)*2654435761
		items = append(items, NewsItem{
			ID:          fmt.Sprintf("mock-%s-%d", source.Name, i),
			Source:      source.Name,
			Title:       mockHeadlines[k%uint64(len(mockHeadlines))],
			URL:         fmt.Sprintf("https://%s.example.com/articles/%d", source.Name, k%100000),
			PublishedAt: now.Add(-time.Duration(i+1) * 53 * time.Minute),
		})
	}
	return items
}
