package video

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/smart-trendz/trendz/config"
)

const defaultEndpoint = "https://www.googleapis.com/youtube/v3/search"

// Video is one recommended YouTube video.
type Video struct {
	VideoID     string `json:"video_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Thumbnail   string `json:"thumbnail"`
	Channel     string `json:"channel"`
	PublishedAt string `json:"published_at"`
	URL         string `json:"url"`
}

// Client queries the YouTube Data API search endpoint.
type Client struct {
	apiKey     string
	endpoint   string
	maxResults int
	httpClient *http.Client
}

func NewClient(cfg config.VideoConfig) *Client {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 8
	}
	return &Client{
		apiKey:     cfg.APIKey,
		endpoint:   endpoint,
		maxResults: maxResults,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// Search returns relevant medium-length videos for the given keywords.
func (c *Client) Search(ctx context.Context, keywords string) ([]Video, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("q", keywords)
	params.Set("type", "video")
	params.Set("maxResults", strconv.Itoa(c.maxResults))
	params.Set("order", "relevance")
	params.Set("relevanceLanguage", "en")
	params.Set("videoDuration", "medium")
	params.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("youtube returned %s", resp.Status)
	}

	var raw struct {
		Items []struct {
			ID struct {
				VideoID string `json:"videoId"`
			} `json:"id"`
			Snippet struct {
				Title       string `json:"title"`
				Description string `json:"description"`
				Thumbnails  struct {
					High struct {
						URL string `json:"url"`
					} `json:"high"`
				} `json:"thumbnails"`
				ChannelTitle string `json:"channelTitle"`
				PublishedAt  string `json:"publishedAt"`
			} `json:"snippet"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}

	out := make([]Video, 0, len(raw.Items))
	for _, item := range raw.Items {
		desc := item.Snippet.Description
		if len(desc) > 200 {
			desc = desc[:200] + "..."
		}
		out = append(out, Video{
			VideoID:     item.ID.VideoID,
			Title:       item.Snippet.Title,
			Description: desc,
			Thumbnail:   item.Snippet.Thumbnails.High.URL,
			Channel:     item.Snippet.ChannelTitle,
			PublishedAt: item.Snippet.PublishedAt,
			URL:         "https://www.youtube.com/watch?v=" + item.ID.VideoID,
		})
	}
	return out, nil
}
