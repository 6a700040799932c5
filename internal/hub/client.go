// Package hub lists the published fluree/server image tags from the Docker
// Hub registry API, walking its pagination until exhausted. The session only
// ever needs the final chosen reference string; everything else here is
// display metadata.
package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/fluree-labs/flok/internal/docker"
)

// DefaultTagsURL is the first page of the tag listing.
const DefaultTagsURL = "https://hub.docker.com/v2/repositories/" + docker.ImageRepository + "/tags"

// Tag is one published image tag with its registry metadata.
type Tag struct {
	Name        string    `json:"name"`
	LastUpdated time.Time `json:"last_updated"`
	FullSize    int64     `json:"full_size"`
}

// Reference expands the tag to a pullable image reference.
func (t Tag) Reference() string {
	return docker.FullReference(t.Name)
}

// tagPage mirrors one page of the registry response.
type tagPage struct {
	Results []Tag   `json:"results"`
	Next    *string `json:"next"`
}

// Client fetches tags from the registry.
type Client struct {
	http    *http.Client
	tagsURL string
}

// NewClient builds a client against the public Docker Hub endpoint.
func NewClient() *Client {
	return &Client{
		http:    &http.Client{Timeout: 30 * time.Second},
		tagsURL: DefaultTagsURL,
	}
}

// NewClientWithURL builds a client against a custom endpoint. Used by tests
// and private registry mirrors.
func NewClientWithURL(url string) *Client {
	return &Client{
		http:    &http.Client{Timeout: 30 * time.Second},
		tagsURL: url,
	}
}

// Tags returns every published tag in registry order, following pagination
// links until the last page.
func (c *Client) Tags(ctx context.Context) ([]Tag, error) {
	url := c.tagsURL
	var tags []Tag

	for url != "" {
		page, err := c.fetchPage(ctx, url)
		if err != nil {
			return nil, err
		}
		tags = append(tags, page.Results...)

		url = ""
		if page.Next != nil {
			url = *page.Next
		}
	}

	return tags, nil
}

func (c *Client) fetchPage(ctx context.Context, url string) (tagPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return tagPage{}, fmt.Errorf("failed to build tags request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return tagPage{}, fmt.Errorf("failed to fetch tags: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return tagPage{}, fmt.Errorf("failed to fetch tags: registry returned %s", resp.Status)
	}

	var page tagPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return tagPage{}, fmt.Errorf("failed to parse tags response: %w", err)
	}
	return page, nil
}
