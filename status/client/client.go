package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	fspath "path"
	"time"

	"github.com/andydunstall/lattice/pkg/admin/status"
	"github.com/andydunstall/lattice/pkg/node"
)

// Client queries a node's admin status API.
type Client struct {
	httpClient *http.Client

	url *url.URL
}

func NewClient(url *url.URL) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: time.Second * 15,
		},
		url: url,
	}
}

func (c *Client) Node() (*node.Status, error) {
	var status node.Status
	if err := c.get("/status/node", &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// GossipKnown returns the number of keys each peer is known to have.
func (c *Client) GossipKnown() (map[string]int, error) {
	var known map[string]int
	if err := c.get("/status/gossip/known", &known); err != nil {
		return nil, err
	}
	return known, nil
}

// GossipKnownKeys returns the keys the given peer is known to have.
func (c *Client) GossipKnownKeys(peer string) ([]string, error) {
	var keys []string
	if err := c.get("/status/gossip/known/"+peer, &keys); err != nil {
		return nil, err
	}
	return keys, nil
}

func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

func (c *Client) get(path string, v any) error {
	r, err := c.request(path)
	if err != nil {
		return err
	}
	defer r.Close()

	if err := json.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) request(path string) (io.ReadCloser, error) {
	url := new(url.URL)
	*url = *c.url

	url.Path = fspath.Join(url.Path, path)

	req, err := http.NewRequest(http.MethodGet, url.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()

		var errorResp status.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errorResp); err == nil && errorResp.Error != "" {
			return nil, fmt.Errorf("request: bad status: %d: %s", resp.StatusCode, errorResp.Error)
		}
		return nil, fmt.Errorf("request: bad status: %d", resp.StatusCode)
	}

	return resp.Body, nil
}
