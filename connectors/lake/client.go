package lake

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2/clientcredentials"
)

// Client fetches raw table files from the company data-lake HTTP endpoint
// using the OAuth2 client-credentials flow.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a lake client. tokenURL, clientID and clientSecret configure
// the client-credentials exchange; the token source refreshes transparently.
func New(baseURL, tokenURL, clientID, clientSecret string, scopes []string) *Client {
	cc := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
		Scopes:       scopes,
	}
	hc := cc.Client(context.Background())
	hc.Timeout = 30 * time.Second
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: hc,
	}
}

// FetchTable downloads one table file (e.g. "orders.csv") and writes its
// bytes to out.
func (c *Client) FetchTable(ctx context.Context, name string, out io.Writer) error {
	url := fmt.Sprintf("%s/%s", c.baseURL, name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request for %s: %w", name, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("fetch %s: %d %s", name, resp.StatusCode, string(body))
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	return nil
}
