package results

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/EmpoweredVote/wahlkreis/internal/logging"
)

// DefaultURL is the Bundeswahlleiterin open-data results file for 2021.
const DefaultURL = "https://www.bundeswahlleiterin.de/bundestagswahlen/2021/ergebnisse/opendata/daten/gesamtergebnis_05.xml"

// maxDocumentSize bounds the download; the real file is about 10 MB.
const maxDocumentSize = 64 << 20

// Client downloads the results document.
type Client struct {
	httpClient *http.Client
	maxSize    int64
}

// NewClient creates a client with the given request timeout.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		maxSize: maxDocumentSize,
	}
}

// Fetch performs one GET against url and parses the body. There is no retry.
func (c *Client) Fetch(ctx context.Context, url string) (*Tree, []byte, error) {
	start := time.Now()
	logging.LogRequest("results", http.MethodGet, url, nil)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/xml, text/xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logging.LogError("results", "fetch", err)
		return nil, nil, fmt.Errorf("%w: %v", ErrDataFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("%w: status %d", ErrDataFetch, resp.StatusCode)
		logging.LogError("results", "fetch", err)
		return nil, nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxSize+1))
	if err != nil {
		logging.LogError("results", "read", err)
		return nil, nil, fmt.Errorf("%w: read body: %v", ErrDataFetch, err)
	}
	if int64(len(body)) > c.maxSize {
		err := fmt.Errorf("%w: document too large (over %d bytes)", ErrDataFetch, c.maxSize)
		logging.LogError("results", "read", err)
		return nil, nil, err
	}

	tree, err := Parse(bytes.NewReader(body))
	if err != nil {
		logging.LogError("results", "parse", err)
		return nil, nil, err
	}

	logging.LogResponse("results", resp.StatusCode, time.Since(start), len(tree.Regions))
	return tree, body, nil
}
