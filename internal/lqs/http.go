package lqs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// HTTPClient implements LedgerQueryClient against a ledger query service:
// POST /queries/{ledger}/{type} to create (id returned via the Location
// header), GET on that returned resource to retrieve matches, DELETE on it
// to tear down.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

// NewHTTPClient constructs an HTTPClient against baseURL (e.g.
// "http://localhost:8080").
func NewHTTPClient(baseURL string, httpClient *http.Client) *HTTPClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPClient{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

func (c *HTTPClient) CreateQuery(ctx context.Context, q Query) (QueryID, error) {
	body, err := json.Marshal(queryBody{
		Kind:            q.Kind.String(),
		HtlcAddress:     q.HtlcAddress,
		ContractAddress: q.ContractAddress,
		Recipient:       q.Recipient,
		SecretHash:      q.SecretHash,
		Location:        q.Location,
	})
	if err != nil {
		return "", fmt.Errorf("lqs: marshal query: %w", err)
	}

	// All three event families predicate on transactions; the query kind
	// travels in the body, not the path.
	endpoint := fmt.Sprintf("%s/queries/%s/transactions", c.baseURL, strings.ToLower(q.Ledger))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("lqs: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("lqs: create query: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("lqs: create query: unexpected status %d", resp.StatusCode)
	}

	loc := resp.Header.Get("Location")
	if loc == "" {
		return "", fmt.Errorf("lqs: create query: missing Location header")
	}
	parsed, err := url.Parse(loc)
	if err != nil {
		return "", fmt.Errorf("lqs: parse Location: %w", err)
	}
	// The id is the Location path below /queries/, so Poll and DeleteQuery
	// address the very resource the service returned.
	_, rest, found := strings.Cut(parsed.Path, "/queries/")
	rest = strings.Trim(rest, "/")
	if !found || rest == "" {
		return "", fmt.Errorf("lqs: unexpected Location shape %q", loc)
	}
	return QueryID(rest), nil
}

func (c *HTTPClient) Poll(ctx context.Context, id QueryID) ([]string, error) {
	endpoint := fmt.Sprintf("%s/queries/%s", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("lqs: build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lqs: poll: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: query %s not found", ErrQueryFailed, id)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("lqs: poll: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("lqs: read response: %w", err)
	}
	var parsed retrieveQueryResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("lqs: unmarshal response: %w", err)
	}
	return parsed.Matches, nil
}

func (c *HTTPClient) DeleteQuery(ctx context.Context, id QueryID) error {
	endpoint := fmt.Sprintf("%s/queries/%s", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("lqs: build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("lqs: delete query: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("lqs: delete query: unexpected status %d", resp.StatusCode)
	}
	return nil
}

type queryBody struct {
	Kind            string `json:"query_type"`
	HtlcAddress     string `json:"htlc_address,omitempty"`
	ContractAddress string `json:"contract_address,omitempty"`
	Recipient       string `json:"recipient,omitempty"`
	SecretHash      string `json:"secret_hash,omitempty"`
	Location        string `json:"location,omitempty"`
}

// retrieveQueryResponse mirrors RetrieveQueryResponse's untagged
// TransactionIds variant: this client never requests result expansion, so
// matches always arrives as a flat list of transaction ids.
type retrieveQueryResponse struct {
	Matches []string `json:"matches"`
}
