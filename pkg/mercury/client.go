package mercury

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	// DefaultAPIURL is the production Mercury API base URL.
	DefaultAPIURL = "https://api.mercury.com/api/v1"

	// DefaultPageSize is the number of transactions requested per page.
	DefaultPageSize = 500
)

// ClientConfig represents the configuration for Mercury API client.
type ClientConfig struct {
	APIURL    string        // Default: DefaultAPIURL
	APIKey    string        // Sent as a bearer token
	PageSize  int           // Default: DefaultPageSize
	Timeout   time.Duration // Default: 30 seconds
	ForceIPv4 bool          // Dial tcp4 only
	Logger    *slog.Logger
}

// Client is a Mercury banking API client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	pageSize   int
	logger     *slog.Logger
}

// NewClient creates a new Mercury API client.
func NewClient(config ClientConfig) *Client {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	baseURL := config.APIURL
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}

	pageSize := config.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &oauth2.Transport{
				Source: oauth2.StaticTokenSource(&oauth2.Token{
					AccessToken: config.APIKey,
					TokenType:   "Bearer",
				}),
				Base: newTransport(config.ForceIPv4),
			},
		},
		baseURL:  strings.TrimRight(baseURL, "/"),
		pageSize: pageSize,
		logger:   logger,
	}
}

// newTransport builds the base transport. With forceIPv4 every connection
// is dialed over tcp4 regardless of what the resolver returns.
func newTransport(forceIPv4 bool) *http.Transport {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !forceIPv4 {
		return transport
	}

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport.DialContext = func(ctx context.Context, _, addr string) (net.Conn, error) {
		return dialer.DialContext(ctx, "tcp4", addr)
	}
	return transport
}

// PageSize returns the number of transactions requested per page.
func (c *Client) PageSize() int {
	return c.pageSize
}

// ListAccounts lists all accounts visible to the API key.
func (c *Client) ListAccounts(ctx context.Context) ([]Account, error) {
	var accountsResp AccountsResponse
	if err := c.get(ctx, "/accounts", nil, &accountsResp); err != nil {
		return nil, asFetchError(err)
	}

	return accountsResp.Accounts, nil
}

// ListTransactions fetches all settled transactions of an account with
// pagination. Records that are not settled are dropped page by page.
func (c *Client) ListTransactions(ctx context.Context, accountID string) ([]Transaction, error) {
	var settled []Transaction
	offset := 0
	skipped := 0

	for {
		page, err := c.listTransactionsPage(ctx, accountID, offset)
		if err != nil {
			return nil, err
		}

		for _, txn := range page {
			if !txn.Settled() {
				skipped++
				continue
			}
			settled = append(settled, txn)
		}

		c.logger.Debug("Fetched transaction page",
			"account_id", accountID,
			"offset", offset,
			"count", len(page),
		)

		if len(page) < c.pageSize {
			break
		}

		offset += c.pageSize
	}

	c.logger.Debug("Fetched transactions",
		"account_id", accountID,
		"settled", len(settled),
		"skipped", skipped,
	)

	return settled, nil
}

// listTransactionsPage fetches a single page of transactions.
func (c *Client) listTransactionsPage(ctx context.Context, accountID string, offset int) ([]Transaction, error) {
	path := fmt.Sprintf("/account/%s/transactions", url.PathEscape(accountID))

	queryParams := url.Values{}
	queryParams.Set("limit", strconv.Itoa(c.pageSize))
	queryParams.Set("offset", strconv.Itoa(offset))

	var txnsResp TransactionsResponse
	if err := c.get(ctx, path, queryParams, &txnsResp); err != nil {
		fetchErr := asFetchError(err)
		fetchErr.AccountID = accountID
		fetchErr.Offset = offset
		return nil, fetchErr
	}

	return txnsResp.Transactions, nil
}

// get performs a GET request and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint = fmt.Sprintf("%s?%s", endpoint, query.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.parseError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &RemoteFetchError{Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	return nil
}

// asFetchError returns err as a *RemoteFetchError, wrapping transport
// failures that never reached the API.
func asFetchError(err error) *RemoteFetchError {
	var fetchErr *RemoteFetchError
	if errors.As(err, &fetchErr) {
		return fetchErr
	}
	return &RemoteFetchError{Err: err}
}

// parseError parses an error response from Mercury API.
func (c *Client) parseError(resp *http.Response) error {
	fetchErr := &RemoteFetchError{StatusCode: resp.StatusCode}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		fetchErr.Err = fmt.Errorf("failed to read error response: %w", err)
		return fetchErr
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Errors.Message == "" {
		fetchErr.Message = strings.TrimSpace(string(body))
		return fetchErr
	}

	fetchErr.Message = errResp.Errors.Message
	return fetchErr
}
