package stargate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"cosmossdk.io/math"
)

// DefaultBaseURL is the public Cosmos Hub REST endpoint
const DefaultBaseURL = "https://stargate.cosmos.network"

// Sentinel errors for client operations
var (
	ErrUnexpectedStatus = errors.New("unexpected status code")
	ErrInvalidBaseURL   = errors.New("invalid base URL")
)

// Client represents a Cosmos staking REST API client
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a new staking API client with custom HTTP client and base URL
func NewClient(httpClient *http.Client, baseURL string) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
	}
}

// Validator represents a validator from the staking API
type Validator struct {
	OperatorAddress string      `json:"operator_address"`
	Description     Description `json:"description"`
	Status          int         `json:"status"`
	Tokens          math.Int    `json:"tokens"`
}

// Description holds the self-declared validator metadata
type Description struct {
	Moniker string `json:"moniker"`
}

// validatorsResponse is the legacy REST envelope
type validatorsResponse struct {
	Height string      `json:"height"`
	Result []Validator `json:"result"`
}

// ValidatorsURL builds the validators query URL for a status filter
func (c *Client) ValidatorsURL(status string) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidBaseURL, err)
	}
	u = u.JoinPath("staking", "validators")
	u.RawQuery = url.Values{"status": []string{status}}.Encode()
	return u.String(), nil
}

// GetValidators retrieves validators with the given status from the staking API
func (c *Client) GetValidators(ctx context.Context, status string) ([]Validator, error) {
	endpoint, err := c.ValidatorsURL(status)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	var body validatorsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return body.Result, nil
}
