package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"

	"airdrop-distributor/pkg/models"
)

// APIError is a non-2xx response from the distribution API
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// Client handles API communication with a distribution service
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *log.Logger
}

// NewClient creates a new API client
func NewClient(baseURL string, logger *log.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			// transfers wait for confirmation before the server answers
			Timeout: 2 * time.Minute,
		},
		logger: logger,
	}
}

// Health checks that the service is up
func (c *Client) Health(ctx context.Context) error {
	return c.doRequest(ctx, http.MethodGet, "/health", nil, nil)
}

// CreateDistributor initializes a distributor for root
func (c *Client) CreateDistributor(ctx context.Context, root string) (*models.DistributorResponse, error) {
	var out models.DistributorResponse
	if err := c.doRequest(ctx, http.MethodPost, "/distributors", models.InitRequest{Root: root}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetDistributor fetches the status of a distributor
func (c *Client) GetDistributor(ctx context.Context, address string) (*models.DistributorResponse, error) {
	var out models.DistributorResponse
	if err := c.doRequest(ctx, http.MethodGet, "/distributors/"+address, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetClaim reports whether index was claimed
func (c *Client) GetClaim(ctx context.Context, address string, index uint64) (*models.ClaimStatusResponse, error) {
	var out models.ClaimStatusResponse
	path := fmt.Sprintf("/distributors/%s/claims/%d", address, index)
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Claim submits a signed claim
func (c *Client) Claim(ctx context.Context, address string, req models.ClaimRequest) (*models.ClaimResponse, error) {
	var out models.ClaimResponse
	if err := c.doRequest(ctx, http.MethodPost, "/distributors/"+address+"/claims", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// NewSignedClaim builds a claim request for entry signed by the wallet key
func NewSignedClaim(wallet solana.PrivateKey, address string, entry models.ProofEntry, issuedAt time.Time) (models.ClaimRequest, error) {
	issuedAt = issuedAt.UTC().Truncate(time.Second)
	message := ClaimMessage(address, entry.Index, wallet.PublicKey().String(), entry.Amount, issuedAt)
	signature, err := SignClaim(wallet, message)
	if err != nil {
		return models.ClaimRequest{}, err
	}

	return models.ClaimRequest{
		Index:           entry.Index,
		Wallet:          wallet.PublicKey().String(),
		Amount:          entry.Amount,
		Proof:           entry.Proof,
		IssuedAt:        issuedAt,
		Signature:       signature,
		SignatureFormat: SignatureFormatBase64,
	}, nil
}

// doRequest executes the HTTP request and decodes a JSON response into out
func (c *Client) doRequest(ctx context.Context, method, path string, body, out interface{}) error {
	var payload *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("error encoding request: %w", err)
		}
		payload = bytes.NewBuffer(jsonData)
	} else {
		payload = &bytes.Buffer{}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error executing request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes := new(bytes.Buffer)
	if _, err = bodyBytes.ReadFrom(resp.Body); err != nil {
		return fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: bodyBytes.String()}
		var errResp models.ErrorResponse
		if json.Unmarshal(bodyBytes.Bytes(), &errResp) == nil && errResp.Error != "" {
			apiErr.Code = errResp.Code
			apiErr.Message = errResp.Error
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(bodyBytes.Bytes(), out); err != nil {
		return fmt.Errorf("error decoding response: %w", err)
	}
	return nil
}
