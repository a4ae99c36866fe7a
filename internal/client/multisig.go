package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gamelink-io/provision-service/internal/config"
	"github.com/gamelink-io/provision-service/internal/httpx"
	"github.com/gamelink-io/provision-service/internal/model"
)

// MultiSigClient talks to the external multi-sig service. Deploy uses its
// own longer timeout; everything else shares the default outbound timeout.
type MultiSigClient struct {
	http          *httpx.Client
	deployTimeout time.Duration
}

// NewMultiSigClient builds a MultiSigClient from the external config section.
func NewMultiSigClient(cfg config.ExternalConfig) *MultiSigClient {
	return &MultiSigClient{
		http: httpx.NewClient(
			httpx.WithBaseURL(cfg.MultiSigURL),
			httpx.WithTimeout(cfg.Timeout()),
		),
		deployTimeout: cfg.DeployTimeout(),
	}
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func appHeaders(appID, token string) map[string]string {
	h := bearer(token)
	h["App-Id"] = appID
	return h
}

type createWalletRequest struct {
	PublicKey       string `json:"publicKey"`
	ProviderAddress string `json:"providerAddress"`
}

type createWalletResponse struct {
	MultiSigAddress string `json:"multiSigAddress"`
}

// CreateWallet asks the external service for a new multi-sig address owned
// by the given provider address.
func (c *MultiSigClient) CreateWallet(ctx context.Context, publicKey, providerAddress, token string) (string, error) {
	resp, err := c.http.Post(ctx, "/v1/wallets",
		createWalletRequest{PublicKey: publicKey, ProviderAddress: providerAddress}, bearer(token))
	if err != nil {
		return "", err
	}
	var body createWalletResponse
	if err := resp.DecodeJSON(&body); err != nil {
		return "", &httpx.Error{StatusCode: resp.StatusCode, Message: "malformed wallet response", Response: resp}
	}
	return body.MultiSigAddress, nil
}

// ContractItem is one row of the external contract list. Issue dates are
// RFC3339 strings and may be empty when the external side has no record.
type ContractItem struct {
	MultiAddress  string `json:"multiAddress"`
	AppID         string `json:"appId"`
	NFTContract   string `json:"nftContract"`
	NFTIssueDate  string `json:"nftIssueDate"`
	LockContract  string `json:"lockContract"`
	LockIssueDate string `json:"lockIssueDate"`
}

type contractListResponse struct {
	Items      []ContractItem `json:"items"`
	TotalCount int            `json:"totalCount"`
}

// ListContracts fetches one page of the external contract list for a
// multi-sig address.
func (c *MultiSigClient) ListContracts(ctx context.Context, multiAddress string, company, page int, orderBy, token string) ([]ContractItem, int, error) {
	q := url.Values{}
	q.Set("multiAddress", multiAddress)
	q.Set("company", strconv.Itoa(company))
	q.Set("page", strconv.Itoa(page))
	q.Set("orderBy", orderBy)
	resp, err := c.http.Get(ctx, "/v1/contracts", q, bearer(token))
	if err != nil {
		return nil, 0, err
	}
	var body contractListResponse
	if err := resp.DecodeJSON(&body); err != nil {
		return nil, 0, &httpx.Error{StatusCode: resp.StatusCode, Message: "malformed contract list", Response: resp}
	}
	return body.Items, body.TotalCount, nil
}

// ContractPayload is the creation payload for an unsigned contract
// transaction. Symbol is empty for LOCK contracts.
type ContractPayload struct {
	Name            string `json:"name"`
	Symbol          string `json:"symbol,omitempty"`
	Label           string `json:"label"`
	ProviderAddress string `json:"providerAddress"`
	MultiAddress    string `json:"multiAddress"`
}

// CreateContractTx builds an unsigned contract-creation transaction on the
// external side and returns it verbatim.
func (c *MultiSigClient) CreateContractTx(ctx context.Context, payload ContractPayload, appID, token string) (json.RawMessage, error) {
	resp, err := c.http.Post(ctx, "/v1/contracts/transaction", payload, appHeaders(appID, token))
	if err != nil {
		return nil, err
	}
	return json.RawMessage(resp.Body), nil
}

// DeployPayload carries a signed transaction back for deployment.
type DeployPayload struct {
	RequestID    string `json:"requestId"`
	MultiAddress string `json:"multiAddress"`
	SignedTx     string `json:"signedTx"`
}

// DeployResult is the external deploy outcome.
type DeployResult struct {
	ContractAddress string             `json:"contractAddress"`
	ContractType    model.ContractType `json:"contractType"`
}

// DeployContractTx submits a signed deployment transaction. The call runs
// under the deploy timeout, not the shared default.
func (c *MultiSigClient) DeployContractTx(ctx context.Context, payload DeployPayload, appID, token string) (*DeployResult, error) {
	resp, err := c.http.Do(ctx, &httpx.Request{
		Method:  http.MethodPost,
		Path:    "/v1/contracts/deploy",
		Body:    payload,
		Headers: appHeaders(appID, token),
		Timeout: c.deployTimeout,
	})
	if err != nil {
		return nil, err
	}
	var body DeployResult
	if err := resp.DecodeJSON(&body); err != nil {
		return nil, &httpx.Error{StatusCode: resp.StatusCode, Message: "malformed deploy response", Response: resp}
	}
	return &body, nil
}
