package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/josephasare/virtual-card-service/internal/application"
	"github.com/josephasare/virtual-card-service/internal/config"
	"github.com/josephasare/virtual-card-service/internal/domain"
)

// RequestToPayGateway pushes an approval prompt to the customer's phone.
// Every initiation is asynchronous: the provider accepts the request with a
// 202 and the final outcome arrives later, either through the status endpoint
// or a callback.
type RequestToPayGateway struct {
	baseURL         string
	clientID        string
	clientSecret    string
	subscriptionKey string
	targetEnv       string
	callbackURL     string
	httpClient      *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func NewRequestToPayGateway(cfg config.ProviderConfig, httpClient *http.Client) *RequestToPayGateway {
	return &RequestToPayGateway{
		baseURL:         strings.TrimSuffix(cfg.BaseURL, "/"),
		clientID:        cfg.ClientID,
		clientSecret:    cfg.ClientSecret,
		subscriptionKey: cfg.SubscriptionKey,
		targetEnv:       cfg.TargetEnv,
		callbackURL:     cfg.CallbackURL,
		httpClient:      httpClient,
	}
}

func (g *RequestToPayGateway) Name() string { return "momo-rtp" }

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type requestToPayBody struct {
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`
	ExternalId string `json:"externalId"`
	Payer      struct {
		PartyIdType string `json:"partyIdType"`
		PartyId     string `json:"partyId"`
	} `json:"payer"`
	PayerMessage string `json:"payerMessage"`
	PayeeNote    string `json:"payeeNote"`
}

type requestToPayStatus struct {
	Status string `json:"status"`
	Reason struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"reason"`
}

// token returns a cached bearer token, fetching a fresh one when the cached
// copy is within a minute of expiring.
func (g *RequestToPayGateway) token(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.accessToken != "" && time.Now().Before(g.tokenExpiry.Add(-time.Minute)) {
		return g.accessToken, nil
	}

	url := g.baseURL + "/collection/token/"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return "", fmt.Errorf("error creating token request: %w", err)
	}

	auth := base64.StdEncoding.EncodeToString([]byte(g.clientID + ":" + g.clientSecret))
	httpReq.Header.Set("Authorization", "Basic "+auth)
	httpReq.Header.Set("Ocp-Apim-Subscription-Key", g.subscriptionKey)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("error fetching token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", &ProviderError{
			Code:       "TOKEN_REQUEST_FAILED",
			Message:    strings.TrimSpace(string(body)),
			StatusCode: resp.StatusCode,
		}
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("error decoding token response: %w", err)
	}

	g.accessToken = tok.AccessToken
	g.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	return g.accessToken, nil
}

func (g *RequestToPayGateway) Initiate(ctx context.Context, req application.InitiateRequest) (*application.InitiateResponse, error) {
	bearer, err := g.token(ctx)
	if err != nil {
		return nil, err
	}

	referenceID := uuid.New().String()

	body := requestToPayBody{
		Amount:     req.Amount.StringFixed(2),
		Currency:   "GHS",
		ExternalId: req.Reference,
	}
	body.Payer.PartyIdType = "MSISDN"
	body.Payer.PartyId = formatMSISDN(req.Phone)
	body.PayerMessage = req.Description
	body.PayeeNote = req.Description

	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("error marshalling json: %w", err)
	}

	url := g.baseURL + "/collection/v1_0/requesttopay"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	httpReq.Header.Set("Authorization", "Bearer "+bearer)
	httpReq.Header.Set("X-Reference-Id", referenceID)
	httpReq.Header.Set("X-Target-Environment", g.targetEnv)
	httpReq.Header.Set("Ocp-Apim-Subscription-Key", g.subscriptionKey)
	httpReq.Header.Set("Content-Type", "application/json")
	if g.callbackURL != "" {
		httpReq.Header.Set("X-Callback-Url", g.callbackURL)
	}

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, &ProviderError{
			Code:       "REQUEST_REJECTED",
			Message:    strings.TrimSpace(string(respBody)),
			StatusCode: resp.StatusCode,
		}
	}

	return &application.InitiateResponse{
		ProviderHandle: referenceID,
		Status:         domain.PaymentPending,
		Message:        "payment prompt sent, awaiting customer approval",
	}, nil
}

func (g *RequestToPayGateway) CheckStatus(ctx context.Context, providerHandle string) (*application.StatusResponse, error) {
	bearer, err := g.token(ctx)
	if err != nil {
		return nil, err
	}

	url := g.baseURL + "/collection/v1_0/requesttopay/" + providerHandle
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	httpReq.Header.Set("Authorization", "Bearer "+bearer)
	httpReq.Header.Set("X-Target-Environment", g.targetEnv)
	httpReq.Header.Set("Ocp-Apim-Subscription-Key", g.subscriptionKey)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, &ProviderError{
			Code:       "STATUS_CHECK_FAILED",
			Message:    strings.TrimSpace(string(respBody)),
			StatusCode: resp.StatusCode,
		}
	}

	var status requestToPayStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("error decoding json response: %w", err)
	}

	switch strings.ToUpper(status.Status) {
	case "SUCCESSFUL":
		return &application.StatusResponse{Status: domain.PaymentPaid}, nil
	case "PENDING":
		return &application.StatusResponse{Status: domain.PaymentPending}, nil
	default:
		return &application.StatusResponse{Status: domain.PaymentFailed}, nil
	}
}
