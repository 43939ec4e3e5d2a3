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

	"github.com/josephasare/virtual-card-service/internal/application"
	"github.com/josephasare/virtual-card-service/internal/config"
	"github.com/josephasare/virtual-card-service/internal/domain"
)

// CheckoutGateway creates a hosted checkout session and hands the student a
// redirect URL. Payment always starts out pending; the outcome comes back via
// the callback or a status poll against the session.
type CheckoutGateway struct {
	baseURL      string
	merchantID   string
	clientID     string
	clientSecret string
	callbackURL  string
	httpClient   *http.Client
}

func NewCheckoutGateway(cfg config.ProviderConfig, httpClient *http.Client) *CheckoutGateway {
	return &CheckoutGateway{
		baseURL:      strings.TrimSuffix(cfg.BaseURL, "/"),
		merchantID:   cfg.MerchantID,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		callbackURL:  cfg.CallbackURL,
		httpClient:   httpClient,
	}
}

func (g *CheckoutGateway) Name() string { return "checkout" }

type checkoutRequest struct {
	TotalAmount     float64 `json:"totalAmount"`
	Description     string  `json:"description"`
	CallbackUrl     string  `json:"callbackUrl"`
	ReturnUrl       string  `json:"returnUrl"`
	MerchantAccount string  `json:"merchantAccountNumber"`
	ClientReference string  `json:"clientReference"`
	CustomerName    string  `json:"customerName"`
	CustomerMsisdn  string  `json:"customerMsisdn"`
	CustomerEmail   string  `json:"customerEmail"`
}

type checkoutResponse struct {
	ResponseCode string `json:"responseCode"`
	Status       string `json:"status"`
	Message      string `json:"message"`
	Data         struct {
		CheckoutUrl       string `json:"checkoutUrl"`
		CheckoutId        string `json:"checkoutId"`
		ClientReference   string `json:"clientReference"`
		TransactionStatus string `json:"transactionStatus"`
	} `json:"data"`
}

func (g *CheckoutGateway) Initiate(ctx context.Context, req application.InitiateRequest) (*application.InitiateResponse, error) {
	body := checkoutRequest{
		TotalAmount:     req.Amount.InexactFloat64(),
		Description:     req.Description,
		CallbackUrl:     g.callbackURL,
		ReturnUrl:       g.callbackURL,
		MerchantAccount: g.merchantID,
		ClientReference: req.Reference,
		CustomerName:    req.CustomerName,
		CustomerMsisdn:  formatMSISDN(req.Phone),
		CustomerEmail:   req.CustomerEmail,
	}

	var resp checkoutResponse
	if err := g.send(ctx, http.MethodPost, g.baseURL+"/items/initiate", &body, &resp); err != nil {
		return nil, err
	}

	if resp.ResponseCode != "0000" {
		return nil, &ProviderError{
			Code:       resp.ResponseCode,
			Message:    resp.Message,
			StatusCode: http.StatusOK,
		}
	}

	return &application.InitiateResponse{
		ProviderHandle: resp.Data.CheckoutId,
		Status:         domain.PaymentPending,
		Message:        resp.Data.CheckoutUrl,
	}, nil
}

func (g *CheckoutGateway) CheckStatus(ctx context.Context, providerHandle string) (*application.StatusResponse, error) {
	url := g.baseURL + "/items/" + providerHandle + "/status"
	var resp checkoutResponse
	if err := g.send(ctx, http.MethodGet, url, nil, &resp); err != nil {
		return nil, err
	}

	switch strings.ToLower(resp.Data.TransactionStatus) {
	case "success", "paid":
		return &application.StatusResponse{Status: domain.PaymentPaid}, nil
	case "pending", "unpaid":
		return &application.StatusResponse{Status: domain.PaymentPending}, nil
	default:
		return &application.StatusResponse{Status: domain.PaymentFailed}, nil
	}
}

func (g *CheckoutGateway) send(ctx context.Context, method, url string, reqBody, out any) error {
	var bodyReader io.Reader
	if reqBody != nil {
		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("error marshalling json: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}

	auth := base64.StdEncoding.EncodeToString([]byte(g.clientID + ":" + g.clientSecret))
	httpReq.Header.Set("Authorization", "Basic "+auth)
	httpReq.Header.Set("Accept", "application/json")
	if reqBody != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return &ProviderError{
			Code:       fmt.Sprintf("HTTP_%d", resp.StatusCode),
			Message:    strings.TrimSpace(string(respBody)),
			StatusCode: resp.StatusCode,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("error decoding json response: %w", err)
	}
	return nil
}
