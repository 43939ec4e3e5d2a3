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

// DirectDebitGateway charges the student's wallet directly through a
// merchant-account receive endpoint. The provider answers synchronously
// with a response code: "0000" means the charge settled, "0001" means the
// customer still has to approve the prompt on their phone.
type DirectDebitGateway struct {
	baseURL      string
	merchantID   string
	clientID     string
	clientSecret string
	callbackURL  string
	httpClient   *http.Client
}

func NewDirectDebitGateway(cfg config.ProviderConfig, httpClient *http.Client) *DirectDebitGateway {
	return &DirectDebitGateway{
		baseURL:      strings.TrimSuffix(cfg.BaseURL, "/"),
		merchantID:   cfg.MerchantID,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		callbackURL:  cfg.CallbackURL,
		httpClient:   httpClient,
	}
}

func (g *DirectDebitGateway) Name() string { return "momo-direct" }

type directDebitRequest struct {
	CustomerName       string  `json:"CustomerName"`
	CustomerMsisdn     string  `json:"CustomerMsisdn"`
	CustomerEmail      string  `json:"CustomerEmail"`
	Channel            string  `json:"Channel"`
	Amount             float64 `json:"Amount"`
	PrimaryCallbackUrl string  `json:"PrimaryCallbackUrl"`
	Description        string  `json:"Description"`
	ClientReference    string  `json:"ClientReference"`
}

type directDebitResponse struct {
	ResponseCode string `json:"ResponseCode"`
	Message      string `json:"Message"`
	Data         struct {
		TransactionId string  `json:"TransactionId"`
		Amount        float64 `json:"Amount"`
		Charges       float64 `json:"Charges"`
		Status        string  `json:"Status"`
	} `json:"Data"`
}

func (g *DirectDebitGateway) Initiate(ctx context.Context, req application.InitiateRequest) (*application.InitiateResponse, error) {
	msisdn := formatMSISDN(req.Phone)

	body := directDebitRequest{
		CustomerName:       req.CustomerName,
		CustomerMsisdn:     msisdn,
		CustomerEmail:      req.CustomerEmail,
		Channel:            channelFor(msisdn),
		Amount:             req.Amount.InexactFloat64(),
		PrimaryCallbackUrl: g.callbackURL,
		Description:        req.Description,
		ClientReference:    req.Reference,
	}

	url := fmt.Sprintf("%s/merchants/%s/receive/mobilemoney", g.baseURL, g.merchantID)
	var resp directDebitResponse
	if err := g.send(ctx, http.MethodPost, url, &body, &resp); err != nil {
		return nil, err
	}

	switch resp.ResponseCode {
	case "0000":
		return &application.InitiateResponse{
			ProviderHandle: resp.Data.TransactionId,
			Status:         domain.PaymentPaid,
			Message:        resp.Message,
		}, nil
	case "0001":
		return &application.InitiateResponse{
			ProviderHandle: resp.Data.TransactionId,
			Status:         domain.PaymentPending,
			Message:        resp.Message,
		}, nil
	default:
		return nil, &ProviderError{
			Code:       resp.ResponseCode,
			Message:    resp.Message,
			StatusCode: http.StatusOK,
		}
	}
}

func (g *DirectDebitGateway) CheckStatus(ctx context.Context, providerHandle string) (*application.StatusResponse, error) {
	url := fmt.Sprintf("%s/merchants/%s/transactions/%s", g.baseURL, g.merchantID, providerHandle)
	var resp directDebitResponse
	if err := g.send(ctx, http.MethodGet, url, nil, &resp); err != nil {
		return nil, err
	}

	if resp.ResponseCode != "0000" {
		return &application.StatusResponse{Status: domain.PaymentFailed}, nil
	}

	switch strings.ToLower(resp.Data.Status) {
	case "success", "paid":
		return &application.StatusResponse{Status: domain.PaymentPaid}, nil
	case "pending":
		return &application.StatusResponse{Status: domain.PaymentPending}, nil
	default:
		return &application.StatusResponse{Status: domain.PaymentFailed}, nil
	}
}

func (g *DirectDebitGateway) send(ctx context.Context, method, url string, reqBody, out any) error {
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
		body, _ := io.ReadAll(resp.Body)
		var errResp directDebitResponse
		if err := json.Unmarshal(body, &errResp); err != nil {
			return fmt.Errorf("provider returned status %d: %s", resp.StatusCode, string(body))
		}
		return &ProviderError{
			Code:       errResp.ResponseCode,
			Message:    errResp.Message,
			StatusCode: resp.StatusCode,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("error decoding json response: %w", err)
	}
	return nil
}

// channelFor picks the network channel from the MSISDN prefix. MTN prefixes
// route to the MTN channel, everything else to the Vodafone one.
func channelFor(msisdn string) string {
	for _, prefix := range []string{"23324", "23325", "23354", "23355", "23359"} {
		if strings.HasPrefix(msisdn, prefix) {
			return "mtn-gh-direct-debit"
		}
	}
	return "vodafone-gh-direct-debit"
}
