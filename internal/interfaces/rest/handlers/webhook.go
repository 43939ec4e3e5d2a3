package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/josephasare/virtual-card-service/internal/application/services"
	"github.com/josephasare/virtual-card-service/internal/interfaces/rest"
)

// webhookPayload covers the callback shapes of all three provider bindings.
// Field casing differs per provider, so every spelling is tried.
type webhookPayload struct {
	ResponseCode    string `json:"ResponseCode"`
	ResponseCodeLC  string `json:"responseCode"`
	Status          string `json:"status"`
	ClientReference string `json:"ClientReference"`
	ExternalID      string `json:"externalId"`
	Data            struct {
		ClientReference   string `json:"ClientReference"`
		ClientReferenceLC string `json:"clientReference"`
		TransactionStatus string `json:"transactionStatus"`
	} `json:"Data"`
}

func (p *webhookPayload) reference() string {
	for _, ref := range []string{
		p.Data.ClientReference,
		p.Data.ClientReferenceLC,
		p.ClientReference,
		p.ExternalID,
	} {
		if ref != "" {
			return ref
		}
	}
	return ""
}

func (p *webhookPayload) succeeded() bool {
	if p.ResponseCode == "0000" || p.ResponseCodeLC == "0000" {
		return true
	}
	switch strings.ToUpper(p.Status) {
	case "SUCCESSFUL", "SUCCESS", "PAID":
		return true
	}
	switch strings.ToLower(p.Data.TransactionStatus) {
	case "success", "paid":
		return true
	}
	return false
}

// PaymentWebhook applies a provider callback. It always acknowledges with
// 200: providers retry on any other status, and a malformed or unknown
// callback will not become valid by being resent.
func (h *Handlers) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	var payload webhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.logger.Error("unparseable webhook body", "error", err)
		rest.WriteJSON(w, http.StatusOK, map[string]string{"received": "true"})
		return
	}

	reference := payload.reference()
	if reference == "" {
		h.logger.Error("webhook missing payment reference")
		rest.WriteJSON(w, http.StatusOK, map[string]string{"received": "true"})
		return
	}

	// Errors are logged inside the service; the provider still gets its ack.
	_ = h.lifecycle.HandleWebhook(r.Context(), services.WebhookCommand{
		Reference: reference,
		Succeeded: payload.succeeded(),
	})

	rest.WriteJSON(w, http.StatusOK, map[string]string{"received": "true"})
}
