package controllers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckoutValidationReportsFields(t *testing.T) {
	mockService := new(MockOrderService)
	payload := `{"currency":"us1","items":[{"sku":"BOOK-1","title":"Story","quantity":0,"unitAmountCents":100}]}`

	recorder := doRequest(t, setupOrderRouter(mockService), http.MethodPost, "/orders/checkout", payload, actorHeaders(customer))

	require.Equal(t, http.StatusBadRequest, recorder.Code)
	var body struct {
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	assert.Equal(t, "currency", body.Fields["Currency"])
	assert.Equal(t, "required", body.Fields["Items[0].Quantity"])
	mockService.AssertNotCalled(t, "Checkout")
}

func TestMalformedJSONReportsDetails(t *testing.T) {
	mockService := new(MockOrderService)
	recorder := doRequest(t, setupOrderRouter(mockService), http.MethodPost, "/orders/checkout", `{"items":`, actorHeaders(customer))

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"details"`)
}

func TestCheckoutValidationRejectsAmountsAboveLimits(t *testing.T) {
	mockService := new(MockOrderService)
	payload := `{"shippingAmountCents":100000001,"items":[{"sku":"BOOK-1","title":"Story","quantity":1001,"unitAmountCents":4611686018427387905}]}`

	recorder := doRequest(t, setupOrderRouter(mockService), http.MethodPost, "/orders/checkout", payload, actorHeaders(customer))

	require.Equal(t, http.StatusBadRequest, recorder.Code)
	var body struct {
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	assert.Equal(t, "max", body.Fields["ShippingAmountCents"])
	assert.Equal(t, "max", body.Fields["Items[0].Quantity"])
	assert.Equal(t, "max", body.Fields["Items[0].UnitAmountCents"])
	mockService.AssertNotCalled(t, "Checkout")
}
