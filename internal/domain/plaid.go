/**
 * @description
 * This file defines the Go structs that map to the Plaid API payloads the
 * service exchanges during bank-account linkage and liability retrieval.
 * Field names follow Plaid's snake_case wire format (API version 2020-09-14).
 *
 * @notes
 * - Only the subset of Plaid's schema the service actually touches is
 *   modeled; liability payloads are kept as raw maps and passed through to
 *   admin callers untouched.
 */
package domain

// --- Link Token Creation ---

// PlaidLinkTokenUser identifies the end user a link token is created for.
type PlaidLinkTokenUser struct {
	ClientUserID string `json:"client_user_id"`
}

// PlaidLinkTokenCreateRequest is the body of /link/token/create.
type PlaidLinkTokenCreateRequest struct {
	ClientID     string             `json:"client_id"`
	Secret       string             `json:"secret"`
	User         PlaidLinkTokenUser `json:"user"`
	ClientName   string             `json:"client_name"`
	Products     []string           `json:"products"`
	CountryCodes []string           `json:"country_codes"`
	Language     string             `json:"language"`
}

// PlaidLinkTokenCreateResponse is the body returned by /link/token/create.
type PlaidLinkTokenCreateResponse struct {
	LinkToken  string `json:"link_token"`
	Expiration string `json:"expiration"`
	RequestID  string `json:"request_id"`
}

// --- Public Token Exchange ---

// PlaidPublicTokenExchangeRequest is the body of /item/public_token/exchange.
type PlaidPublicTokenExchangeRequest struct {
	ClientID    string `json:"client_id"`
	Secret      string `json:"secret"`
	PublicToken string `json:"public_token"`
}

// PlaidPublicTokenExchangeResponse carries the credentials stored on the
// user record. Their presence is what gates the incomplete->pending
// auto-transition.
type PlaidPublicTokenExchangeResponse struct {
	AccessToken string `json:"access_token"`
	ItemID      string `json:"item_id"`
	RequestID   string `json:"request_id"`
}

// --- Liabilities ---

// PlaidLiabilitiesGetRequest is the body of /liabilities/get.
type PlaidLiabilitiesGetRequest struct {
	ClientID    string `json:"client_id"`
	Secret      string `json:"secret"`
	AccessToken string `json:"access_token"`
}

// PlaidLiabilitiesGetResponse is returned by /liabilities/get. Accounts and
// liabilities are passed through to the admin caller without reshaping.
type PlaidLiabilitiesGetResponse struct {
	Accounts    []map[string]interface{} `json:"accounts"`
	Liabilities map[string]interface{}   `json:"liabilities"`
	RequestID   string                   `json:"request_id"`
}
