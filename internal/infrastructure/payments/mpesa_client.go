package payments

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/edurotich/smartplanner/domain"
)

// MpesaClient implements domain.PaymentGateway against the Safaricom
// Daraja API: a client-credentials OAuth exchange followed by an STK
// push request. The callback side of the protocol is handled by the
// HTTP layer; this client only initiates.
type MpesaClient struct {
	httpClient     *http.Client
	baseURL        string
	consumerKey    string
	consumerSecret string
	shortcode      string
	passkey        string
	callbackURL    string
}

// Config holds the Daraja credentials and endpoints
type Config struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	Shortcode      string
	Passkey        string
	CallbackURL    string
	Timeout        time.Duration
}

// NewMpesaClient creates a new Daraja STK push client
func NewMpesaClient(cfg Config) *MpesaClient {
	return &MpesaClient{
		httpClient:     &http.Client{Timeout: cfg.Timeout},
		baseURL:        cfg.BaseURL,
		consumerKey:    cfg.ConsumerKey,
		consumerSecret: cfg.ConsumerSecret,
		shortcode:      cfg.Shortcode,
		passkey:        cfg.Passkey,
		callbackURL:    cfg.CallbackURL,
	}
}

type accessTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

type stkPushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

type stkPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

// InitiateSTKPush implements domain.PaymentGateway
func (c *MpesaClient) InitiateSTKPush(ctx context.Context, phone string, amountKES int64, accountRef string) (*domain.STKPushResponse, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("mpesa auth: %w", err)
	}

	password, timestamp := c.password(time.Now())
	reqBody := stkPushRequest{
		BusinessShortCode: c.shortcode,
		Password:          password,
		Timestamp:         timestamp,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            amountKES,
		PartyA:            phone,
		PartyB:            c.shortcode,
		PhoneNumber:       phone,
		CallBackURL:       c.callbackURL,
		AccountReference:  accountRef,
		TransactionDesc:   "SmartPlanner token top-up",
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal stk push request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/mpesa/stkpush/v1/processrequest", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stk push request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read stk push response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d: %s", domain.ErrGatewayRejected, resp.StatusCode, body)
	}

	var parsed stkPushResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse stk push response: %w", err)
	}
	if parsed.ResponseCode != "0" {
		return nil, fmt.Errorf("%w: %s", domain.ErrGatewayRejected, parsed.ResponseDescription)
	}

	return &domain.STKPushResponse{
		MerchantRequestID:   parsed.MerchantRequestID,
		CheckoutRequestID:   parsed.CheckoutRequestID,
		ResponseCode:        parsed.ResponseCode,
		ResponseDescription: parsed.ResponseDescription,
		CustomerMessage:     parsed.CustomerMessage,
	}, nil
}

func (c *MpesaClient) accessToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/oauth/v1/generate?grant_type=client_credentials", nil)
	if err != nil {
		return "", err
	}
	auth := base64.StdEncoding.EncodeToString([]byte(c.consumerKey + ":" + c.consumerSecret))
	req.Header.Set("Authorization", "Basic "+auth)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("token endpoint status %d: %s", resp.StatusCode, body)
	}

	var parsed accessTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("parse token response: %w", err)
	}
	if parsed.AccessToken == "" {
		return "", fmt.Errorf("token response missing access_token")
	}
	return parsed.AccessToken, nil
}

// password derives the Daraja request password:
// base64(shortcode + passkey + yyyyMMddHHmmss)
func (c *MpesaClient) password(now time.Time) (string, string) {
	timestamp := now.Format("20060102150405")
	password := base64.StdEncoding.EncodeToString([]byte(c.shortcode + c.passkey + timestamp))
	return password, timestamp
}

var _ domain.PaymentGateway = (*MpesaClient)(nil)
