// Package mpesa talks to the Safaricom Daraja API for STK push charges.
package mpesa

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"hostelhunt/internal/app/policies"
	domainpayments "hostelhunt/internal/domain/payments"
)

const (
	tokenPath = "/oauth/v1/generate"
	pushPath  = "/mpesa/stkpush/v1/processrequest"
	queryPath = "/mpesa/stkpushquery/v1/query"

	transactionType = "CustomerPayBillOnline"
	// processingCode is returned by the query endpoint until the customer answers the prompt.
	processingCode = "500.001.1001"
)

type Config struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	ShortCode      string
	PassKey        string
	CallbackURL    string
	Timeout        time.Duration
}

type Client struct {
	cfg    Config
	http   *resty.Client
	logger *slog.Logger
	now    func() time.Time

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.ConsumerKey == "" || cfg.ConsumerSecret == "" || cfg.ShortCode == "" || cfg.PassKey == "" {
		return nil, policies.ErrGatewayNotConfigured
	}
	if cfg.BaseURL == "" {
		return nil, errors.New("mpesa: base url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &Client{cfg: cfg, http: httpClient, logger: logger, now: time.Now}, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

type pushRequest struct {
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

type pushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

type queryRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
}

type queryResponse struct {
	ResponseCode      string `json:"ResponseCode"`
	MerchantRequestID string `json:"MerchantRequestID"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
	ResultCode        string `json:"ResultCode"`
	ResultDesc        string `json:"ResultDesc"`
}

type errorResponse struct {
	RequestID    string `json:"requestId"`
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

func (c *Client) InitiateSTKPush(ctx context.Context, req policies.STKPushRequest) (policies.STKPushResponse, error) {
	phone, err := domainpayments.NormalizePhone(req.PhoneNumber)
	if err != nil {
		return policies.STKPushResponse{}, err
	}
	token, err := c.accessToken(ctx)
	if err != nil {
		return policies.STKPushResponse{}, err
	}
	timestamp := domainpayments.Timestamp(c.now())
	body := pushRequest{
		BusinessShortCode: c.cfg.ShortCode,
		Password:          domainpayments.Password(c.cfg.ShortCode, c.cfg.PassKey, timestamp),
		Timestamp:         timestamp,
		TransactionType:   transactionType,
		Amount:            req.Amount,
		PartyA:            phone,
		PartyB:            c.cfg.ShortCode,
		PhoneNumber:       phone,
		CallBackURL:       c.cfg.CallbackURL,
		AccountReference:  truncate(req.AccountReference, 12),
		TransactionDesc:   truncate(req.Description, 13),
	}
	var out pushResponse
	var failure errorResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetBody(body).
		SetResult(&out).
		SetError(&failure).
		Post(pushPath)
	if err != nil {
		return policies.STKPushResponse{}, fmt.Errorf("%w: %v", policies.ErrGatewayUnavailable, err)
	}
	if resp.IsError() {
		c.invalidateOn(resp.StatusCode())
		return policies.STKPushResponse{}, fmt.Errorf("%w: status %d: %s", policies.ErrGatewayUnavailable, resp.StatusCode(), describe(failure, resp))
	}
	if out.ResponseCode != "0" || out.CheckoutRequestID == "" {
		return policies.STKPushResponse{}, fmt.Errorf("%w: %s", policies.ErrGatewayUnavailable, out.ResponseDescription)
	}
	if c.logger != nil {
		c.logger.Info("stk push accepted", "checkout_request_id", out.CheckoutRequestID, "account_reference", body.AccountReference)
	}
	return policies.STKPushResponse{
		MerchantRequestID:   out.MerchantRequestID,
		CheckoutRequestID:   out.CheckoutRequestID,
		ResponseDescription: out.ResponseDescription,
		CustomerMessage:     out.CustomerMessage,
	}, nil
}

func (c *Client) QuerySTKPush(ctx context.Context, checkoutRequestID string) (domainpayments.Result, bool, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return domainpayments.Result{}, false, err
	}
	timestamp := domainpayments.Timestamp(c.now())
	var out queryResponse
	var failure errorResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetBody(queryRequest{
			BusinessShortCode: c.cfg.ShortCode,
			Password:          domainpayments.Password(c.cfg.ShortCode, c.cfg.PassKey, timestamp),
			Timestamp:         timestamp,
			CheckoutRequestID: checkoutRequestID,
		}).
		SetResult(&out).
		SetError(&failure).
		Post(queryPath)
	if err != nil {
		return domainpayments.Result{}, false, fmt.Errorf("%w: %v", policies.ErrGatewayUnavailable, err)
	}
	if resp.IsError() {
		if failure.ErrorCode == processingCode {
			return domainpayments.Result{}, true, nil
		}
		c.invalidateOn(resp.StatusCode())
		return domainpayments.Result{}, false, fmt.Errorf("%w: status %d: %s", policies.ErrGatewayUnavailable, resp.StatusCode(), describe(failure, resp))
	}
	code, err := strconv.Atoi(strings.TrimSpace(out.ResultCode))
	if err != nil {
		return domainpayments.Result{}, false, fmt.Errorf("%w: result code %q", policies.ErrGatewayUnavailable, out.ResultCode)
	}
	return domainpayments.Result{
		MerchantRequestID: out.MerchantRequestID,
		CheckoutRequestID: out.CheckoutRequestID,
		ResultCode:        code,
		ResultDesc:        out.ResultDesc,
	}, false, nil
}

// accessToken returns the cached OAuth token, fetching a new one a minute before expiry.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if c.token != "" && now.Before(c.tokenExpiry) {
		return c.token, nil
	}
	var out tokenResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBasicAuth(c.cfg.ConsumerKey, c.cfg.ConsumerSecret).
		SetQueryParam("grant_type", "client_credentials").
		SetResult(&out).
		Get(tokenPath)
	if err != nil {
		return "", fmt.Errorf("%w: token: %v", policies.ErrGatewayUnavailable, err)
	}
	if resp.IsError() || out.AccessToken == "" {
		return "", fmt.Errorf("%w: token: status %d", policies.ErrGatewayUnavailable, resp.StatusCode())
	}
	ttl := time.Hour
	if secs, err := strconv.Atoi(strings.TrimSpace(out.ExpiresIn)); err == nil && secs > 0 {
		ttl = time.Duration(secs) * time.Second
	}
	c.token = out.AccessToken
	c.tokenExpiry = now.Add(ttl - time.Minute)
	return c.token, nil
}

func (c *Client) invalidateOn(status int) {
	if status != 401 {
		return
	}
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

func describe(failure errorResponse, resp *resty.Response) string {
	if failure.ErrorMessage != "" {
		return failure.ErrorCode + " " + failure.ErrorMessage
	}
	return strings.TrimSpace(resp.String())
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n]
}

var _ policies.PaymentGateway = (*Client)(nil)
