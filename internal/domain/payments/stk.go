package payments

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidPhone    = errors.New("payments: invalid phone number")
	ErrInvalidCallback = errors.New("payments: malformed gateway callback")
)

// TimestampLayout is the gateway's YYYYMMDDHHMMSS format.
const TimestampLayout = "20060102150405"

// GatewayZone is the gateway's local time (EAT).
var GatewayZone = time.FixedZone("EAT", 3*60*60)

// NormalizePhone converts local and international forms to 254XXXXXXXXX.
func NormalizePhone(raw string) (string, error) {
	phone := strings.TrimSpace(raw)
	phone = strings.ReplaceAll(phone, " ", "")
	phone = strings.ReplaceAll(phone, "-", "")
	phone = strings.TrimPrefix(phone, "+")
	switch {
	case strings.HasPrefix(phone, "254"):
	case strings.HasPrefix(phone, "0"):
		phone = "254" + phone[1:]
	default:
		phone = "254" + phone
	}
	if len(phone) != 12 {
		return "", ErrInvalidPhone
	}
	for _, r := range phone {
		if r < '0' || r > '9' {
			return "", ErrInvalidPhone
		}
	}
	return phone, nil
}

// Timestamp formats t in the gateway's zone.
func Timestamp(t time.Time) string {
	return t.In(GatewayZone).Format(TimestampLayout)
}

// Password derives the STK push password: base64(shortcode + passkey + timestamp).
func Password(shortcode, passkey, timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(shortcode + passkey + timestamp))
}

// Result is a settled gateway outcome, from a callback or a status query.
// Amount is in whole currency units; zero means the gateway did not report it.
type Result struct {
	MerchantRequestID string
	CheckoutRequestID string
	ResultCode        int
	ResultDesc        string
	Amount            int64
	ReceiptNumber     string
	TransactionDate   time.Time
	PhoneNumber       string
}

type callbackEnvelope struct {
	Body struct {
		StkCallback *struct {
			MerchantRequestID string          `json:"MerchantRequestID"`
			CheckoutRequestID string          `json:"CheckoutRequestID"`
			ResultCode        json.RawMessage `json:"ResultCode"`
			ResultDesc        string          `json:"ResultDesc"`
			CallbackMetadata  *struct {
				Item []struct {
					Name  string          `json:"Name"`
					Value json.RawMessage `json:"Value"`
				} `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

// ParseCallback decodes the STK callback body.
func ParseCallback(data []byte) (Result, error) {
	var env callbackEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Result{}, errors.Join(ErrInvalidCallback, err)
	}
	cb := env.Body.StkCallback
	if cb == nil || cb.CheckoutRequestID == "" {
		return Result{}, ErrInvalidCallback
	}
	code, err := rawInt(cb.ResultCode)
	if err != nil {
		return Result{}, errors.Join(ErrInvalidCallback, err)
	}
	result := Result{
		MerchantRequestID: cb.MerchantRequestID,
		CheckoutRequestID: cb.CheckoutRequestID,
		ResultCode:        int(code),
		ResultDesc:        cb.ResultDesc,
	}
	if cb.CallbackMetadata == nil {
		return result, nil
	}
	for _, item := range cb.CallbackMetadata.Item {
		switch item.Name {
		case "Amount":
			amount, err := rawFloat(item.Value)
			if err == nil {
				result.Amount = int64(math.Ceil(amount))
			}
		case "MpesaReceiptNumber":
			result.ReceiptNumber = rawString(item.Value)
		case "TransactionDate":
			if ts, err := time.ParseInLocation(TimestampLayout, rawString(item.Value), GatewayZone); err == nil {
				result.TransactionDate = ts.UTC()
			}
		case "PhoneNumber":
			result.PhoneNumber = rawString(item.Value)
		}
	}
	return result, nil
}

func rawString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return strings.Trim(string(raw), `"`)
}

func rawFloat(raw json.RawMessage) (float64, error) {
	return strconv.ParseFloat(rawString(raw), 64)
}

func rawInt(raw json.RawMessage) (int64, error) {
	return strconv.ParseInt(rawString(raw), 10, 64)
}
