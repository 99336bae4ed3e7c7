package payments

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePhone(t *testing.T) {
	cases := map[string]string{
		"0712345678":    "254712345678",
		"+254712345678": "254712345678",
		"254712345678":  "254712345678",
		"712345678":     "254712345678",
		"0712 345-678":  "254712345678",
	}
	for in, want := range cases {
		got, err := NormalizePhone(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, bad := range []string{"", "07123", "07123456789999", "07abc45678"} {
		_, err := NormalizePhone(bad)
		assert.ErrorIs(t, err, ErrInvalidPhone, bad)
	}
}

func TestPasswordDerivation(t *testing.T) {
	ts := Timestamp(time.Date(2024, 3, 5, 7, 4, 5, 0, time.UTC))
	assert.Equal(t, "20240305100405", ts)

	pw := Password("174379", "passkey", ts)
	raw, err := base64.StdEncoding.DecodeString(pw)
	require.NoError(t, err)
	assert.Equal(t, "174379passkey20240305100405", string(raw))
}

func TestParseCallbackSuccess(t *testing.T) {
	body := []byte(`{
		"Body": {
			"stkCallback": {
				"MerchantRequestID": "29115-34620561-1",
				"CheckoutRequestID": "ws_CO_191220191020363925",
				"ResultCode": 0,
				"ResultDesc": "The service request is processed successfully.",
				"CallbackMetadata": {
					"Item": [
						{"Name": "Amount", "Value": 1.00},
						{"Name": "MpesaReceiptNumber", "Value": "NLJ7RT61SV"},
						{"Name": "TransactionDate", "Value": 20191219102115},
						{"Name": "PhoneNumber", "Value": 254708374149}
					]
				}
			}
		}
	}`)
	result, err := ParseCallback(body)
	require.NoError(t, err)
	assert.Equal(t, "ws_CO_191220191020363925", result.CheckoutRequestID)
	assert.Equal(t, 0, result.ResultCode)
	assert.Equal(t, int64(1), result.Amount)
	assert.Equal(t, "NLJ7RT61SV", result.ReceiptNumber)
	assert.Equal(t, "254708374149", result.PhoneNumber)
	assert.Equal(t, time.Date(2019, 12, 19, 7, 21, 15, 0, time.UTC), result.TransactionDate)
}

func TestParseCallbackFailure(t *testing.T) {
	body := []byte(`{"Body":{"stkCallback":{"MerchantRequestID":"m","CheckoutRequestID":"c","ResultCode":1032,"ResultDesc":"Request cancelled by user"}}}`)
	result, err := ParseCallback(body)
	require.NoError(t, err)
	assert.Equal(t, 1032, result.ResultCode)
	assert.Zero(t, result.Amount)

	_, err = ParseCallback([]byte(`{"Body":{}}`))
	assert.ErrorIs(t, err, ErrInvalidCallback)
	_, err = ParseCallback([]byte(`not json`))
	assert.ErrorIs(t, err, ErrInvalidCallback)
}
