package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// VerifyPaymentSignature checks the signature Razorpay returns after a
// successful payment. The signed message is "<order_id>|<payment_id>" and the
// comparison is constant time.
func VerifyPaymentSignature(orderID, paymentID, signature, secret string) bool {
	if orderID == "" || paymentID == "" || signature == "" || secret == "" {
		return false
	}
	return verifyHMAC(orderID+"|"+paymentID, signature, secret)
}

// VerifyWebhookSignature checks the X-Razorpay-Signature header against the
// raw webhook body.
func VerifyWebhookSignature(body []byte, signature, secret string) bool {
	if len(body) == 0 || signature == "" || secret == "" {
		return false
	}
	return verifyHMACBytes(body, signature, secret)
}

func verifyHMAC(message, signature, secret string) bool {
	return verifyHMACBytes([]byte(message), signature, secret)
}

func verifyHMACBytes(message []byte, signature, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(message)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
