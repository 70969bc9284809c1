// Package razorpay adapts the Razorpay SDK to the payment.Gateway interface.
package razorpay

import (
	"context"

	"github.com/go-faster/errors"
	razorpay "github.com/razorpay/razorpay-go"

	"github.com/CycleBees/Cyclebeesprodcution-sub001/internal/domain/payment"
)

var _ payment.Gateway = (*Client)(nil)

// Client wraps the Razorpay SDK client.
type Client struct {
	rz *razorpay.Client
}

// New creates a gateway client with the given API credentials.
func New(keyID, keySecret string) *Client {
	return &Client{rz: razorpay.NewClient(keyID, keySecret)}
}

// CreateOrder opens a Razorpay order for the given amount in minor units.
// The SDK call itself does not take a context, so it runs in a goroutine and
// the select honours cancellation; an order that lands at the gateway after
// a timeout is harmless, the caller simply retries and gets a fresh one.
func (c *Client) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string, notes map[string]string) (string, error) {
	type result struct {
		id  string
		err error
	}
	ch := make(chan result, 1)

	go func() {
		data := map[string]interface{}{
			"amount":   amountMinor,
			"currency": currency,
			"receipt":  receipt,
		}
		if len(notes) > 0 {
			noteMap := make(map[string]interface{}, len(notes))
			for k, v := range notes {
				noteMap[k] = v
			}
			data["notes"] = noteMap
		}

		body, err := c.rz.Order.Create(data, nil)
		if err != nil {
			ch <- result{err: errors.Wrap(err, "razorpay order create")}
			return
		}
		id, _ := body["id"].(string)
		if id == "" {
			ch <- result{err: errors.New("razorpay response missing order id")}
			return
		}
		ch <- result{id: id}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		return res.id, res.err
	}
}
