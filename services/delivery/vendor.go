package delivery

import (
	"context"
	"fmt"

	"campaignhub/pkg/config"
	"campaignhub/pkg/errutil"

	"github.com/go-resty/resty/v2"
)

// Vendor sends one personalized message and reports only whether the
// hand-off was accepted. The actual delivery outcome arrives later
// through the receipt endpoint.
type Vendor interface {
	Send(ctx context.Context, logID, message string) error
}

type sendRequest struct {
	LogID   string `json:"logId"`
	Message string `json:"message"`
}

// HTTPVendor hands messages to the vendor API over HTTP.
type HTTPVendor struct {
	client *resty.Client
	url    string
}

func NewHTTPVendor(cfg *config.Config) *HTTPVendor {
	client := resty.New().
		SetTimeout(cfg.Vendor.Timeout).
		SetHeader("Content-Type", "application/json")

	return &HTTPVendor{client: client, url: cfg.Vendor.URL}
}

func (v *HTTPVendor) Send(ctx context.Context, logID, message string) error {
	resp, err := v.client.R().
		SetContext(ctx).
		SetBody(sendRequest{LogID: logID, Message: message}).
		Post(v.url)
	if err != nil {
		return errutil.Unavailable("vendor unreachable", errutil.WithErr(err))
	}

	switch {
	case resp.StatusCode() >= 500:
		return errutil.BadGateway(fmt.Sprintf("vendor returned %d", resp.StatusCode()))
	case resp.StatusCode() >= 400:
		return errutil.UnprocessableEntity(fmt.Sprintf("vendor rejected message with %d", resp.StatusCode()))
	}
	return nil
}
