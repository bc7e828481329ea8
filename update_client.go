package linktap

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/linktap/go-linktap-sdk/api"
	"github.com/linktap/go-linktap-sdk/util"
)

// UpdateClient pushes field changes for a gateway or tap linker back to the
// LinkTap API.
type UpdateClient struct {
	accessToken string
	cfg         *HTTPConfiguration
}

func NewUpdateClient(accessToken string, options *Options) (*UpdateClient, error) {
	if accessToken == "" {
		return nil, ErrMissingAccessToken
	}
	if options == nil {
		options = &Options{}
	}
	options.CheckDefaults()
	return &UpdateClient{
		accessToken: accessToken,
		cfg:         NewConfiguration(options),
	}, nil
}

func (u *UpdateClient) updateURL(request *api.UpdateRequest) string {
	return strings.TrimSuffix(u.cfg.BasePath, "/") + "/" + strings.TrimPrefix(request.UpdatePath(), "/")
}

// Send PUTs the request's values as a JSON object.
func (u *UpdateClient) Send(ctx context.Context, request *api.UpdateRequest) error {
	if len(request.Values()) == 0 {
		return fmt.Errorf("update for %s has no values", request.UpdatePath())
	}
	body, err := util.Encode(request.Values(), nil)
	if err != nil {
		return err
	}

	target := u.updateURL(request)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target, bytes.NewReader(body))
	if err != nil {
		return err
	}
	for k, v := range u.cfg.DefaultHeader {
		req.Header.Set(k, v)
	}
	req.Header.Set("Authorization", "Bearer "+u.accessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", u.cfg.UserAgent)

	resp, err := u.cfg.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		util.Debugf("Update sent to %s", target)
		return nil
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return fmt.Errorf("%w: %s returned %s: %s", ErrUpdateRejected, target, resp.Status, strings.TrimSpace(string(raw)))
}
