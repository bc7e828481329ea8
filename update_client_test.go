package linktap

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/require"

	"github.com/linktap/go-linktap-sdk/api"
)

func TestUpdateClient_Send(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	var body map[string]interface{}
	httpmock.RegisterResponder("PUT", "https://www.link-tap.com/api/v1/taplinkers/TL01",
		func(req *http.Request) (*http.Response, error) {
			require.Equal(t, "Bearer "+test_accessToken, req.Header.Get("Authorization"))
			require.Equal(t, "application/json", req.Header.Get("Content-Type"))
			raw, err := io.ReadAll(req.Body)
			if err != nil {
				return nil, err
			}
			if err := json.Unmarshal(raw, &body); err != nil {
				return nil, err
			}
			return httpmock.NewStringResponse(http.StatusOK, `{"result":"ok"}`), nil
		},
	)

	client, err := NewUpdateClient(test_accessToken, &Options{})
	require.NoError(t, err)

	request := api.NewUpdateRequestBuilder().
		WithBasePath("/taplinkers/").
		WithIdentifier("TL01").
		WithAdditionalValue("watering", true).
		WithAdditionalValue("duration", 15).
		Build()
	require.NoError(t, client.Send(context.Background(), request))

	require.Equal(t, true, body["watering"])
	require.Equal(t, float64(15), body["duration"])
}

func TestUpdateClient_SendRejected(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()
	httpmock.RegisterResponder("PUT", "https://www.link-tap.com/api/v1/taplinkers/TL01",
		httpmock.NewStringResponder(http.StatusBadRequest, `{"message":"device offline"}`))

	client, err := NewUpdateClient(test_accessToken, nil)
	require.NoError(t, err)

	request := api.NewUpdateRequestBuilder().
		WithBasePath("taplinkers/").
		WithIdentifier("TL01").
		WithAdditionalValue("watering", false).
		Build()
	err = client.Send(context.Background(), request)
	require.ErrorIs(t, err, ErrUpdateRejected)
	require.Contains(t, err.Error(), "device offline")
}

func TestUpdateClient_SendWithoutValues(t *testing.T) {
	client, err := NewUpdateClient(test_accessToken, nil)
	require.NoError(t, err)

	request := api.NewUpdateRequestBuilder().WithBasePath("/taplinkers/").WithIdentifier("TL01").Build()
	require.Error(t, client.Send(context.Background(), request))
}

func TestNewUpdateClient_MissingAccessToken(t *testing.T) {
	_, err := NewUpdateClient("", nil)
	require.ErrorIs(t, err, ErrMissingAccessToken)
}
