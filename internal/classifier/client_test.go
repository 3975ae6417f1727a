package classifier

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdant-network/reward-layer/internal/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Config{Endpoint: server.URL, APIKey: "test-key"})
	require.NoError(t, err)
	return client, server
}

func TestClassifyDecodesJudgment(t *testing.T) {
	image := []byte("fake-image-bytes")

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req classifyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		decoded, err := base64.StdEncoding.DecodeString(req.Image)
		require.NoError(t, err)
		assert.Equal(t, image, decoded)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"validityFactor":0.9,"descriptionOfAnalysis":"healthy plant, natural light"}`))
	})

	result, err := client.Classify(context.Background(), image)
	require.NoError(t, err)
	assert.Equal(t, 0.9, result.ValidityFactor)
	assert.Equal(t, "healthy plant, natural light", result.DescriptionOfAnalysis)
	assert.True(t, result.Accepted())
}

func TestClassifyMissingValidityFactorIsStructuralError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"descriptionOfAnalysis":"no score here"}`))
	})

	_, err := client.Classify(context.Background(), []byte("img"))
	require.Error(t, err)

	svcErr := errors.GetServiceError(err)
	require.NotNil(t, svcErr)
	assert.Equal(t, errors.CodeClassifierError, svcErr.Code)
	assert.Equal(t, http.StatusInternalServerError, svcErr.HTTPStatus)
}

func TestClassifyNonNumericValidityFactorRejected(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"validityFactor":"0.9"}`))
	})

	_, err := client.Classify(context.Background(), []byte("img"))
	require.Error(t, err)
	assert.Equal(t, errors.CodeClassifierError, errors.GetServiceError(err).Code)
}

func TestClassifyOutOfRangeFactorRejected(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"validityFactor":1.7}`))
	})

	_, err := client.Classify(context.Background(), []byte("img"))
	require.Error(t, err)
}

func TestClassifyUpstreamFailure(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	})

	_, err := client.Classify(context.Background(), []byte("img"))
	require.Error(t, err)
	assert.Equal(t, errors.CodeClassifierError, errors.GetServiceError(err).Code)
}

func TestClassifyTransportFailure(t *testing.T) {
	client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	server.Close()

	_, err := client.Classify(context.Background(), []byte("img"))
	require.Error(t, err)
	assert.Equal(t, errors.CodeClassifierError, errors.GetServiceError(err).Code)
}

func TestClassifyEmptyPayloadRejected(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected for empty payload")
	})

	_, err := client.Classify(context.Background(), nil)
	require.Error(t, err)
}
