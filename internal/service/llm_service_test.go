package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/NurlanOmarov/eMedosmotr-AI/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

// newEmbeddingTestService wires an LLMService whose REST calls go through
// the given transport, with an already expired token.
func newEmbeddingTestService(rt http.RoundTripper) *LLMService {
	return &LLMService{
		config: &config.GigaChatConfig{
			Model:          "GigaChat",
			EmbeddingModel: "Embeddings",
			Scope:          "GIGACHAT_API_PERS",
		},
		ragConfig:   &config.RAGConfig{LLMMaxRetries: 2},
		cache:       noopCache{},
		logger:      zap.NewNop(),
		httpClient:  &http.Client{Transport: rt},
		baseURL:     "https://gigachat.test/api/v1",
		accessToken: "stale-token",
	}
}

// expiringTokenTransport answers the OAuth endpoint with a fresh token and
// rejects embedding requests that still carry any other one.
func expiringTokenTransport(oauthCalls *atomic.Int32) roundTripFunc {
	return func(r *http.Request) (*http.Response, error) {
		if strings.Contains(r.URL.Path, "/oauth") {
			oauthCalls.Add(1)
			return jsonResponse(http.StatusOK, `{"access_token":"fresh-token","expires_in":1800}`), nil
		}
		if r.Header.Get("Authorization") != "Bearer fresh-token" {
			return jsonResponse(http.StatusUnauthorized, `{"message":"Token has expired"}`), nil
		}
		return jsonResponse(http.StatusOK, `{"data":[{"embedding":[0.1,0.2],"index":0}]}`), nil
	}
}

func TestCreateEmbeddingRefreshesExpiredToken(t *testing.T) {
	var oauthCalls atomic.Int32
	svc := newEmbeddingTestService(expiringTokenTransport(&oauthCalls))

	embedding, err := svc.CreateEmbedding(context.Background(), "хронический гастрит")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2}, embedding)
	assert.Equal(t, int32(1), oauthCalls.Load())
	assert.Equal(t, "fresh-token", svc.currentToken())
}

func TestConcurrentEmbeddingsShareOneTokenRefresh(t *testing.T) {
	var oauthCalls atomic.Int32
	svc := newEmbeddingTestService(expiringTokenTransport(&oauthCalls))

	const workers = 8
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.CreateEmbedding(context.Background(), fmt.Sprintf("диагноз %d", i))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), oauthCalls.Load())
}

func TestRefreshTokenSkipsWhenAlreadyReplaced(t *testing.T) {
	var oauthCalls atomic.Int32
	svc := newEmbeddingTestService(expiringTokenTransport(&oauthCalls))
	svc.accessToken = "fresh-token"

	// The caller saw a token that is no longer current, so no OAuth
	// round-trip happens.
	require.NoError(t, svc.refreshToken(context.Background(), "stale-token"))
	assert.Equal(t, int32(0), oauthCalls.Load())
	assert.Equal(t, "fresh-token", svc.currentToken())
}

func TestParseJudgeResponse(t *testing.T) {
	result, err := parseJudgeResponse(`{"selected": 2, "confidence": 0.85, "reasoning": "подходит по критериям"}`)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Selected)
	assert.Equal(t, 0.85, result.Confidence)
	assert.Equal(t, "подходит по критериям", result.Reasoning)
}

func TestParseJudgeResponseWithCommentary(t *testing.T) {
	content := `Рассмотрев кандидатов, выбираю следующий вариант:
{"selected": 1, "confidence": 0.7, "reasoning": "совпадение диагноза"}
Надеюсь, это поможет.`

	result, err := parseJudgeResponse(content)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Selected)
}

func TestParseJudgeResponseRejection(t *testing.T) {
	result, err := parseJudgeResponse(`{"selected": 0, "confidence": 0.3, "reasoning": "ни один не подходит"}`)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Selected)
}

func TestParseJudgeResponseErrors(t *testing.T) {
	_, err := parseJudgeResponse("никакого JSON здесь нет")
	assert.Error(t, err)

	_, err = parseJudgeResponse(`{"selected": 1, "confidence": 1.5}`)
	assert.Error(t, err)

	_, err = parseJudgeResponse(`{"selected": 1, "confidence": -0.1}`)
	assert.Error(t, err)
}
