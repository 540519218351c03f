package service

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/NurlanOmarov/eMedosmotr-AI/pkg/config"
	"github.com/NurlanOmarov/eMedosmotr-AI/pkg/metrics"

	"github.com/Role1776/gigago"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EmbeddingCache stores text embeddings between runs. Lookups are best
// effort: a cache failure must never fail the pipeline.
type EmbeddingCache interface {
	Get(ctx context.Context, text string) ([]float32, bool)
	Set(ctx context.Context, text string, embedding []float32)
}

// CriterionCandidate is one retrieval hit offered to the model for
// judgment. Index is the 1-based position in the offered list.
type CriterionCandidate struct {
	Index       int
	Article     int
	Subpoint    string
	Description string
	Similarity  float64
}

// JudgeResult is the model's pick among offered candidates. Selected is the
// 1-based index of the chosen candidate, 0 when the model rejects all of
// them.
type JudgeResult struct {
	Selected   int     `json:"selected"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

type LLMService struct {
	client     *gigago.Client
	model      *gigago.GenerativeModel
	config     *config.GigaChatConfig
	ragConfig  *config.RAGConfig
	cache      EmbeddingCache
	logger     *zap.Logger
	httpClient *http.Client
	baseURL    string

	// tokenMu guards accessToken: validation runs share one LLMService
	// and embed concurrently while the token is refreshed on expiry.
	tokenMu     sync.RWMutex
	accessToken string
}

// buildSystemInstruction sets the model's role for criterion judgment.
func buildSystemInstruction() string {
	return `Ты военно-врачебный эксперт. Твоя задача - сопоставлять диагнозы призывников с пунктами Расписания болезней.

# ПРИНЦИПЫ РАБОТЫ

1. **Точность**: выбирай пункт Расписания болезней только если диагноз действительно соответствует его формулировке.
2. **Осторожность**: если ни один из предложенных пунктов не подходит, честно сообщай об этом. Не подгоняй диагноз под ближайший пункт.
3. **Структурированность**: всегда возвращай ответ в строго заданном JSON формате, без пояснений вне JSON.
4. **Обоснованность**: в поле reasoning кратко объясняй медицинскую логику выбора на русском языке.`
}

func NewLLMService(cfg *config.GigaChatConfig, ragCfg *config.RAGConfig, cache EmbeddingCache, logger *zap.Logger) (*LLMService, error) {
	ctx := context.Background()

	opts := []gigago.Option{
		gigago.WithCustomScope(cfg.Scope),
	}

	if cfg.InsecureSkipVerify {
		opts = append(opts, gigago.WithCustomInsecureSkipVerify(true))
		logger.Warn("GigaChat TLS certificate verification is disabled")
	}

	client, err := gigago.NewClient(ctx, cfg.APIKey, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GigaChat client: %w", err)
	}

	model := client.GenerativeModel(cfg.Model)
	model.SystemInstruction = buildSystemInstruction()
	// Judgment must be reproducible, so sampling is disabled.
	model.Temperature = 0

	// Separate HTTP client for endpoints gigago does not cover (embeddings).
	httpClient := &http.Client{}
	if cfg.InsecureSkipVerify {
		httpClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	accessToken, err := getAccessToken(ctx, cfg, httpClient, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to get access token: %w", err)
	}

	if cache == nil {
		cache = noopCache{}
	}

	return &LLMService{
		client:      client,
		model:       model,
		config:      cfg,
		ragConfig:   ragCfg,
		cache:       cache,
		logger:      logger,
		httpClient:  httpClient,
		accessToken: accessToken,
		// Base URL for GigaChat REST API
		// Documentation: https://developers.sber.ru/docs/ru/gigachat/api/main
		baseURL: "https://gigachat.devices.sberbank.ru/api/v1",
	}, nil
}

// getAccessToken obtains an access token from GigaChat OAuth endpoint.
// The API key must already be Base64-encoded per GigaChat API docs.
func getAccessToken(ctx context.Context, cfg *config.GigaChatConfig, httpClient *http.Client, logger *zap.Logger) (string, error) {
	oauthURL := "https://ngw.devices.sberbank.ru:9443/api/v2/oauth"

	rqUID := uuid.New().String()

	formData := url.Values{}
	formData.Set("scope", cfg.Scope)

	req, err := http.NewRequestWithContext(ctx, "POST", oauthURL, strings.NewReader(formData.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create OAuth request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("RqUID", rqUID)
	req.Header.Set("Authorization", "Basic "+cfg.APIKey)

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to get access token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		logger.Error("OAuth request failed",
			zap.Int("status", resp.StatusCode),
			zap.String("response", string(bodyBytes)),
			zap.String("rq_uid", rqUID),
		)
		return "", fmt.Errorf("OAuth failed with status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var oauthResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&oauthResp); err != nil {
		return "", fmt.Errorf("failed to decode OAuth response: %w", err)
	}

	if oauthResp.AccessToken == "" {
		return "", fmt.Errorf("empty access token in OAuth response")
	}

	logger.Info("Access token obtained", zap.Int("expires_in", oauthResp.ExpiresIn))
	return oauthResp.AccessToken, nil
}

func (s *LLMService) currentToken() string {
	s.tokenMu.RLock()
	defer s.tokenMu.RUnlock()
	return s.accessToken
}

// refreshToken replaces an expired token. Concurrent callers that saw the
// same stale token trigger a single OAuth round-trip: whoever wins the
// lock refreshes, the rest find the token already replaced and reuse it.
func (s *LLMService) refreshToken(ctx context.Context, stale string) error {
	s.tokenMu.Lock()
	defer s.tokenMu.Unlock()

	if s.accessToken != stale {
		return nil
	}

	accessToken, err := getAccessToken(ctx, s.config, s.httpClient, s.logger)
	if err != nil {
		return err
	}
	s.accessToken = accessToken
	return nil
}

// ModelName reports which model produced the verdicts, stored alongside
// results for audit.
func (s *LLMService) ModelName() string {
	return s.config.Model
}

// CreateEmbedding returns the embedding vector for the given text.
// Documentation: https://developers.sber.ru/docs/ru/gigachat/api/main
// Endpoint: POST /embeddings
func (s *LLMService) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("cannot embed empty text")
	}

	if cached, ok := s.cache.Get(ctx, text); ok {
		metrics.EmbeddingCacheHits.WithLabelValues("hit").Inc()
		return cached, nil
	}
	metrics.EmbeddingCacheHits.WithLabelValues("miss").Inc()

	var embedding []float32
	operation := func() error {
		var err error
		embedding, err = s.requestEmbedding(ctx, text)
		return err
	}

	if err := s.retry(ctx, operation); err != nil {
		metrics.LLMRequests.WithLabelValues("embedding", "error").Inc()
		return nil, err
	}
	metrics.LLMRequests.WithLabelValues("embedding", "ok").Inc()

	s.cache.Set(ctx, text, embedding)
	return embedding, nil
}

func (s *LLMService) requestEmbedding(ctx context.Context, text string) ([]float32, error) {
	requestBody := map[string]interface{}{
		"model": s.config.EmbeddingModel,
		"input": []string{text},
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+"/embeddings", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	token := s.currentToken()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		// Token expired mid-session, refresh once and let retry re-run.
		if tokenErr := s.refreshToken(ctx, token); tokenErr != nil {
			return nil, fmt.Errorf("embeddings failed with 401, token refresh also failed: %w", tokenErr)
		}
		return nil, fmt.Errorf("access token expired, refreshed")
	}

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embeddings failed with status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var embResp struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&embResp); err != nil {
		return nil, fmt.Errorf("failed to decode embeddings response: %w", err)
	}

	if len(embResp.Data) == 0 || len(embResp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("empty embedding in response")
	}

	return embResp.Data[0].Embedding, nil
}

// SelectCriterion asks the model to pick the schedule point matching the
// diagnosis from the offered candidates. The model may only choose from
// the list or reject all of them; it cannot invent a point.
func (s *LLMService) SelectCriterion(ctx context.Context, diagnosis string, candidates []CriterionCandidate) (*JudgeResult, error) {
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no candidates to judge")
	}

	prompt := buildJudgePrompt(diagnosis, candidates)
	messages := []gigago.Message{
		{Role: gigago.RoleUser, Content: prompt},
	}

	var result *JudgeResult
	operation := func() error {
		resp, err := s.model.Generate(ctx, messages)
		if err != nil {
			return fmt.Errorf("failed to generate response: %w", err)
		}

		if len(resp.Choices) == 0 {
			return fmt.Errorf("no response from LLM")
		}

		content := resp.Choices[0].Message.Content
		parsed, err := parseJudgeResponse(content)
		if err != nil {
			return err
		}
		result = parsed
		return nil
	}

	if err := s.retry(ctx, operation); err != nil {
		metrics.LLMRequests.WithLabelValues("judge", "error").Inc()
		return nil, err
	}
	metrics.LLMRequests.WithLabelValues("judge", "ok").Inc()

	s.logger.Info("Criterion judgment completed",
		zap.Int("selected", result.Selected),
		zap.Float64("confidence", result.Confidence),
	)

	return result, nil
}

func buildJudgePrompt(diagnosis string, candidates []CriterionCandidate) string {
	var builder strings.Builder
	builder.WriteString("Диагноз призывника:\n")
	builder.WriteString(diagnosis)
	builder.WriteString("\n\nКандидаты из Расписания болезней:\n")

	for _, c := range candidates {
		subpoint := c.Subpoint
		if subpoint == "" {
			subpoint = "-"
		}
		builder.WriteString(fmt.Sprintf("%d. Статья %d, пункт %s: %s (сходство %.2f)\n",
			c.Index, c.Article, subpoint, c.Description, c.Similarity))
	}

	builder.WriteString(fmt.Sprintf(`
Выбери НОМЕР кандидата, который лучше всего соответствует диагнозу.
Если НИ ОДИН кандидат не подходит, укажи 0.

Верни ТОЛЬКО валидный JSON без markdown разметки:
{"selected": номер от 0 до %d, "confidence": число от 0.0 до 1.0, "reasoning": "краткое обоснование на русском"}`,
		len(candidates)))

	return builder.String()
}

// parseJudgeResponse extracts the JSON object from the model output, which
// may be wrapped in markdown fences or surrounded by commentary.
func parseJudgeResponse(content string) (*JudgeResult, error) {
	content = strings.TrimSpace(content)

	jsonStart := strings.Index(content, "{")
	jsonEnd := strings.LastIndex(content, "}")
	if jsonStart == -1 || jsonEnd == -1 || jsonEnd < jsonStart {
		return nil, fmt.Errorf("invalid response format: %s", content)
	}

	jsonStr := content[jsonStart : jsonEnd+1]

	var result JudgeResult
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		jsonStr = strings.TrimSpace(jsonStr)
		jsonStr = strings.TrimPrefix(jsonStr, "```json")
		jsonStr = strings.TrimPrefix(jsonStr, "```")
		jsonStr = strings.TrimSuffix(jsonStr, "```")
		jsonStr = strings.TrimSpace(jsonStr)

		if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
			return nil, fmt.Errorf("failed to parse JSON response: %w, content: %s", err, content)
		}
	}

	if result.Confidence < 0 || result.Confidence > 1 {
		return nil, fmt.Errorf("confidence out of range: %f", result.Confidence)
	}

	return &result, nil
}

func (s *LLMService) retry(ctx context.Context, operation func() error) error {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(s.ragConfig.LLMMaxRetries)),
		ctx,
	)
	return backoff.Retry(operation, policy)
}

func (s *LLMService) Close() error {
	if s.client != nil {
		s.client.Close()
	}
	return nil
}

type noopCache struct{}

func (noopCache) Get(ctx context.Context, text string) ([]float32, bool) { return nil, false }
func (noopCache) Set(ctx context.Context, text string, embedding []float32) {}
