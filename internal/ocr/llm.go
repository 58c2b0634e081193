package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"marksheet/internal/model"
)

const (
	jsonResponseType      = "json_object"
	defaultBaseURL        = "https://openrouter.ai/api/v1/chat/completions"
	defaultModel          = "google/gemini-2.0-flash-001"
	defaultHTTPTimeout    = 60 * time.Second
	defaultRetryBaseDelay = 1 * time.Second
	defaultRetryMaxDelay  = 10 * time.Second
	defaultRetryAttempts  = 3
)

// LLMConfig 多模态模型接口配置
type LLMConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	TimeoutSeconds int
	RetryAttempts  int
}

// LLMEngine 基于 OpenAI 兼容 chat completion 接口的识别引擎
type LLMEngine struct {
	cfg        LLMConfig
	httpClient *http.Client
	logger     *zap.Logger

	retryBaseDelay time.Duration
	retryMaxDelay  time.Duration
	sleeper        func(time.Duration)
}

// LLMOption 引擎选项
type LLMOption func(*LLMEngine)

// WithHTTPClient 替换默认 HTTP 客户端
func WithHTTPClient(client *http.Client) LLMOption {
	return func(e *LLMEngine) {
		if client != nil {
			e.httpClient = client
		}
	}
}

// WithRetryBackoff 设置重试退避
func WithRetryBackoff(baseDelay, maxDelay time.Duration) LLMOption {
	return func(e *LLMEngine) {
		e.retryBaseDelay = baseDelay
		e.retryMaxDelay = maxDelay
	}
}

// WithSleeper 替换重试等待（测试用）
func WithSleeper(sleeper func(time.Duration)) LLMOption {
	return func(e *LLMEngine) {
		e.sleeper = sleeper
	}
}

// WithLogger 设置日志
func WithLogger(logger *zap.Logger) LLMOption {
	return func(e *LLMEngine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewLLMEngine 创建引擎
func NewLLMEngine(cfg LLMConfig, opts ...LLMOption) *LLMEngine {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	e := &LLMEngine{
		cfg: LLMConfig{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimSpace(cfg.BaseURL),
			Model:          strings.TrimSpace(cfg.Model),
			Referer:        strings.TrimSpace(cfg.Referer),
			Title:          strings.TrimSpace(cfg.Title),
			TimeoutSeconds: cfg.TimeoutSeconds,
			RetryAttempts:  cfg.RetryAttempts,
		},
		httpClient:     &http.Client{Timeout: timeout},
		logger:         zap.NewNop(),
		retryBaseDelay: defaultRetryBaseDelay,
		retryMaxDelay:  defaultRetryMaxDelay,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.cfg.BaseURL == "" {
		e.cfg.BaseURL = defaultBaseURL
	}
	if e.cfg.Model == "" {
		e.cfg.Model = defaultModel
	}
	if e.cfg.RetryAttempts <= 0 {
		e.cfg.RetryAttempts = defaultRetryAttempts
	}
	return e
}

// Name 引擎名称
func (e *LLMEngine) Name() string { return "llm" }

// Extract 识别一张答题卡
func (e *LLMEngine) Extract(ctx context.Context, img model.Image) (model.Extraction, error) {
	var empty model.Extraction
	if e.cfg.APIKey == "" {
		return empty, errors.New("ocr extract: api key required")
	}
	if len(img.Data) == 0 {
		return empty, errors.New("ocr extract: empty image")
	}
	mime, err := DetectMIME(img.MIME, img.Data)
	if err != nil {
		return empty, err
	}

	payload := chatCompletionRequest{
		Model: e.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: "You must respond with JSON only."},
			{Role: "user", Content: []contentPart{
				{Type: "text", Text: ExtractionPrompt},
				{Type: "image_url", ImageURL: &imageURL{URL: DataURI(mime, img.Data)}},
			}},
		},
		Temperature:    0,
		ResponseFormat: map[string]string{"type": jsonResponseType},
	}

	started := time.Now()
	content, err := e.completionContentWithRetry(ctx, payload, "ocr extract")
	if err != nil {
		return empty, err
	}

	var parsed model.Extraction
	if err := DecodeLLMJSON(content, &parsed); err != nil {
		return empty, fmt.Errorf("ocr extract: parse payload: %w", err)
	}
	parsed = Normalize(parsed)
	e.logger.Debug("extraction finished",
		zap.String("image", img.Name),
		zap.String("reg_no", parsed.RegNo),
		zap.Int("sub_parts", parsed.SubPartCount()),
		zap.Duration("elapsed", time.Since(started)),
	)
	return parsed, nil
}

// Verification 单题复核结果
type Verification struct {
	Question      string `json:"question"`
	ExtractedMark string `json:"extractedMark"`
	CorrectedMark string `json:"correctedMark"`
	IsAccurate    bool   `json:"isAccurate"`
}

// Verify 请模型复核已识别的分数
func (e *LLMEngine) Verify(ctx context.Context, marks []model.SheetMark) ([]Verification, error) {
	if e.cfg.APIKey == "" {
		return nil, errors.New("ocr verify: api key required")
	}
	if len(marks) == 0 {
		return []Verification{}, nil
	}

	var b strings.Builder
	for _, m := range marks {
		fmt.Fprintf(&b, "Question: %s, Extracted Mark: %s\n", m.Question, m.ExtractedMark)
	}
	payload := chatCompletionRequest{
		Model: e.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: VerificationPrompt},
			{Role: "user", Content: b.String()},
		},
		Temperature:    0,
		ResponseFormat: map[string]string{"type": jsonResponseType},
	}
	content, err := e.completionContentWithRetry(ctx, payload, "ocr verify")
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Items []Verification `json:"items"`
	}
	if err := DecodeLLMJSON(content, &parsed); err != nil {
		// 部分模型直接返回数组
		var items []Verification
		if arrErr := DecodeLLMJSON(content, &items); arrErr != nil {
			return nil, fmt.Errorf("ocr verify: parse payload: %w", err)
		}
		parsed.Items = items
	}
	return parsed.Items, nil
}

// DataURI 生成 data:<mime>;base64,<data>
func DataURI(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

type chatCompletionRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format"`
}

// chatMessage Content 为 string 或 []contentPart
type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Refusal string `json:"refusal"`
		} `json:"message"`
		Text         string `json:"text"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type httpStatusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("ocr request: http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

type emptyContentError struct {
	Op           string
	FinishReason string
	Refusal      string
}

func (e *emptyContentError) Error() string {
	return fmt.Sprintf("%s: empty content (finish_reason=%q, refusal=%q)", e.Op, e.FinishReason, e.Refusal)
}

func (e *LLMEngine) completionContentWithRetry(ctx context.Context, payload chatCompletionRequest, op string) (string, error) {
	attempts := e.cfg.RetryAttempts
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		completion, err := e.sendOnce(ctx, payload)
		if err == nil {
			content, finishReason, refusal := extractContent(completion)
			if content != "" {
				return content, nil
			}
			if len(completion.Choices) == 0 {
				err = fmt.Errorf("%s: empty choices", op)
			} else {
				err = &emptyContentError{Op: op, FinishReason: finishReason, Refusal: refusal}
			}
		}

		delay, retry := e.retryDelay(ctx, err, attempt, attempts)
		if !retry {
			return "", err
		}
		e.logger.Warn("ocr request failed, retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		if err := e.sleep(ctx, delay); err != nil {
			return "", err
		}
		lastErr = err
	}

	if lastErr == nil {
		lastErr = errors.New("unknown retry failure")
	}
	return "", fmt.Errorf("%s: failed after %d attempts: %w", op, attempts, lastErr)
}

func extractContent(completion chatCompletionResponse) (string, string, string) {
	var finishReason, refusal string
	for _, choice := range completion.Choices {
		if finishReason == "" {
			finishReason = strings.TrimSpace(choice.FinishReason)
		}
		if refusal == "" {
			refusal = strings.TrimSpace(choice.Message.Refusal)
		}
		if c := strings.TrimSpace(choice.Message.Content); c != "" {
			return c, finishReason, refusal
		}
		if c := strings.TrimSpace(choice.Text); c != "" {
			return c, finishReason, refusal
		}
	}
	return "", finishReason, refusal
}

func (e *LLMEngine) sendOnce(ctx context.Context, payload chatCompletionRequest) (chatCompletionResponse, error) {
	var completion chatCompletionResponse
	encoded, err := json.Marshal(payload)
	if err != nil {
		return completion, fmt.Errorf("ocr request: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.BaseURL, bytes.NewReader(encoded))
	if err != nil {
		return completion, fmt.Errorf("ocr request: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	if e.cfg.Referer != "" {
		req.Header.Set("HTTP-Referer", e.cfg.Referer)
	}
	if e.cfg.Title != "" {
		req.Header.Set("X-Title", e.cfg.Title)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return completion, fmt.Errorf("ocr request: http error: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return completion, fmt.Errorf("ocr request: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		retryAfter, _ := parseRetryAfter(resp.Header.Get("Retry-After"))
		return completion, &httpStatusError{
			StatusCode: resp.StatusCode,
			Body:       string(body),
			RetryAfter: retryAfter,
		}
	}
	if err := json.Unmarshal(body, &completion); err != nil {
		return completion, fmt.Errorf("ocr request: decode response: %w", err)
	}
	if completion.Error != nil {
		return completion, fmt.Errorf("ocr request: api error: %s", strings.TrimSpace(completion.Error.Message))
	}
	return completion, nil
}

func (e *LLMEngine) retryDelay(ctx context.Context, err error, attempt, maxAttempts int) (time.Duration, bool) {
	if attempt >= maxAttempts || err == nil || ctx.Err() != nil {
		return 0, false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0, false
	}

	var emptyErr *emptyContentError
	if errors.As(err, &emptyErr) {
		return e.backoffDelay(attempt), true
	}

	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusRequestTimeout,
			statusErr.StatusCode == http.StatusTooManyRequests,
			statusErr.StatusCode >= http.StatusInternalServerError:
			if statusErr.RetryAfter > 0 {
				return e.capDelay(statusErr.RetryAfter), true
			}
			return e.backoffDelay(attempt), true
		default:
			return 0, false
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return e.backoffDelay(attempt), true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return e.backoffDelay(attempt), true
	}
	return 0, false
}

// backoffDelay attempt 1 -> base, 2 -> base*2, 3 -> base*4 ...
func (e *LLMEngine) backoffDelay(attempt int) time.Duration {
	if e.retryBaseDelay <= 0 {
		return 0
	}
	delay := e.retryBaseDelay
	for i := 1; i < attempt; i++ {
		if e.retryMaxDelay > 0 && delay > e.retryMaxDelay/2 {
			delay = e.retryMaxDelay
			break
		}
		delay *= 2
	}
	return e.capDelay(delay)
}

func (e *LLMEngine) capDelay(delay time.Duration) time.Duration {
	if delay < 0 {
		return 0
	}
	if e.retryMaxDelay > 0 && delay > e.retryMaxDelay {
		return e.retryMaxDelay
	}
	return delay
}

func (e *LLMEngine) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if e.sleeper != nil {
		e.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds >= 0 {
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		if delay := time.Until(when); delay > 0 {
			return delay, true
		}
	}
	return 0, false
}
