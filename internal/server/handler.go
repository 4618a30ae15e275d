package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shouni/go-x-scraper/internal/logger"
	"github.com/shouni/go-x-scraper/pkg/scraper"
)

// 固定のレスポンスメッセージ
const (
	LivenessMessage      = "Twitter Scraper API is running!"
	InvalidURLsMessage   = `Invalid input: "urls" must be an array of strings.`
	EmptyURLsMessage     = `Invalid input: "urls" array cannot be empty.`
	InternalErrorMessage = "An internal server error occurred during scraping."
)

// Handler は API のエンドポイントを実装します。
type Handler struct {
	runner  scraper.Runner
	metrics http.Handler
}

// NewHandler は Handler を生成します。metrics が nil の場合 /metrics は登録しません。
func NewHandler(runner scraper.Runner, metrics http.Handler) *Handler {
	return &Handler{runner: runner, metrics: metrics}
}

// Register はルートを登録します。
func (h *Handler) Register(r *gin.Engine) {
	r.GET("/", h.Liveness)
	r.GET("/health", h.Health)
	r.POST("/scrape", h.Scrape)
	if h.metrics != nil {
		r.GET("/metrics", gin.WrapH(h.metrics))
	}
}

// Liveness は稼働確認用の固定文字列を返します。
func (h *Handler) Liveness(c *gin.Context) {
	c.String(http.StatusOK, LivenessMessage)
}

// Health は JSON 形式の稼働状況を返します。
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type scrapeRequest struct {
	URLs any `json:"urls"`
}

// Scrape は {"urls": [...]} を受け取り、入力順の結果配列を返します。
func (h *Handler) Scrape(c *gin.Context) {
	var req scrapeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": InvalidURLsMessage})
		return
	}
	urls, msg := validateURLs(req.URLs)
	if msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	log := logger.FromContext(c.Request.Context())
	log.Info("スクレイピング要求を受け付けました", logger.Int("urls", len(urls)))

	results := h.runner.Run(c.Request.Context(), urls)
	c.JSON(http.StatusOK, results)
}

// validateURLs は urls が空でない文字列配列であることを確認します。不正な場合はエラーメッセージを返します。
func validateURLs(v any) ([]string, string) {
	raw, ok := v.([]any)
	if !ok {
		return nil, InvalidURLsMessage
	}
	urls := make([]string, 0, len(raw))
	for _, item := range raw {
		s, ok := item.(string)
		if !ok {
			return nil, InvalidURLsMessage
		}
		urls = append(urls, s)
	}
	if len(urls) == 0 {
		return nil, EmptyURLsMessage
	}
	return urls, ""
}
