package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/joonholab/argos/pkg/config"
	"github.com/joonholab/argos/pkg/httputil"
	"github.com/joonholab/argos/pkg/logger"
)

// jsonBlockRe pulls the first {...} block out of a model reply that may be
// wrapped in prose or markdown fences.
var jsonBlockRe = regexp.MustCompile(`(?s)\{.*\}`)

// GeminiAdvisor calls the Gemini generateContent API.
type GeminiAdvisor struct {
	cfg        config.GeminiConfig
	httpClient *httputil.Client
	logger     *logger.Logger
}

// NewGeminiAdvisor creates an advisor backed by Gemini.
func NewGeminiAdvisor(cfg config.GeminiConfig, log *logger.Logger) *GeminiAdvisor {
	// 실패는 즉시 기본 의견으로 대체되므로 재시도하지 않는다
	return &GeminiAdvisor{
		cfg:        cfg,
		httpClient: httputil.New(log).DisableRetry(),
		logger:     log,
	}
}

// Advise analyzes one candidate. It never returns an error: every failure
// path yields the safe default opinion.
func (a *GeminiAdvisor) Advise(ctx context.Context, s Summary) *Opinion {
	prompt := buildPrompt(s)

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		strings.TrimRight(a.cfg.BaseURL, "/"), a.cfg.Model, a.cfg.APIKey)

	reqBody := map[string]interface{}{
		"contents": []map[string]interface{}{
			{"parts": []map[string]string{{"text": prompt}}},
		},
	}

	resp, err := a.httpClient.PostJSON(ctx, url, reqBody)
	if err != nil {
		a.logger.WithError(err).WithField("code", s.Code).Error("AI 분석 실패")
		return DefaultOpinion()
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		a.logger.WithFields(map[string]interface{}{
			"code":   s.Code,
			"status": resp.StatusCode,
		}).Error("AI 분석 실패")
		return DefaultOpinion()
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		a.logger.WithError(err).WithField("code", s.Code).Error("AI 응답 읽기 실패")
		return DefaultOpinion()
	}

	text, err := extractText(respBody)
	if err != nil {
		a.logger.WithError(err).WithField("code", s.Code).Error("AI 응답 형식 오류")
		return DefaultOpinion()
	}

	op := parseOpinion(text)
	a.logger.WithFields(map[string]interface{}{
		"code":           s.Code,
		"name":           s.Name,
		"recommendation": string(op.Recommendation),
		"confidence":     op.Confidence,
	}).Info("AI 분석 완료")
	return op
}

// buildPrompt renders the analysis request for one candidate.
func buildPrompt(s Summary) string {
	return fmt.Sprintf(`전문 애널리스트로 다음 종목을 분석해주세요.

【종목 정보】
- 종목명: %s
- 종목코드: %s
- 현재가: %d원
- 등락률: %.2f%%

【스캐닝 점수】
- 종합: %.0f점
- 등급: %s
- 거래량: %.1f%%

【분석 요청】
1. 상승 가능성 (%%)
2. 매수/매도/관망 추천
3. 목표가
4. 리스크
5. 신뢰도 (0~1)

JSON 형식으로만 답변:
{
  "probability": 85,
  "recommendation": "BUY",
  "target_price": 75000,
  "risk_level": "MEDIUM",
  "confidence": 0.85,
  "reason": "근거..."
}`, s.Name, s.Code, s.Price, s.PriceChangePct, s.TotalScore, s.Grade, s.VolumeChangePct)
}

// extractText digs the reply text out of the generateContent envelope.
func extractText(body []byte) (string, error) {
	var resp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty candidates")
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}

// parseOpinion extracts the JSON block from the reply. Unparseable replies
// degrade to the default opinion.
func parseOpinion(text string) *Opinion {
	block := jsonBlockRe.FindString(text)
	if block == "" {
		return DefaultOpinion()
	}

	var raw struct {
		Recommendation string  `json:"recommendation"`
		Confidence     float64 `json:"confidence"`
		Probability    float64 `json:"probability"`
		TargetPrice    float64 `json:"target_price"`
		RiskLevel      string  `json:"risk_level"`
		Reason         string  `json:"reason"`
	}
	if err := json.Unmarshal([]byte(block), &raw); err != nil {
		return DefaultOpinion()
	}

	rec := Recommendation(strings.ToUpper(strings.TrimSpace(raw.Recommendation)))
	switch rec {
	case Buy, Sell, Hold:
	default:
		rec = Hold
	}

	return &Opinion{
		Recommendation: rec,
		Confidence:     raw.Confidence,
		Probability:    raw.Probability,
		TargetPrice:    int64(raw.TargetPrice),
		RiskLevel:      raw.RiskLevel,
		Reason:         raw.Reason,
	}
}
