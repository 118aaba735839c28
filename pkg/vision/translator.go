package vision

import (
	"context"
	"fmt"
	"strings"

	"github.com/shouni/go-gemini-client/gemini"
	"google.golang.org/genai"
)

// Translator は指示文のみを投げてテキスト生成結果を受け取るインターフェースです。
// 抽出済みテキストの翻訳など、画像を伴わない呼び出しに使います。
type Translator interface {
	Translate(ctx context.Context, prompt string) (string, error)
}

// GeminiTranslator は go-gemini-client 経由のテキスト専用呼び出しなのだ。
type GeminiTranslator struct {
	aiClient gemini.GenerativeModel
	model    string
}

// NewGeminiTranslator はテキスト生成用のクライアントを初期化して返すのだ。
func NewGeminiTranslator(ctx context.Context, apiKey, model string) (*GeminiTranslator, error) {
	clientConfig := gemini.Config{
		APIKey:      apiKey,
		Temperature: genai.Ptr(defaultTemperature),
	}
	aiClient, err := gemini.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("AIクライアントの初期化に失敗しました: %w", err)
	}

	return &GeminiTranslator{aiClient: aiClient, model: model}, nil
}

// Translate はプロンプトを送信し、生成テキストを返すのだ。
// 空の結果は ErrEmptyResult として呼び出し側に区別させるのだ。
func (t *GeminiTranslator) Translate(ctx context.Context, prompt string) (string, error) {
	resp, err := t.aiClient.GenerateContent(ctx, prompt, t.model)
	if err != nil {
		return "", fmt.Errorf("翻訳リクエストに失敗したのだ: %w", err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", ErrEmptyResult
	}
	return text, nil
}
