// Package vision は、リモートのマルチモーダルモデルへの認識・翻訳呼び出しを包みます。
// テキスト認識の知能は持たず、リクエストの組み立てと結果の取り出しだけを担います。
package vision

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"google.golang.org/genai"

	"github.com/shouni/go-manga-ocr/pkg/domain"
)

// ErrEmptyResult は、呼び出し自体は成功したのにテキストが返らなかったことを示すのだ。
// 通信エラーとは区別して、警告としてスキップ扱いするためのセンチネルなのだよ。
var ErrEmptyResult = errors.New("モデルからテキストが返ってこなかったのだ")

const (
	defaultTemperature = float32(0.2)

	// レスポンスキャッシュの寿命なのだ。同一プロンプト + 同一画像の再実行を素通しするためのもの。
	cacheExpiration      = 30 * time.Minute
	cacheCleanupInterval = 10 * time.Minute
)

// Recognizer は (指示文, 画像) を投げて抽出テキストを受け取るインターフェースです。
type Recognizer interface {
	Recognize(ctx context.Context, prompt string, img *domain.PageImage) (string, error)
}

// GeminiRecognizer は Gemini API を使った Recognizer の実装なのだ。
type GeminiRecognizer struct {
	client *genai.Client
	model  string
	cache  *gocache.Cache
}

// NewGeminiRecognizer は Gemini クライアントを初期化して返すのだ。
func NewGeminiRecognizer(ctx context.Context, apiKey, model string) (*GeminiRecognizer, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("AIクライアントの初期化に失敗しました: %w", err)
	}

	return &GeminiRecognizer{
		client: client,
		model:  model,
		cache:  gocache.New(cacheExpiration, cacheCleanupInterval),
	}, nil
}

// Recognize は画像と指示文を1リクエストにまとめて送信し、抽出テキストを返すのだ。
// プロンプトは設定に対して決定的なので、同一入力はキャッシュで即答できるのだ。
func (r *GeminiRecognizer) Recognize(ctx context.Context, prompt string, img *domain.PageImage) (string, error) {
	key := cacheKey(prompt, img.Data)
	if cached, ok := r.cache.Get(key); ok {
		slog.Debug("キャッシュ済みの認識結果を返すのだ", "file", img.SourcePath)
		return cached.(string), nil
	}

	parts := []*genai.Part{
		genai.NewPartFromBytes(img.Data, img.MIMEType),
		genai.NewPartFromText(prompt),
	}
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	resp, err := r.client.Models.GenerateContent(ctx, r.model, contents, &genai.GenerateContentConfig{
		Temperature: genai.Ptr(defaultTemperature),
	})
	if err != nil {
		return "", fmt.Errorf("認識リクエストに失敗したのだ: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", ErrEmptyResult
	}

	r.cache.Set(key, text, gocache.DefaultExpiration)
	return text, nil
}

// cacheKey はプロンプトと画像バイト列から一意のキーを作るのだ。
func cacheKey(prompt string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(prompt))
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
