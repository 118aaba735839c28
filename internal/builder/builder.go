package builder

import (
	"context"
	"fmt"

	"github.com/shouni/go-manga-ocr/internal/config"
	"github.com/shouni/go-manga-ocr/pkg/batch"
	"github.com/shouni/go-manga-ocr/pkg/preprocess"
	"github.com/shouni/go-manga-ocr/pkg/prompt"
	"github.com/shouni/go-manga-ocr/pkg/report"
	"github.com/shouni/go-manga-ocr/pkg/vision"
)

// BuildPrompt は実行時オプションから認識用プロンプトを組み立てるのだ。
// プロンプトはバッチ中ずっと一定なので、ここで一度だけ確定させるのだ。
func BuildPrompt(opts config.ExtractOptions) string {
	b := prompt.New()
	return b.Build(prompt.Options{
		TemplateKey:  opts.TemplateKey,
		Language:     opts.Language,
		ReadingOrder: opts.ReadingOrder,
		Translation: prompt.TranslationOptions{
			Enabled:          opts.Translate,
			SourceLanguage:   opts.SourceLanguage,
			TargetLanguage:   opts.TargetLanguage,
			Style:            opts.TranslateStyle,
			Mode:             opts.TranslateMode,
			PreserveOriginal: opts.PreserveOriginal,
		},
	})
}

// BuildOrchestrator は AppContext の部品からバッチ実行器を組み立てます。
func BuildOrchestrator(appCtx *AppContext) *batch.Orchestrator {
	opts := appCtx.Options

	pre := preprocess.New(preprocess.Options{
		Enabled:      opts.Preprocess,
		MaxWidth:     opts.MaxWidth,
		MaxHeight:    opts.MaxHeight,
		Contrast:     opts.Contrast,
		ContrastPct:  opts.ContrastPct,
		Sharpen:      opts.Sharpen,
		SharpenSigma: opts.SharpenSigma,
		JPEGQuality:  opts.JPEGQuality,
	})

	formatter := report.NewFormatter(report.Options{
		IncludeFilename:  opts.IncludeFilename,
		AddPageNumbers:   opts.AddPageNumbers,
		IncludeTimestamp: opts.IncludeTimestamp,
		SeparatePages:    opts.SeparatePages,
	})

	return batch.New(
		pre,
		appCtx.Recognizer,
		appCtx.Reader,
		formatter,
		report.NewWriter(appCtx.Writer),
		appCtx.Writer,
		BuildPrompt(opts),
		batch.Options{
			Model:           appCtx.Config.GeminiModel,
			OutputFile:      opts.OutputFile,
			Extensions:      opts.Extensions,
			RateInterval:    opts.RateInterval,
			ContinueOnError: opts.ContinueOnError,
			Workers:         opts.Workers,
			SaveProcessed:   opts.SaveProcessed,
			SaveResponses:   opts.SaveResponses,
			DebugDir:        opts.DebugDir,
		},
	)
}

// InitializeRecognizer は画像認識用の Gemini クライアントを初期化します。
func InitializeRecognizer(ctx context.Context, cfg *config.Config) (vision.Recognizer, error) {
	recognizer, err := vision.NewGeminiRecognizer(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		return nil, fmt.Errorf("認識クライアントの初期化に失敗しました: %w", err)
	}
	return recognizer, nil
}

// InitializeTranslator はテキスト翻訳用の Gemini クライアントを初期化します。
func InitializeTranslator(ctx context.Context, cfg *config.Config) (vision.Translator, error) {
	translator, err := vision.NewGeminiTranslator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		return nil, fmt.Errorf("翻訳クライアントの初期化に失敗しました: %w", err)
	}
	return translator, nil
}
