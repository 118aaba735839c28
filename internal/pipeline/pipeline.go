// Package pipeline は、CLIコマンドから呼ばれる実行フローの入口なのだ。
// 共有コンポーネントの初期化と、バッチ抽出・単体翻訳の各フローをここで束ねるのだ。
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/shouni/go-manga-ocr/internal/builder"
	"github.com/shouni/go-manga-ocr/internal/config"
	"github.com/shouni/go-manga-ocr/pkg/prompt"

	"github.com/shouni/go-remote-io/pkg/gcsfactory"
)

// ExecuteBatch は、フォルダ内の漫画ページをまとめてOCRにかける主フローなのだ。
// 1枚でも抽出に成功すればレポートを書き出して正常終了するのだよ。
func ExecuteBatch(ctx context.Context, cfg *config.Config) error {
	appCtx, err := setupAppContext(ctx, cfg)
	if err != nil {
		return err
	}

	orchestrator := builder.BuildOrchestrator(appCtx)

	stats, err := orchestrator.Run(ctx, cfg.Options.Folder)
	if err != nil {
		return fmt.Errorf("バッチ抽出に失敗したのだ: %w", err)
	}

	slog.Info("すべての抽出工程が完了したのだ！",
		"total", stats.Total,
		"succeeded", stats.Succeeded,
		"errored", stats.Errored,
		"output", cfg.Options.OutputFile)
	return nil
}

// ExecuteTranslate は、抽出済みテキスト1本を翻訳する補助フローなのだ。
// 入力はファイルでも標準入力でもよく、結果の文字列を返すのだ。
func ExecuteTranslate(ctx context.Context, cfg *config.Config, input io.Reader) (string, error) {
	translator, err := builder.InitializeTranslator(ctx, cfg)
	if err != nil {
		return "", err
	}

	data, err := io.ReadAll(input)
	if err != nil {
		return "", fmt.Errorf("入力テキストの読み込みに失敗したのだ: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("翻訳する入力テキストが空なのだ")
	}

	translatePrompt := prompt.New().BuildTranslationPrompt(text, prompt.TranslationOptions{
		SourceLanguage: cfg.Options.SourceLanguage,
		TargetLanguage: cfg.Options.TargetLanguage,
		Style:          cfg.Options.TranslateStyle,
	})

	slog.Info("テキスト翻訳を開始するのだ",
		"source", cfg.Options.SourceLanguage,
		"target", cfg.Options.TargetLanguage,
		"chars", len(text))

	result, err := translator.Translate(ctx, translatePrompt)
	if err != nil {
		return "", fmt.Errorf("翻訳に失敗したのだ: %w", err)
	}
	return result, nil
}

// setupAppContext は、提供された設定と共有コンポーネントを使用して、アプリケーションコンテキストを初期化して返すのだ。
// 初期化中にエラーが発生した場合は、AppContext のポインタとエラーを返すのだ。
func setupAppContext(ctx context.Context, cfg *config.Config) (*builder.AppContext, error) {
	recognizer, err := builder.InitializeRecognizer(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create recognizer: %w", err)
	}

	gcsFactory, err := gcsfactory.NewGCSClientFactory(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client factory: %w", err)
	}

	reader, err := gcsFactory.NewInputReader()
	if err != nil {
		return nil, err
	}
	writer, err := gcsFactory.NewOutputWriter()
	if err != nil {
		return nil, err
	}

	appCtx := builder.NewAppContext(cfg, reader, writer, recognizer, nil)
	return &appCtx, nil
}
