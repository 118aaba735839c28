package cmd

import (
	"fmt"
	"log/slog"

	"github.com/shouni/go-manga-ocr/internal/pipeline"

	"github.com/spf13/cobra"
)

// extractCmd は、フォルダ内の漫画ページからテキストを一括抽出するのだ。
var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "漫画ページの画像からテキストを一括抽出するのだ。",
	Long: `指定フォルダの画像を辞書順に処理し、右から左への読み順を考慮した
プロンプトでAIにテキストを抽出させるのだ。結果は1本のレポートにまとまるのだよ。`,
	RunE: extractCommand,
}

func extractCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadRuntimeConfig(cmd)
	if err != nil {
		return err
	}

	slog.Info("漫画OCRパイプラインを起動するのだ！",
		"folder", cfg.Options.Folder,
		"model", cfg.GeminiModel,
		"template", cfg.Options.TemplateKey,
		"translate", cfg.Options.Translate,
		"output", cfg.Options.OutputFile)

	if err := pipeline.ExecuteBatch(ctx, cfg); err != nil {
		return fmt.Errorf("パイプライン実行中にエラーが発生したのだ: %w", err)
	}

	slog.Info("すべての抽出工程が完了したのだ！", "output_file", cfg.Options.OutputFile)
	return nil
}
