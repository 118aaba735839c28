package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/shouni/go-manga-ocr/internal/pipeline"

	"github.com/spf13/cobra"
)

// inputFile は translate コマンド専用の入力パスなのだ。'-' で標準入力なのだ。
var inputFile string

// translateCmd は、抽出済みテキスト1本を翻訳する補助コマンドなのだ。
var translateCmd = &cobra.Command{
	Use:   "translate",
	Short: "抽出済みテキストを翻訳するのだ。",
	Long: `ファイルか標準入力から受け取ったテキストを、指定した言語ペアで翻訳するのだ。
画像は扱わず、extract の出力を後から訳し直す用途なのだよ。`,
	RunE: translateCommand,
}

func init() {
	translateCmd.Flags().StringVarP(&inputFile, "input-file", "i", "", "翻訳するテキストファイル（'-'で標準入力なのだ）。")
}

func translateCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if inputFile == "" && !isStdin() {
		return fmt.Errorf("入力（--input-file か標準入力）を指定してほしいのだ")
	}

	cfg, err := loadRuntimeConfig(cmd)
	if err != nil {
		return err
	}

	var in io.Reader
	switch inputFile {
	case "", "-":
		in = os.Stdin
	default:
		f, err := os.Open(inputFile)
		if err != nil {
			return fmt.Errorf("入力ファイルを開けなかったのだ %s: %w", inputFile, err)
		}
		defer f.Close()
		in = f
	}

	result, err := pipeline.ExecuteTranslate(ctx, cfg, in)
	if err != nil {
		return fmt.Errorf("翻訳中にエラーが発生したのだ: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), result)
	slog.Info("翻訳が完了したのだ！",
		"source", cfg.Options.SourceLanguage,
		"target", cfg.Options.TargetLanguage)
	return nil
}

// isStdin は標準入力がパイプ等で与えられているかを判定するのだ。
func isStdin() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}
