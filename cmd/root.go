package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/shouni/go-manga-ocr/internal/config"

	clibase "github.com/shouni/go-cli-base"
	"github.com/spf13/cobra"
)

// opts は全サブコマンド共有の実行時オプションなのだ。
// addAppFlags でフラグに紐付けられ、各コマンドが config.Config に詰め替えて使うのだ。
var opts = config.DefaultOptions()

// model はフラグで上書きできるモデル名なのだ。環境変数 GEMINI_MODEL より優先なのだ。
var model string

// verbose / errorLogFile はログ出力の制御なのだ。
var (
	verbose      bool
	errorLogFile string
)

// addAppFlags は、アプリケーション全般に適用されるグローバルフラグを定義するのだ。
func addAppFlags(rootCmd *cobra.Command) {
	// --- 入出力関連 ---
	rootCmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "YAML設定ファイルのパス（省略可）なのだ。")
	rootCmd.PersistentFlags().StringVarP(&opts.Folder, "folder", "f", config.DefaultFolder, "漫画ページ画像のフォルダ（ローカル or gs://...）なのだ。")
	rootCmd.PersistentFlags().StringVarP(&opts.OutputFile, "output-file", "o", config.DefaultOutputFile, "抽出レポートの保存パス（ローカル or gs://...）なのだ。")
	rootCmd.PersistentFlags().StringSliceVar(&opts.Extensions, "extensions", config.DefaultExtensions, "処理対象とする画像拡張子なのだ。")

	// --- AIモデル・プロンプト設定 ---
	rootCmd.PersistentFlags().StringVar(&model, "model", "", "使用する Gemini モデル名（省略時は GEMINI_MODEL か既定値）なのだ。")
	rootCmd.PersistentFlags().StringVarP(&opts.Language, "language", "l", config.DefaultLanguage, "ページ内テキストの言語なのだ。")
	rootCmd.PersistentFlags().StringVarP(&opts.TemplateKey, "template", "t", config.DefaultTemplateKey, "指示テンプレート（basic / detailed / structured）なのだ。")
	rootCmd.PersistentFlags().StringVar(&opts.ReadingOrder, "reading-order", config.DefaultReadingOrder, "コマの読み順（right-to-left / left-to-right）なのだ。")

	// --- 翻訳設定 ---
	rootCmd.PersistentFlags().BoolVar(&opts.Translate, "translate", false, "抽出と同時に翻訳も指示するのだ。")
	rootCmd.PersistentFlags().StringVar(&opts.SourceLanguage, "source-language", config.DefaultSourceLanguage, "翻訳元の言語なのだ。")
	rootCmd.PersistentFlags().StringVar(&opts.TargetLanguage, "target-language", config.DefaultTargetLanguage, "翻訳先の言語なのだ。")
	rootCmd.PersistentFlags().StringVar(&opts.TranslateStyle, "translate-style", config.DefaultTranslateStyle, "訳のスタイル（natural / literal / localized）なのだ。")
	rootCmd.PersistentFlags().StringVar(&opts.TranslateMode, "translate-mode", config.DefaultTranslateMode, "訳の出力形式（inline / separate / both）なのだ。")
	rootCmd.PersistentFlags().BoolVar(&opts.PreserveOriginal, "preserve-original", true, "訳と一緒に原文も残すのだ。")

	// --- 前処理設定 ---
	rootCmd.PersistentFlags().BoolVar(&opts.Preprocess, "preprocess", true, "送信前に縮小・コントラスト・シャープ化を行うのだ。")
	rootCmd.PersistentFlags().IntVar(&opts.MaxWidth, "max-width", config.DefaultMaxWidth, "前処理後の最大幅（ピクセル）なのだ。")
	rootCmd.PersistentFlags().IntVar(&opts.MaxHeight, "max-height", config.DefaultMaxHeight, "前処理後の最大高さ（ピクセル）なのだ。")
	rootCmd.PersistentFlags().IntVar(&opts.JPEGQuality, "jpeg-quality", config.DefaultJPEGQuality, "前処理後JPEGの品質（1〜100）なのだ。")

	// --- 実行制御 ---
	rootCmd.PersistentFlags().DurationVar(&opts.RateInterval, "rate-interval", config.DefaultRateInterval, "APIリクエスト間の最小間隔なのだ。")
	rootCmd.PersistentFlags().BoolVar(&opts.ContinueOnError, "continue-on-error", true, "ページ単位の失敗をスキップして続行するのだ。")
	rootCmd.PersistentFlags().IntVar(&opts.Workers, "workers", 1, "並列ワーカー数（1なら逐次）なのだ。")

	// --- デバッグ ---
	rootCmd.PersistentFlags().BoolVar(&opts.SaveProcessed, "save-processed", false, "デバッグ用に前処理済み画像を保存するのだ。")
	rootCmd.PersistentFlags().BoolVar(&opts.SaveResponses, "save-responses", false, "デバッグ用にAPIの生レスポンスを保存するのだ。")
	rootCmd.PersistentFlags().StringVar(&opts.DebugDir, "debug-dir", config.DefaultDebugDir, "デバッグ成果物の保存先なのだ。")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debugレベルのログまで出すのだ。")
	rootCmd.PersistentFlags().StringVar(&errorLogFile, "error-log", "", "ログを標準エラーに加えてこのファイルにも書くのだ。")
}

// preRunAppE は、コマンド実行前にログ設定と環境変数などの必須チェックを行うのだ。
func preRunAppE(cmd *cobra.Command, args []string) error {
	if err := setupLogging(); err != nil {
		return err
	}

	// Gemini APIを利用するため、APIキーの存在チェックは欠かせないのだ！
	if os.Getenv("GEMINI_API_KEY") == "" && os.Getenv("GOOGLE_API_KEY") == "" {
		return fmt.Errorf("エラー: 環境変数 GEMINI_API_KEY が設定されていません。Gemini APIの利用には必須なのだ")
	}

	return nil
}

// setupLogging は slog の出力先とレベルをフラグに合わせて差し替えるのだ。
// --error-log 指定時は標準エラーとファイルの両方に書くのだ。
func setupLogging() error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	var w io.Writer = os.Stderr
	if errorLogFile != "" {
		f, err := os.OpenFile(errorLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("ログファイルを開けなかったのだ %s: %w", errorLogFile, err)
		}
		w = io.MultiWriter(os.Stderr, f)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
	return nil
}

// loadRuntimeConfig は 環境変数 → 設定ファイル → フラグ の順で設定を重ねるのだ。
// 明示されたフラグが最優先なのだよ。
func loadRuntimeConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.LoadConfig()
	cfg.Options = opts

	if opts.ConfigFile != "" {
		// ファイルを土台に読み直し、明示されたフラグだけ上から重ねるのだ。
		cfg.Options = config.DefaultOptions()
		cfg.Options.ConfigFile = opts.ConfigFile
		if err := cfg.ApplyFile(opts.ConfigFile); err != nil {
			return nil, err
		}
		applyChangedFlags(cmd, &cfg.Options)
	}

	if model != "" {
		cfg.GeminiModel = model
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyChangedFlags は、ユーザーがコマンドラインで明示したフラグの値だけを
// ファイル由来の設定へ上書きするのだ。
func applyChangedFlags(cmd *cobra.Command, dst *config.ExtractOptions) {
	flags := cmd.Flags()
	if flags.Changed("folder") {
		dst.Folder = opts.Folder
	}
	if flags.Changed("output-file") {
		dst.OutputFile = opts.OutputFile
	}
	if flags.Changed("extensions") {
		dst.Extensions = opts.Extensions
	}
	if flags.Changed("language") {
		dst.Language = opts.Language
	}
	if flags.Changed("template") {
		dst.TemplateKey = opts.TemplateKey
	}
	if flags.Changed("reading-order") {
		dst.ReadingOrder = opts.ReadingOrder
	}
	if flags.Changed("translate") {
		dst.Translate = opts.Translate
	}
	if flags.Changed("source-language") {
		dst.SourceLanguage = opts.SourceLanguage
	}
	if flags.Changed("target-language") {
		dst.TargetLanguage = opts.TargetLanguage
	}
	if flags.Changed("translate-style") {
		dst.TranslateStyle = opts.TranslateStyle
	}
	if flags.Changed("translate-mode") {
		dst.TranslateMode = opts.TranslateMode
	}
	if flags.Changed("preserve-original") {
		dst.PreserveOriginal = opts.PreserveOriginal
	}
	if flags.Changed("preprocess") {
		dst.Preprocess = opts.Preprocess
	}
	if flags.Changed("max-width") {
		dst.MaxWidth = opts.MaxWidth
	}
	if flags.Changed("max-height") {
		dst.MaxHeight = opts.MaxHeight
	}
	if flags.Changed("jpeg-quality") {
		dst.JPEGQuality = opts.JPEGQuality
	}
	if flags.Changed("rate-interval") {
		dst.RateInterval = opts.RateInterval
	}
	if flags.Changed("continue-on-error") {
		dst.ContinueOnError = opts.ContinueOnError
	}
	if flags.Changed("workers") {
		dst.Workers = opts.Workers
	}
	if flags.Changed("save-processed") {
		dst.SaveProcessed = opts.SaveProcessed
	}
	if flags.Changed("save-responses") {
		dst.SaveResponses = opts.SaveResponses
	}
	if flags.Changed("debug-dir") {
		dst.DebugDir = opts.DebugDir
	}
}

// Execute は、アプリケーションのメインエントリポイントなのだ。
// main.go から呼び出されて、cobra のコマンドライン解析を開始するのだよ。
func Execute() {
	clibase.Execute(
		"manga-ocr",
		addAppFlags,
		preRunAppE,
		extractCmd,
		translateCmd,
	)
}
