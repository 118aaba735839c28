// Package config は、環境変数・設定ファイル・CLIフラグの3層から
// アプリケーション設定を組み立てます。優先順位はフラグ > ファイル > 環境変数 > 既定値です。
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/shouni/go-utils/envutil"
	"github.com/spf13/viper"
)

// デフォルト値の定義なのだ
const (
	DefaultModel        = "gemini-2.0-flash"
	DefaultFolder       = "images"
	DefaultOutputFile   = "output/manga_text.txt"
	DefaultLanguage     = "Japanese"
	DefaultTemplateKey  = "detailed"
	DefaultReadingOrder = "right-to-left"

	DefaultSourceLanguage = "Chinese"
	DefaultTargetLanguage = "English"
	DefaultTranslateStyle = "natural"
	DefaultTranslateMode  = "inline"

	DefaultMaxWidth     = 1920
	DefaultMaxHeight    = 1920
	DefaultContrastPct  = 20.0
	DefaultSharpenSigma = 0.8
	DefaultJPEGQuality  = 95

	DefaultRateInterval = time.Second
	DefaultDebugDir     = "output/debug"
)

// DefaultExtensions は処理対象とする画像拡張子の既定セットなのだ。
var DefaultExtensions = []string{".png", ".jpg", ".jpeg", ".tiff", ".tif", ".bmp", ".gif", ".webp"}

// ErrAPIKeyMissing は、APIキーがどこにも設定されていないことを示すのだ。
var ErrAPIKeyMissing = errors.New("GEMINI_API_KEY が設定されていないのだ")

// Config はアプリケーション全体の環境設定（APIキーなど）を保持する構造体なのだ。
type Config struct {
	GeminiAPIKey string
	GeminiModel  string

	Options ExtractOptions
}

// LoadConfig は環境変数から設定を読み込み、構造体を返すのだ！
// APIキーは GEMINI_API_KEY を優先し、無ければ GOOGLE_API_KEY にフォールバックするのだ。
func LoadConfig() *Config {
	apiKey := envutil.GetEnv("GEMINI_API_KEY", "")
	if apiKey == "" {
		apiKey = envutil.GetEnv("GOOGLE_API_KEY", "")
	}

	cfg := &Config{
		GeminiAPIKey: apiKey,
		GeminiModel:  envutil.GetEnv("GEMINI_MODEL", DefaultModel),
		Options:      DefaultOptions(),
	}
	return cfg
}

// Validate は実行前の必須チェックなのだ。APIキーが無いときは即座に失敗させるのだ。
func (c *Config) Validate() error {
	if c.GeminiAPIKey == "" {
		return ErrAPIKeyMissing
	}
	if c.Options.Workers < 1 {
		return fmt.Errorf("workers は1以上が必要なのだ: %d", c.Options.Workers)
	}
	if c.Options.JPEGQuality < 1 || c.Options.JPEGQuality > 100 {
		return fmt.Errorf("jpeg-quality は1〜100が必要なのだ: %d", c.Options.JPEGQuality)
	}
	if len(c.Options.Extensions) == 0 {
		return fmt.Errorf("対象拡張子がひとつも指定されていないのだ")
	}
	return nil
}

// ExtractOptions は CLI フラグから渡される実行時のパラメータなのだ。
type ExtractOptions struct {
	// 入出力関連
	ConfigFile string   // --config: YAML設定ファイル（省略可）
	Folder     string   // --folder: 画像フォルダ（ローカル or gs://）
	OutputFile string   // --output-file
	Extensions []string // --extensions

	// プロンプト関連
	Language     string // --language
	TemplateKey  string // --template: basic / detailed / structured など
	ReadingOrder string // --reading-order: right-to-left / left-to-right

	// 翻訳関連
	Translate        bool   // --translate
	SourceLanguage   string // --source-language
	TargetLanguage   string // --target-language
	TranslateStyle   string // --translate-style: natural / literal / localized
	TranslateMode    string // --translate-mode: inline / separate / both
	PreserveOriginal bool   // --preserve-original

	// 前処理関連
	Preprocess   bool // --preprocess
	MaxWidth     int
	MaxHeight    int
	Contrast     bool
	ContrastPct  float64
	Sharpen      bool
	SharpenSigma float64
	JPEGQuality  int

	// レポート整形
	IncludeFilename  bool
	AddPageNumbers   bool
	IncludeTimestamp bool
	SeparatePages    bool

	// 実行制御
	RateInterval    time.Duration // --rate-interval
	ContinueOnError bool          // --continue-on-error
	Workers         int           // --workers: 2以上で並列処理

	// デバッグ
	SaveProcessed bool
	SaveResponses bool
	DebugDir      string
}

// DefaultOptions は全フィールドを既定値で埋めた ExtractOptions を返すのだ。
func DefaultOptions() ExtractOptions {
	return ExtractOptions{
		Folder:     DefaultFolder,
		OutputFile: DefaultOutputFile,
		Extensions: append([]string(nil), DefaultExtensions...),

		Language:     DefaultLanguage,
		TemplateKey:  DefaultTemplateKey,
		ReadingOrder: DefaultReadingOrder,

		SourceLanguage:   DefaultSourceLanguage,
		TargetLanguage:   DefaultTargetLanguage,
		TranslateStyle:   DefaultTranslateStyle,
		TranslateMode:    DefaultTranslateMode,
		PreserveOriginal: true,

		Preprocess:   true,
		MaxWidth:     DefaultMaxWidth,
		MaxHeight:    DefaultMaxHeight,
		Contrast:     true,
		ContrastPct:  DefaultContrastPct,
		Sharpen:      true,
		SharpenSigma: DefaultSharpenSigma,
		JPEGQuality:  DefaultJPEGQuality,

		IncludeFilename:  true,
		AddPageNumbers:   true,
		IncludeTimestamp: true,
		SeparatePages:    true,

		RateInterval:    DefaultRateInterval,
		ContinueOnError: true,
		Workers:         1,

		DebugDir: DefaultDebugDir,
	}
}

// ApplyFile は YAML 設定ファイルの値を上書き適用するのだ。
// 指定が無いキーは触らないので、ファイル側は差分だけ書けばよいのだ。
func (c *Config) ApplyFile(path string) error {
	if path == "" {
		return nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("設定ファイルの読み込みに失敗したのだ %s: %w", path, err)
	}

	if v.IsSet("model") {
		c.GeminiModel = v.GetString("model")
	}
	o := &c.Options
	if v.IsSet("folder") {
		o.Folder = v.GetString("folder")
	}
	if v.IsSet("output_file") {
		o.OutputFile = v.GetString("output_file")
	}
	if v.IsSet("extensions") {
		o.Extensions = v.GetStringSlice("extensions")
	}
	if v.IsSet("language") {
		o.Language = v.GetString("language")
	}
	if v.IsSet("template") {
		o.TemplateKey = v.GetString("template")
	}
	if v.IsSet("reading_order") {
		o.ReadingOrder = v.GetString("reading_order")
	}
	if v.IsSet("translate.enabled") {
		o.Translate = v.GetBool("translate.enabled")
	}
	if v.IsSet("translate.source_language") {
		o.SourceLanguage = v.GetString("translate.source_language")
	}
	if v.IsSet("translate.target_language") {
		o.TargetLanguage = v.GetString("translate.target_language")
	}
	if v.IsSet("translate.style") {
		o.TranslateStyle = v.GetString("translate.style")
	}
	if v.IsSet("translate.mode") {
		o.TranslateMode = v.GetString("translate.mode")
	}
	if v.IsSet("translate.preserve_original") {
		o.PreserveOriginal = v.GetBool("translate.preserve_original")
	}
	if v.IsSet("preprocess.enabled") {
		o.Preprocess = v.GetBool("preprocess.enabled")
	}
	if v.IsSet("preprocess.max_width") {
		o.MaxWidth = v.GetInt("preprocess.max_width")
	}
	if v.IsSet("preprocess.max_height") {
		o.MaxHeight = v.GetInt("preprocess.max_height")
	}
	if v.IsSet("preprocess.contrast") {
		o.Contrast = v.GetBool("preprocess.contrast")
	}
	if v.IsSet("preprocess.contrast_pct") {
		o.ContrastPct = v.GetFloat64("preprocess.contrast_pct")
	}
	if v.IsSet("preprocess.sharpen") {
		o.Sharpen = v.GetBool("preprocess.sharpen")
	}
	if v.IsSet("preprocess.sharpen_sigma") {
		o.SharpenSigma = v.GetFloat64("preprocess.sharpen_sigma")
	}
	if v.IsSet("preprocess.jpeg_quality") {
		o.JPEGQuality = v.GetInt("preprocess.jpeg_quality")
	}
	if v.IsSet("report.include_filename") {
		o.IncludeFilename = v.GetBool("report.include_filename")
	}
	if v.IsSet("report.add_page_numbers") {
		o.AddPageNumbers = v.GetBool("report.add_page_numbers")
	}
	if v.IsSet("report.include_timestamp") {
		o.IncludeTimestamp = v.GetBool("report.include_timestamp")
	}
	if v.IsSet("report.separate_pages") {
		o.SeparatePages = v.GetBool("report.separate_pages")
	}
	if v.IsSet("rate_interval") {
		o.RateInterval = v.GetDuration("rate_interval")
	}
	if v.IsSet("continue_on_error") {
		o.ContinueOnError = v.GetBool("continue_on_error")
	}
	if v.IsSet("workers") {
		o.Workers = v.GetInt("workers")
	}
	return nil
}
