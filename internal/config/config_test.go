package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	t.Run("GEMINI_API_KEY を優先して読むのだ", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "key-a")
		t.Setenv("GOOGLE_API_KEY", "key-b")

		cfg := LoadConfig()
		if cfg.GeminiAPIKey != "key-a" {
			t.Errorf("APIキーの優先順位が違うのだ: %q", cfg.GeminiAPIKey)
		}
	})

	t.Run("GEMINI_API_KEY が無ければ GOOGLE_API_KEY にフォールバックするのだ", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "")
		t.Setenv("GOOGLE_API_KEY", "key-b")

		cfg := LoadConfig()
		if cfg.GeminiAPIKey != "key-b" {
			t.Errorf("フォールバックが効いていないのだ: %q", cfg.GeminiAPIKey)
		}
	})

	t.Run("モデル名は環境変数が無ければ既定値なのだ", func(t *testing.T) {
		t.Setenv("GEMINI_MODEL", "")
		cfg := LoadConfig()
		if cfg.GeminiModel != DefaultModel {
			t.Errorf("既定モデルが違うのだ: %q", cfg.GeminiModel)
		}
	})
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{GeminiAPIKey: "k", GeminiModel: DefaultModel, Options: DefaultOptions()}
	}

	t.Run("APIキーが無いと ErrAPIKeyMissing なのだ", func(t *testing.T) {
		cfg := valid()
		cfg.GeminiAPIKey = ""
		if err := cfg.Validate(); !errors.Is(err, ErrAPIKeyMissing) {
			t.Errorf("エラー種別が違うのだ: %v", err)
		}
	})

	t.Run("workers は1以上でないとダメなのだ", func(t *testing.T) {
		cfg := valid()
		cfg.Options.Workers = 0
		if err := cfg.Validate(); err == nil {
			t.Error("エラーになるべきなのだ")
		}
	})

	t.Run("jpeg-quality の範囲外は弾くのだ", func(t *testing.T) {
		cfg := valid()
		cfg.Options.JPEGQuality = 101
		if err := cfg.Validate(); err == nil {
			t.Error("エラーになるべきなのだ")
		}
	})

	t.Run("既定値はそのまま有効なのだ", func(t *testing.T) {
		if err := valid().Validate(); err != nil {
			t.Errorf("既定値で失敗してしまったのだ: %v", err)
		}
	})
}

func TestConfig_ApplyFile(t *testing.T) {
	t.Run("YAMLに書いたキーだけ上書きするのだ", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "manga-ocr.yaml")
		yaml := `
model: gemini-2.5-pro
folder: pages
rate_interval: 2s
translate:
  enabled: true
  target_language: French
preprocess:
  jpeg_quality: 80
`
		if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
			t.Fatalf("設定ファイルの作成に失敗したのだ: %v", err)
		}

		cfg := &Config{GeminiAPIKey: "k", GeminiModel: DefaultModel, Options: DefaultOptions()}
		if err := cfg.ApplyFile(path); err != nil {
			t.Fatalf("適用に失敗したのだ: %v", err)
		}

		if cfg.GeminiModel != "gemini-2.5-pro" {
			t.Errorf("model が上書きされていないのだ: %q", cfg.GeminiModel)
		}
		if cfg.Options.Folder != "pages" {
			t.Errorf("folder が上書きされていないのだ: %q", cfg.Options.Folder)
		}
		if cfg.Options.RateInterval != 2*time.Second {
			t.Errorf("rate_interval が上書きされていないのだ: %v", cfg.Options.RateInterval)
		}
		if !cfg.Options.Translate || cfg.Options.TargetLanguage != "French" {
			t.Errorf("translate 系の上書きが効いていないのだ: %+v", cfg.Options)
		}
		if cfg.Options.JPEGQuality != 80 {
			t.Errorf("jpeg_quality が上書きされていないのだ: %d", cfg.Options.JPEGQuality)
		}
		// 書いていないキーは既定のままなのだ。
		if cfg.Options.OutputFile != DefaultOutputFile {
			t.Errorf("無関係のキーまで変わってしまったのだ: %q", cfg.Options.OutputFile)
		}
		if cfg.Options.SourceLanguage != DefaultSourceLanguage {
			t.Errorf("無関係のキーまで変わってしまったのだ: %q", cfg.Options.SourceLanguage)
		}
	})

	t.Run("空パスは何もしないのだ", func(t *testing.T) {
		cfg := &Config{Options: DefaultOptions()}
		if err := cfg.ApplyFile(""); err != nil {
			t.Errorf("空パスでエラーになってしまったのだ: %v", err)
		}
	})

	t.Run("存在しないファイルはエラーなのだ", func(t *testing.T) {
		cfg := &Config{Options: DefaultOptions()}
		if err := cfg.ApplyFile("/no/such/file.yaml"); err == nil {
			t.Error("エラーになるべきなのだ")
		}
	})
}
