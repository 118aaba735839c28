package builder

import (
	"github.com/shouni/go-manga-ocr/internal/config"

	"github.com/shouni/go-remote-io/pkg/remoteio"

	"github.com/shouni/go-manga-ocr/pkg/vision"
)

// AppContext は、アプリケーション実行に必要な共通コンテキストを保持する
// これを各Build関数に渡すことで、依存関係の注入を簡素化します。
type AppContext struct {
	Config     *config.Config        // Configは、環境変数から読み込まれたグローバルな設定です（APIキーなど）。
	Options    config.ExtractOptions // Optionsは、コマンドラインから渡された実行時の設定です（フォルダ、モデル名など）。
	Reader     remoteio.InputReader  // Readerは、画像ファイルの読み込みに使用する入力元です。
	Writer     remoteio.OutputWriter // Writerは、抽出結果レポートを保存するための出力先です。
	Recognizer vision.Recognizer     // Recognizerは、画像1枚からテキストを抽出する認識クライアントです。
	Translator vision.Translator     // Translatorは、テキスト単体の翻訳に使う生成クライアントです。
}

// NewAppContext は AppContext の新しいインスタンスを生成する
func NewAppContext(
	cfg *config.Config,
	reader remoteio.InputReader,
	writer remoteio.OutputWriter,
	recognizer vision.Recognizer,
	translator vision.Translator,
) AppContext {
	return AppContext{
		Config:     cfg,
		Options:    cfg.Options,
		Reader:     reader,
		Writer:     writer,
		Recognizer: recognizer,
		Translator: translator,
	}
}
