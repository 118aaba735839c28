package domain

// PageImage は、前処理済みの1ページ分の画像データを保持する構造体なのだ。
// Preprocessor が生成し、認識呼び出しが終わったら破棄される一時データなのだよ。
type PageImage struct {
	SourcePath string // 元ファイルのパス
	MIMEType   string // 送信時のMIMEタイプ（例: image/jpeg）
	Data       []byte // エンコード済みの画像バイト列
	Width      int
	Height     int
}

// PageResult は、1ページ分の抽出結果とその出典を紐づけるのだ。
// Page はバッチ内でファイル名を辞書順に並べたときの1始まりの位置なのだ。
type PageResult struct {
	Filename string
	Page     int
	Text     string
}

// RunStats は、バッチ実行全体の集計カウンタです。
// Succeeded + Errored は Total を超えません。
type RunStats struct {
	Total     int
	Succeeded int
	Errored   int
}
