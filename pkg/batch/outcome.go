package batch

import "github.com/shouni/go-manga-ocr/pkg/domain"

// Stage は、ファイルがどの工程で落ちたかを示すラベルなのだ。ログとレポートの診断用なのだ。
type Stage string

const (
	StagePreprocess Stage = "preprocess"
	StageRecognize  Stage = "recognize"
)

// PageOutcome は1ファイル分の処理結果なのだ。
// 成功（Result あり）か、理由つきスキップ（Err あり）のどちらかを必ず持つのだ。
// 例外的な制御フローではなく、この値の畳み込みでスキップ方針を表現するのだよ。
type PageOutcome struct {
	File   string
	Page   int // 辞書順での1始まりの位置。失敗したファイルも位置は消費するのだ。
	Result *domain.PageResult
	Stage  Stage
	Err    error
}

// OK は抽出に成功したかどうかを返すのだ。
func (o PageOutcome) OK() bool {
	return o.Err == nil && o.Result != nil
}
