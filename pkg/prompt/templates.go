package prompt

import (
	_ "embed"
)

// テンプレートキーの定義なのだ。
const (
	KeyBasic            = "basic"
	KeyDetailed         = "detailed"
	KeyStructured       = "structured"
	KeyJapanese         = "japanese"
	KeyChinese          = "chinese"
	KeyChineseTranslate = "chinese_translate"
)

//go:embed templates/basic.md
var basicTemplate string

//go:embed templates/detailed.md
var detailedTemplate string

//go:embed templates/structured.md
var structuredTemplate string

//go:embed templates/japanese.md
var japaneseTemplate string

//go:embed templates/chinese.md
var chineseTemplate string

//go:embed templates/chinese_translate.md
var chineseTranslateTemplate string

// builtinTemplates はキーとテンプレート文字列を紐づけるマップなのだ。
var builtinTemplates = map[string]string{
	KeyBasic:            basicTemplate,
	KeyDetailed:         detailedTemplate,
	KeyStructured:       structuredTemplate,
	KeyJapanese:         japaneseTemplate,
	KeyChinese:          chineseTemplate,
	KeyChineseTranslate: chineseTranslateTemplate,
}

// fallbackInstruction は、どのテンプレートも引けなかった場合の最終手段なのだ。
const fallbackInstruction = "Extract all text from this image."
