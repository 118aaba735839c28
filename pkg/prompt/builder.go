package prompt

import (
	"fmt"
	"strings"
)

// 翻訳スタイルの定義なのだ。
const (
	StyleNatural   = "natural"   // 流暢で文脈に沿った訳
	StyleLiteral   = "literal"   // 原文の構造を保った訳
	StyleLocalized = "localized" // 文化的な言い回しに合わせた訳
)

// 翻訳出力モードの定義なのだ。
const (
	ModeInline   = "inline"   // 原文と訳文をユニットごとにペアで出す
	ModeSeparate = "separate" // 原文ブロックと訳文ブロックを分けて出す
	ModeBoth     = "both"     // 詳細ペア + 原文のみ + 訳文のみ の3ブロック
)

// 読み順の定義なのだ。
const (
	ReadingRightToLeft = "right-to-left"
	ReadingLeftToRight = "left-to-right"
)

// TranslationOptions は翻訳指示ブロックのパラメータです。
// ゼロ値のフィールドは Build 時に既定値（無効 / Chinese→English / natural / inline）へ正規化されます。
type TranslationOptions struct {
	Enabled          bool
	SourceLanguage   string
	TargetLanguage   string
	Style            string
	Mode             string
	PreserveOriginal bool
}

// Options は、1枚の画像に添えるOCR指示文を組み立てるための全設定です。
type Options struct {
	TemplateKey  string // 使用するベーステンプレートのキー
	Language     string // 対象漫画の言語（Chinese / Japanese など）
	ReadingOrder string // right-to-left なら空間順序の指示を追加する
	Translation  TranslationOptions
}

// Builder は、設定に応じてOCRプロンプトを組み立てる構造体なのだ。
// 同じ Options からは常に同じ文字列が得られる（決定的）のだよ。
type Builder struct {
	templates map[string]string
}

// New は組み込みテンプレートを登録した Builder を返すのだ。
func New() *Builder {
	tmpls := make(map[string]string, len(builtinTemplates))
	for k, v := range builtinTemplates {
		tmpls[k] = strings.TrimSpace(v)
	}
	return &Builder{templates: tmpls}
}

// Register は独自テンプレートを追加・上書きするのだ。空の内容は無視するのだ。
func (b *Builder) Register(key, content string) {
	content = strings.TrimSpace(content)
	if key == "" || content == "" {
		return
	}
	b.templates[key] = content
}

// Build は、ベーステンプレートの選択と指示ブロックの追記を行い、最終的なプロンプトを返すのだ。
// 失敗することはなく、欠けた設定は既定値で埋められるのだ。
func (b *Builder) Build(opts Options) string {
	opts.Translation = normalizeTranslation(opts.Translation)

	key, base := b.selectBase(opts)
	var sb strings.Builder
	sb.WriteString(base)

	// 選択済みテンプレートが翻訳専用でない場合に限り、翻訳指示を追記するのだ。
	if opts.Translation.Enabled && !strings.HasSuffix(key, "_translate") {
		sb.WriteString(translationBlock(opts.Translation))
	}

	// 右から左に読む漫画のときだけ、空間順序の指示を追記するのだ。
	if opts.ReadingOrder == ReadingRightToLeft {
		sb.WriteString(spatialInstructions)
	}

	return sb.String()
}

// selectBase はベーステンプレートを一意の優先順位で決定するのだ。
// 優先順位: 翻訳有効時の中国語専用テンプレート > 言語既定の上書き（basic 指定時のみ）
// > 指定キー > basic > 最終フォールバック。
func (b *Builder) selectBase(opts Options) (string, string) {
	lang := strings.ToLower(strings.TrimSpace(opts.Language))

	// 1. 中国語 + 翻訳有効なら、翻訳込みテンプレートを最優先で使うのだ。
	if lang == "chinese" && opts.Translation.Enabled {
		if t, ok := b.templates[KeyChineseTranslate]; ok {
			return KeyChineseTranslate, t
		}
		if t, ok := b.templates[KeyChinese]; ok {
			return KeyChinese, t
		}
	}

	// 2. 指定が basic のままなら、言語名と同名のテンプレートで上書きするのだ。
	if opts.TemplateKey == KeyBasic || opts.TemplateKey == "" {
		if t, ok := b.templates[lang]; ok {
			return lang, t
		}
	}

	// 3. 指定されたキー、だめなら basic、最後は固定文なのだ。
	if t, ok := b.templates[opts.TemplateKey]; ok {
		return opts.TemplateKey, t
	}
	if t, ok := b.templates[KeyBasic]; ok {
		return KeyBasic, t
	}
	return "", fallbackInstruction
}

// normalizeTranslation は未設定のフィールドを文書化された既定値で埋めるのだ。
func normalizeTranslation(t TranslationOptions) TranslationOptions {
	if t.SourceLanguage == "" {
		t.SourceLanguage = "Chinese"
	}
	if t.TargetLanguage == "" {
		t.TargetLanguage = "English"
	}
	if t.Style == "" {
		t.Style = StyleNatural
	}
	if t.Mode == "" {
		t.Mode = ModeInline
	}
	return t
}

// translationBlock は翻訳指示ブロックを組み立てるのだ。
// mode に応じた出力フォーマット指定を、必ずひとつだけ含めるのだよ。
func translationBlock(t TranslationOptions) string {
	preserve := "No"
	if t.PreserveOriginal {
		preserve = "Yes"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`

TRANSLATION INSTRUCTIONS:
- Translate all extracted %s text to %s
- Translation style: %s
- Preserve original text: %s
- Output mode: %s

Translation Guidelines:
- For 'natural' style: Provide fluent, contextual translations
- For 'literal' style: Stay close to original meaning and structure
- For 'localized' style: Adapt cultural references and idioms
- Maintain the emotional tone and character personality
- Keep sound effects descriptive but culturally appropriate`,
		t.SourceLanguage, t.TargetLanguage, t.Style, preserve, t.Mode))

	target := strings.ToUpper(t.TargetLanguage)
	switch t.Mode {
	case ModeSeparate:
		sb.WriteString(fmt.Sprintf(`

OUTPUT FORMAT (Separate):
=== ORIGINAL TEXT ===
[All original text in reading order]

=== %s TRANSLATION ===
[All translations in same order]`, target))
	case ModeBoth:
		sb.WriteString(`

OUTPUT FORMAT (Both):
=== DETAILED EXTRACTION ===
Panel X: [Original] → [Translation]

=== ORIGINAL TEXT ONLY ===
[All original text]

=== TRANSLATIONS ONLY ===
[All translations]`)
	default: // inline
		sb.WriteString(`

OUTPUT FORMAT (Inline):
Panel X: [Original text] → [Translation]`)
	}

	return sb.String()
}

// spatialInstructions は右→左読みの漫画向けの固定指示なのだ。
// パネルの巡回順と吹き出しの読み順をAIに叩き込むための文面なのだよ。
const spatialInstructions = `

CRITICAL SPATIAL INSTRUCTIONS FOR MANGA:
- The page flows from RIGHT to LEFT, TOP to BOTTOM
- Panel 1 is at the TOP-RIGHT corner
- Panel 2 is to the LEFT of Panel 1
- Continue LEFT across the top row
- Drop down to the next row and start again from the RIGHT
- Within each panel, speech bubbles follow RIGHT-TO-LEFT flow
- Vertical text reads TOP-TO-BOTTOM
- Pay attention to panel borders and speech bubble tails to determine reading sequence

Please number and extract text in this precise order, indicating the spatial position of each text element.`

// BuildTranslationPrompt は、抽出済みテキストだけを翻訳させるテキスト専用プロンプトを返すのだ。
func (b *Builder) BuildTranslationPrompt(text string, t TranslationOptions) string {
	t = normalizeTranslation(t)
	return fmt.Sprintf(`Translate the following %s text to %s.

Translation style: %s
- For 'natural': Provide fluent, contextual translations
- For 'literal': Stay close to original meaning
- For 'localized': Adapt cultural references

Text to translate:
%s

Provide only the translation, maintaining the original formatting and structure.`,
		t.SourceLanguage, t.TargetLanguage, t.Style, text)
}
