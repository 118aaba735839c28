// Package report は、抽出結果の整形と1バッチ1ファイルのレポート書き出しを担います。
package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shouni/go-remote-io/pkg/remoteio"

	"github.com/shouni/go-manga-ocr/pkg/domain"
)

const (
	pageSeparator  = "================================================================================"
	contentDivider = "----------------------------------------"
	timeLayout     = "2006-01-02 15:04:05"
)

// Options はページセクションに含めるフィールドの切り替えです。分岐はこれだけで、他はただの整形です。
type Options struct {
	IncludeFilename  bool
	AddPageNumbers   bool
	IncludeTimestamp bool
	SeparatePages    bool
}

// Formatter はページセクションとレポートヘッダを組み立てる純粋な整形器なのだ。
type Formatter struct {
	opts Options
}

// NewFormatter は新しい Formatter を生成して返すのだ。
func NewFormatter(opts Options) *Formatter {
	return &Formatter{opts: opts}
}

// FormatPage は1ページ分のセクションを整形するのだ。
// セパレータ、ファイル名、ページ番号、タイムスタンプはそれぞれ設定で含有を切り替えるのだ。
func (f *Formatter) FormatPage(res domain.PageResult, now time.Time) string {
	var parts []string

	if f.opts.SeparatePages && res.Page > 1 {
		parts = append(parts, "\n"+pageSeparator)
	}
	if f.opts.IncludeFilename {
		parts = append(parts, fmt.Sprintf("File: %s", res.Filename))
	}
	if f.opts.AddPageNumbers {
		parts = append(parts, fmt.Sprintf("Page: %d", res.Page))
	}
	if f.opts.IncludeTimestamp {
		parts = append(parts, fmt.Sprintf("Processed: %s", now.Format(timeLayout)))
	}

	parts = append(parts, contentDivider)
	parts = append(parts, res.Text)

	return strings.Join(parts, "\n") + "\n"
}

// FormatHeader は実行統計つきのレポートヘッダを整形するのだ。
func (f *Formatter) FormatHeader(model string, stats domain.RunStats, now time.Time) string {
	return fmt.Sprintf(
		"Manga OCR Results - Generated on %s\n"+
			"Model: %s\n"+
			"Total Images Processed: %d\n"+
			"Successful Extractions: %d\n"+
			"Errors: %d\n"+
			"%s\n\n",
		now.Format(timeLayout), model, stats.Total, stats.Succeeded, stats.Errored, pageSeparator)
}

// Writer は、整形済みレポートをひとつの成果物として書き出すのだ。
// 出力先は remoteio 経由なので、ローカルパスでも gs:// でも同じコードで書けるのだよ。
type Writer struct {
	out remoteio.OutputWriter
}

// NewWriter は新しい Writer を生成して返すのだ。
func NewWriter(out remoteio.OutputWriter) *Writer {
	return &Writer{out: out}
}

// Write はヘッダと全セクションを結合して1ファイルに書き出すのだ。
// 1回のバッチで書くのはこの1回だけ、部分上書きはしないのだ。
func (w *Writer) Write(ctx context.Context, path, header string, sections []string) error {
	content := header + strings.Join(sections, "\n")
	if err := w.out.Write(ctx, path, strings.NewReader(content), "text/plain; charset=utf-8"); err != nil {
		return fmt.Errorf("レポートの書き込みに失敗しました %s: %w", path, err)
	}
	return nil
}
