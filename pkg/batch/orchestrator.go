// Package batch は、フォルダ単位のOCRバッチ処理を統括します。
// 列挙 → 前処理 → 指示文つき認識リクエスト → 整形 → レポート書き出し、を
// 1ファイルずつ順番に（設定によっては固定ペースの並列で）進めます。
package batch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/shouni/go-remote-io/pkg/remoteio"

	"github.com/shouni/go-manga-ocr/pkg/domain"
	"github.com/shouni/go-manga-ocr/pkg/report"
	"github.com/shouni/go-manga-ocr/pkg/vision"
)

// ErrNoPagesExtracted は、1枚も抽出に成功しなかったバッチの失敗を示すのだ。
// この場合レポートファイルは書かれないのだ。
var ErrNoPagesExtracted = errors.New("どの画像からもテキストを抽出できなかったのだ")

// Preprocessor は、画像1枚を送信可能な形へ変換するインターフェースです。
type Preprocessor interface {
	Process(path string, r io.Reader) (*domain.PageImage, error)
}

// Options はバッチ実行の制御パラメータです。
type Options struct {
	Model           string        // レポートヘッダに記録するモデル名
	OutputFile      string        // レポートの出力先（ローカル or gs://）
	Extensions      []string      // 対象とする拡張子
	RateInterval    time.Duration // リクエスト間の固定間隔
	ContinueOnError bool          // false なら最初の失敗でバッチ全体を中断する
	Workers         int           // 1 なら逐次。2以上で固定ペースの並列処理
	SaveProcessed   bool          // デバッグ: 前処理済み画像を保存する
	SaveResponses   bool          // デバッグ: 生レスポンスを保存する
	DebugDir        string        // デバッグ成果物の置き場所
}

// Orchestrator は1バッチ分の処理を取りまとめる構造体なのだ。
type Orchestrator struct {
	pre          Preprocessor
	recognizer   vision.Recognizer
	reader       remoteio.InputReader
	formatter    *report.Formatter
	reportWriter *report.Writer
	debugWriter  remoteio.OutputWriter
	prompt       string
	limiter      *rate.Limiter
	opts         Options
}

// New は Orchestrator を組み立てて返すのだ。
// prompt は実行中の設定に対して一定なので、構築時に確定させて渡すのだ。
func New(
	pre Preprocessor,
	recognizer vision.Recognizer,
	reader remoteio.InputReader,
	formatter *report.Formatter,
	reportWriter *report.Writer,
	debugWriter remoteio.OutputWriter,
	prompt string,
	opts Options,
) *Orchestrator {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.RateInterval <= 0 {
		opts.RateInterval = time.Second
	}

	return &Orchestrator{
		pre:          pre,
		recognizer:   recognizer,
		reader:       reader,
		formatter:    formatter,
		reportWriter: reportWriter,
		debugWriter:  debugWriter,
		prompt:       prompt,
		limiter:      rate.NewLimiter(rate.Every(opts.RateInterval), 1),
		opts:         opts,
	}
}

// Run はフォルダ内の対象ファイルをすべて処理し、集計結果を返すのだ。
// 1枚でも成功すればレポートを書き出し、ゼロ枚なら ErrNoPagesExtracted を返すのだ。
func (o *Orchestrator) Run(ctx context.Context, folder string) (domain.RunStats, error) {
	files, err := ListPageFiles(folder, o.opts.Extensions)
	if err != nil {
		return domain.RunStats{}, err
	}
	if len(files) == 0 {
		slog.Warn("対応する画像ファイルが見つからなかったのだ", "folder", folder)
		return domain.RunStats{}, fmt.Errorf("%w: %s", ErrNoPagesExtracted, folder)
	}

	slog.Info("OCRバッチ処理を開始するのだ",
		"folder", folder, "files", len(files), "workers", o.opts.Workers, "interval", o.opts.RateInterval)

	var outcomes []PageOutcome
	if o.opts.Workers > 1 {
		outcomes, err = o.runParallel(ctx, files)
	} else {
		outcomes, err = o.runSequential(ctx, files)
	}
	if err != nil {
		// continue-on-error 無効時の中断。レポートは一切書かないのだ。
		return foldStats(outcomes, len(files)), err
	}

	stats, sections := o.fold(outcomes, len(files))
	if stats.Succeeded == 0 {
		slog.Warn("1枚も抽出できなかったので、レポートは書かないのだ")
		return stats, ErrNoPagesExtracted
	}

	header := o.formatter.FormatHeader(o.opts.Model, stats, time.Now())
	if err := o.reportWriter.Write(ctx, o.opts.OutputFile, header, sections); err != nil {
		// 全ページ抽出済みでも、レポートが書けなければバッチとしては失敗なのだ。
		return stats, err
	}

	slog.Info("OCRバッチ処理が完了したのだ",
		"output", o.opts.OutputFile, "succeeded", stats.Succeeded, "errored", stats.Errored)
	return stats, nil
}

// runSequential は1ファイルずつ順番に処理するのだ。これが既定の動作なのだ。
func (o *Orchestrator) runSequential(ctx context.Context, files []string) ([]PageOutcome, error) {
	outcomes := make([]PageOutcome, 0, len(files))
	for i, path := range files {
		slog.Info("処理中なのだ", "progress", fmt.Sprintf("%d/%d", i+1, len(files)), "file", filepath.Base(path))

		outcome := o.processFile(ctx, path, i+1)
		outcomes = append(outcomes, outcome)

		if outcome.Err != nil && !o.opts.ContinueOnError {
			return outcomes, fmt.Errorf("ページ %d (%s) で中断したのだ: %w", outcome.Page, filepath.Base(path), outcome.Err)
		}
	}
	return outcomes, nil
}

// runParallel は、共有レートリミッタで固定ペースを保ちながら並列処理するのだ。
// 結果はインデックス書き込みなので、ページ順は並び替えなしで保たれるのだ。
func (o *Orchestrator) runParallel(ctx context.Context, files []string) ([]PageOutcome, error) {
	outcomes := make([]PageOutcome, len(files))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(o.opts.Workers)

	for i, path := range files {
		i, path := i, path
		eg.Go(func() error {
			outcome := o.processFile(egCtx, path, i+1)
			outcomes[i] = outcome

			if outcome.Err != nil && !o.opts.ContinueOnError {
				return fmt.Errorf("ページ %d (%s) で中断したのだ: %w", outcome.Page, filepath.Base(path), outcome.Err)
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return outcomes, err
	}
	return outcomes, nil
}

// processFile は1ファイル分の工程（読込→前処理→認識）をまとめて実行するのだ。
// どの工程で落ちても、理由つきの PageOutcome として返すのだよ。
func (o *Orchestrator) processFile(ctx context.Context, path string, page int) PageOutcome {
	base := filepath.Base(path)

	rc, err := o.reader.Open(ctx, path)
	if err != nil {
		slog.Error("ファイルを開けなかったのだ", "file", base, "stage", StagePreprocess, "error", err)
		return PageOutcome{File: path, Page: page, Stage: StagePreprocess, Err: err}
	}
	defer rc.Close()

	img, err := o.pre.Process(path, rc)
	if err != nil {
		slog.Error("前処理に失敗したのだ", "file", base, "stage", StagePreprocess, "error", err)
		return PageOutcome{File: path, Page: page, Stage: StagePreprocess, Err: err}
	}
	o.saveProcessedImage(ctx, base, img)

	// 固定間隔のクライアント側レートリミットなのだ。サーバ側の抑制には反応しないのだ。
	if err := o.limiter.Wait(ctx); err != nil {
		return PageOutcome{File: path, Page: page, Stage: StageRecognize, Err: err}
	}

	text, err := o.recognizer.Recognize(ctx, o.prompt, img)
	if err != nil {
		if errors.Is(err, vision.ErrEmptyResult) {
			// 通信は成功したがテキストなし。ハード障害とは区別して警告どまりなのだ。
			slog.Warn("テキストが抽出されなかったのだ", "file", base, "stage", StageRecognize)
		} else {
			slog.Error("認識リクエストに失敗したのだ", "file", base, "stage", StageRecognize, "error", err)
		}
		return PageOutcome{File: path, Page: page, Stage: StageRecognize, Err: err}
	}
	o.saveRawResponse(ctx, base, text)

	slog.Info("抽出に成功したのだ", "file", base, "page", page, "chars", len(text))
	return PageOutcome{
		File: path,
		Page: page,
		Result: &domain.PageResult{
			Filename: base,
			Page:     page,
			Text:     text,
		},
	}
}

// fold は結果列を集計し、成功分だけをレポート用セクションへ整形するのだ。
func (o *Orchestrator) fold(outcomes []PageOutcome, total int) (domain.RunStats, []string) {
	stats := foldStats(outcomes, total)
	sections := make([]string, 0, stats.Succeeded)
	for _, outcome := range outcomes {
		if outcome.OK() {
			sections = append(sections, o.formatter.FormatPage(*outcome.Result, time.Now()))
		}
	}
	return stats, sections
}

// foldStats は試行済みの結果からカウンタを集計するのだ。
func foldStats(outcomes []PageOutcome, total int) domain.RunStats {
	stats := domain.RunStats{Total: total}
	for _, outcome := range outcomes {
		switch {
		case outcome.OK():
			stats.Succeeded++
		case outcome.Err != nil:
			stats.Errored++
		}
	}
	return stats
}

// saveProcessedImage は前処理済み画像をデバッグ用に保存するのだ。失敗しても本処理には影響させないのだ。
func (o *Orchestrator) saveProcessedImage(ctx context.Context, base string, img *domain.PageImage) {
	if !o.opts.SaveProcessed || o.debugWriter == nil {
		return
	}
	name := "processed_" + strings.TrimSuffix(base, filepath.Ext(base)) + ".jpg"
	path := filepath.Join(o.opts.DebugDir, name)
	if err := o.debugWriter.Write(ctx, path, bytes.NewReader(img.Data), img.MIMEType); err != nil {
		slog.Warn("デバッグ画像の保存に失敗したのだ", "file", base, "error", err)
	}
}

// saveRawResponse はAPIの生レスポンスをデバッグ用に保存するのだ。
func (o *Orchestrator) saveRawResponse(ctx context.Context, base, text string) {
	if !o.opts.SaveResponses || o.debugWriter == nil {
		return
	}
	path := filepath.Join(o.opts.DebugDir, "response_"+base+".txt")
	if err := o.debugWriter.Write(ctx, path, strings.NewReader(text), "text/plain; charset=utf-8"); err != nil {
		slog.Warn("生レスポンスの保存に失敗したのだ", "file", base, "error", err)
	}
}
