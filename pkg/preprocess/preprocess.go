// Package preprocess は、認識呼び出しの前段で行う画像の正規化を担います。
// デコード、縮小、コントラスト・シャープネス調整までで、認識そのものは行いません。
package preprocess

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/shouni/go-manga-ocr/pkg/domain"

	// webp はデコードのみ対応なのだ
	_ "golang.org/x/image/webp"
)

// Error は、画像が開けない・壊れている場合の前処理エラーなのだ。
// 該当ファイルはスキップ対象としてカウントされるのだよ。
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("前処理に失敗したのだ %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Options は前処理の挙動を制御する設定です。
type Options struct {
	Enabled      bool    // false の場合は元バイト列をそのまま通す
	MaxWidth     int     // これを超える画像は Lanczos で縮小する
	MaxHeight    int
	Contrast     bool    // コントラスト強調の有無
	ContrastPct  float64 // 強調率（%）
	Sharpen      bool    // シャープネス強調の有無
	SharpenSigma float64
	JPEGQuality  int // 再エンコード時のJPEG品質
}

// Preprocessor は1ファイル分の画像を読み込み、送信用の PageImage に変換します。
type Preprocessor struct {
	opts Options
}

// New は新しい Preprocessor を生成して返すのだ。
func New(opts Options) *Preprocessor {
	if opts.JPEGQuality <= 0 || opts.JPEGQuality > 100 {
		opts.JPEGQuality = 95
	}
	return &Preprocessor{opts: opts}
}

// Process は画像を読み込み、正規化済みの PageImage を返すのだ。
// デコードできないデータには *Error を返すのだよ。
func (p *Preprocessor) Process(path string, r io.Reader) (*domain.PageImage, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, &Error{Path: path, Err: err}
	}

	// 前処理が無効なら、拡張子からMIMEタイプだけ決めて素通しするのだ。
	if !p.opts.Enabled {
		return &domain.PageImage{
			SourcePath: path,
			MIMEType:   MIMETypeByExt(path),
			Data:       raw,
		}, nil
	}

	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, &Error{Path: path, Err: err}
	}

	// 大きすぎる画像はアスペクト比を保ったまま縮小するのだ。
	bounds := img.Bounds()
	if p.opts.MaxWidth > 0 && p.opts.MaxHeight > 0 &&
		(bounds.Dx() > p.opts.MaxWidth || bounds.Dy() > p.opts.MaxHeight) {
		img = imaging.Fit(img, p.opts.MaxWidth, p.opts.MaxHeight, imaging.Lanczos)
		slog.Info("画像を縮小したのだ",
			"file", filepath.Base(path),
			"width", img.Bounds().Dx(),
			"height", img.Bounds().Dy())
	}

	if p.opts.Contrast {
		img = imaging.AdjustContrast(img, p.opts.ContrastPct)
	}
	if p.opts.Sharpen {
		img = imaging.Sharpen(img, p.opts.SharpenSigma)
	}

	// JPEGへ再エンコードすることで色モードも同時に正規化されるのだ。
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(p.opts.JPEGQuality)); err != nil {
		return nil, &Error{Path: path, Err: err}
	}

	final := img.Bounds()
	return &domain.PageImage{
		SourcePath: path,
		MIMEType:   "image/jpeg",
		Data:       buf.Bytes(),
		Width:      final.Dx(),
		Height:     final.Dy(),
	}, nil
}

// MIMETypeByExt は拡張子から送信用MIMEタイプを引くのだ。未知の拡張子は空文字なのだ。
func MIMETypeByExt(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".bmp":
		return "image/bmp"
	case ".tiff", ".tif":
		return "image/tiff"
	default:
		return ""
	}
}
