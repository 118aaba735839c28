package preprocess

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
)

// makePNG はテスト用の単色PNGをメモリ上に作るのだ。
func makePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 200, B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("テスト画像の生成に失敗したのだ: %v", err)
	}
	return buf.Bytes()
}

func TestPreprocessor_Process(t *testing.T) {
	t.Run("正常な画像はJPEGへ正規化されるのだ", func(t *testing.T) {
		p := New(Options{Enabled: true, MaxWidth: 1920, MaxHeight: 1920, JPEGQuality: 90})
		data := makePNG(t, 64, 48)

		page, err := p.Process("page01.png", bytes.NewReader(data))
		if err != nil {
			t.Fatalf("前処理が失敗したのだ: %v", err)
		}
		if page.MIMEType != "image/jpeg" {
			t.Errorf("MIMEタイプが違うのだ: %s", page.MIMEType)
		}
		if page.Width != 64 || page.Height != 48 {
			t.Errorf("サイズが変わってしまったのだ: %dx%d", page.Width, page.Height)
		}
		if len(page.Data) == 0 {
			t.Error("エンコード結果が空なのだ")
		}
	})

	t.Run("上限を超える画像は比率を保って縮小されるのだ", func(t *testing.T) {
		p := New(Options{Enabled: true, MaxWidth: 100, MaxHeight: 100})
		data := makePNG(t, 400, 200)

		page, err := p.Process("big.png", bytes.NewReader(data))
		if err != nil {
			t.Fatalf("前処理が失敗したのだ: %v", err)
		}
		if page.Width != 100 || page.Height != 50 {
			t.Errorf("縮小後サイズが期待と違うのだ: %dx%d", page.Width, page.Height)
		}
	})

	t.Run("壊れたデータには前処理エラーを返すのだ", func(t *testing.T) {
		p := New(Options{Enabled: true})
		_, err := p.Process("broken.png", strings.NewReader("これは画像ではないのだ"))
		if err == nil {
			t.Fatal("エラーになるべきなのだ")
		}
		var perr *Error
		if !errors.As(err, &perr) {
			t.Errorf("エラー型が *Error ではないのだ: %T", err)
		}
		if perr.Path != "broken.png" {
			t.Errorf("エラーに元パスが入っていないのだ: %s", perr.Path)
		}
	})

	t.Run("前処理無効なら元バイト列を素通しするのだ", func(t *testing.T) {
		p := New(Options{Enabled: false})
		data := makePNG(t, 10, 10)

		page, err := p.Process("raw.png", bytes.NewReader(data))
		if err != nil {
			t.Fatalf("素通しに失敗したのだ: %v", err)
		}
		if !bytes.Equal(page.Data, data) {
			t.Error("素通しのはずがデータが変わっているのだ")
		}
		if page.MIMEType != "image/png" {
			t.Errorf("拡張子由来のMIMEタイプが違うのだ: %s", page.MIMEType)
		}
	})
}

func TestMIMETypeByExt(t *testing.T) {
	cases := map[string]string{
		"a.JPG":   "image/jpeg",
		"b.png":   "image/png",
		"c.webp":  "image/webp",
		"d.TIFF":  "image/tiff",
		"e.bmp":   "image/bmp",
		"f.gif":   "image/gif",
		"unknown": "",
	}
	for path, want := range cases {
		if got := MIMETypeByExt(path); got != want {
			t.Errorf("%s: 期待 %q, 実際 %q", path, want, got)
		}
	}
}
