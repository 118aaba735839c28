package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shouni/go-manga-ocr/pkg/domain"
	"github.com/shouni/go-manga-ocr/pkg/report"
	"github.com/shouni/go-manga-ocr/pkg/vision"
)

// --- テスト用フェイク群なのだ ---

type fakeReader struct{}

func (fakeReader) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("image-bytes")), nil
}

// fakePre は failOn に載っているファイルだけ前処理エラーにするのだ。
type fakePre struct {
	failOn map[string]bool
}

func (p *fakePre) Process(path string, r io.Reader) (*domain.PageImage, error) {
	if p.failOn[filepath.Base(path)] {
		return nil, fmt.Errorf("壊れた画像なのだ: %s", path)
	}
	return &domain.PageImage{SourcePath: path, MIMEType: "image/jpeg", Data: []byte("jpeg")}, nil
}

// fakeRecognizer はファイル名をそのまま抽出テキストとして返すのだ。
type fakeRecognizer struct {
	mu     sync.Mutex
	calls  []string
	failOn map[string]error
}

func (f *fakeRecognizer) Recognize(ctx context.Context, prompt string, img *domain.PageImage) (string, error) {
	base := filepath.Base(img.SourcePath)
	f.mu.Lock()
	f.calls = append(f.calls, base)
	f.mu.Unlock()
	if err, ok := f.failOn[base]; ok {
		return "", err
	}
	return "text-of-" + base, nil
}

type memWriter struct {
	mu       sync.Mutex
	contents map[string]string
}

func newMemWriter() *memWriter {
	return &memWriter{contents: map[string]string{}}
}

func (m *memWriter) Write(ctx context.Context, path string, r io.Reader, mimeType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contents[path] = string(data)
	return nil
}

// makeFolder はテスト用の入力フォルダを空ファイルで用意するのだ。
func makeFolder(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("テストファイルの作成に失敗したのだ: %v", err)
		}
	}
	return dir
}

func newTestOrchestrator(pre Preprocessor, rec vision.Recognizer, out *memWriter, opts Options) *Orchestrator {
	if opts.Model == "" {
		opts.Model = "test-model"
	}
	if opts.OutputFile == "" {
		opts.OutputFile = "out/report.txt"
	}
	if len(opts.Extensions) == 0 {
		opts.Extensions = []string{".png", ".jpg", ".jpeg", ".bmp"}
	}
	opts.RateInterval = time.Millisecond

	formatter := report.NewFormatter(report.Options{
		IncludeFilename: true,
		AddPageNumbers:  true,
		SeparatePages:   true,
	})
	return New(pre, rec, fakeReader{}, formatter, report.NewWriter(out), out, "PROMPT", opts)
}

// --- シナリオテストなのだ ---

func TestOrchestrator_Run_PageOrdering(t *testing.T) {
	t.Run("辞書順がそのままページ番号になるのだ", func(t *testing.T) {
		dir := makeFolder(t, "b.png", "a.jpg", "c.bmp")
		out := newMemWriter()
		o := newTestOrchestrator(&fakePre{}, &fakeRecognizer{}, out, Options{ContinueOnError: true})

		stats, err := o.Run(context.Background(), dir)
		if err != nil {
			t.Fatalf("バッチが失敗したのだ: %v", err)
		}
		if stats.Succeeded != 3 || stats.Errored != 0 {
			t.Errorf("カウンタが期待と違うのだ: %+v", stats)
		}

		got := out.contents["out/report.txt"]
		wantOrder := []string{
			"File: a.jpg", "Page: 1",
			"File: b.png", "Page: 2",
			"File: c.bmp", "Page: 3",
		}
		pos := -1
		for _, want := range wantOrder {
			idx := strings.Index(got, want)
			if idx < 0 {
				t.Fatalf("%q がレポートに見つからないのだ\n%s", want, got)
			}
			if idx < pos {
				t.Errorf("%q の位置が順序を乱しているのだ", want)
			}
			pos = idx
		}
	})

	t.Run("同じフォルダなら再実行でも同じページ番号なのだ", func(t *testing.T) {
		dir := makeFolder(t, "z.png", "m.png", "a.png")
		first, err := ListPageFiles(dir, []string{".png"})
		if err != nil {
			t.Fatalf("列挙に失敗したのだ: %v", err)
		}
		second, _ := ListPageFiles(dir, []string{".png"})
		for i := range first {
			if first[i] != second[i] {
				t.Errorf("再実行で順序が変わってしまったのだ: %v vs %v", first, second)
			}
		}
	})
}

func TestOrchestrator_Run_ContinueOnError(t *testing.T) {
	t.Run("前処理失敗をスキップしてバッチは成功扱いなのだ", func(t *testing.T) {
		dir := makeFolder(t, "p1.png", "p2.png", "p3.png")
		out := newMemWriter()
		pre := &fakePre{failOn: map[string]bool{"p2.png": true}}
		o := newTestOrchestrator(pre, &fakeRecognizer{}, out, Options{ContinueOnError: true})

		stats, err := o.Run(context.Background(), dir)
		if err != nil {
			t.Fatalf("continue-on-error なのにバッチが失敗したのだ: %v", err)
		}
		if stats.Succeeded != 2 || stats.Errored != 1 {
			t.Errorf("カウンタが期待と違うのだ: %+v", stats)
		}

		got := out.contents["out/report.txt"]
		if strings.Contains(got, "p2.png") {
			t.Error("スキップしたファイルがレポートに載っているのだ")
		}
		// 失敗したファイルも位置は消費するので、p3 はページ3のままなのだ。
		if !strings.Contains(got, "Page: 3") {
			t.Error("ページ番号が詰められてしまっているのだ")
		}
		if !strings.Contains(got, "Errors: 1") {
			t.Error("ヘッダのエラーカウントが違うのだ")
		}
	})

	t.Run("無効時は2番目の失敗で即中断してレポートも書かないのだ", func(t *testing.T) {
		dir := makeFolder(t, "p1.png", "p2.png", "p3.png")
		out := newMemWriter()
		pre := &fakePre{failOn: map[string]bool{"p2.png": true}}
		rec := &fakeRecognizer{}
		o := newTestOrchestrator(pre, rec, out, Options{ContinueOnError: false})

		_, err := o.Run(context.Background(), dir)
		if err == nil {
			t.Fatal("中断エラーが返るべきなのだ")
		}
		if len(out.contents) != 0 {
			t.Errorf("中断したのに何か書き出されているのだ: %v", out.contents)
		}
		for _, called := range rec.calls {
			if called == "p3.png" {
				t.Error("中断後のファイルまで処理されているのだ")
			}
		}
	})
}

func TestOrchestrator_Run_RecognitionFailures(t *testing.T) {
	t.Run("空レスポンスはエラー計上だがバッチは続行するのだ", func(t *testing.T) {
		dir := makeFolder(t, "p1.png", "p2.png")
		out := newMemWriter()
		rec := &fakeRecognizer{failOn: map[string]error{"p1.png": vision.ErrEmptyResult}}
		o := newTestOrchestrator(&fakePre{}, rec, out, Options{ContinueOnError: true})

		stats, err := o.Run(context.Background(), dir)
		if err != nil {
			t.Fatalf("バッチが失敗したのだ: %v", err)
		}
		if stats.Succeeded != 1 || stats.Errored != 1 {
			t.Errorf("カウンタが期待と違うのだ: %+v", stats)
		}
	})

	t.Run("全滅ならレポートを書かずにバッチ失敗なのだ", func(t *testing.T) {
		dir := makeFolder(t, "p1.png")
		out := newMemWriter()
		rec := &fakeRecognizer{failOn: map[string]error{"p1.png": errors.New("network down")}}
		o := newTestOrchestrator(&fakePre{}, rec, out, Options{ContinueOnError: true})

		_, err := o.Run(context.Background(), dir)
		if !errors.Is(err, ErrNoPagesExtracted) {
			t.Errorf("ErrNoPagesExtracted が返るべきなのだ: %v", err)
		}
		if len(out.contents) != 0 {
			t.Error("失敗バッチなのにレポートが書かれているのだ")
		}
	})

	t.Run("カウンタの合計は総数を超えないのだ", func(t *testing.T) {
		dir := makeFolder(t, "p1.png", "p2.png", "p3.png", "p4.png")
		out := newMemWriter()
		rec := &fakeRecognizer{failOn: map[string]error{"p2.png": errors.New("boom")}}
		o := newTestOrchestrator(&fakePre{}, rec, out, Options{ContinueOnError: true})

		stats, _ := o.Run(context.Background(), dir)
		if stats.Succeeded+stats.Errored > stats.Total {
			t.Errorf("カウンタ不変条件が破れているのだ: %+v", stats)
		}
	})
}

func TestOrchestrator_Run_Parallel(t *testing.T) {
	t.Run("並列でもレポートのページ順は保たれるのだ", func(t *testing.T) {
		dir := makeFolder(t, "p1.png", "p2.png", "p3.png", "p4.png", "p5.png")
		out := newMemWriter()
		o := newTestOrchestrator(&fakePre{}, &fakeRecognizer{}, out, Options{
			ContinueOnError: true,
			Workers:         3,
		})

		stats, err := o.Run(context.Background(), dir)
		if err != nil {
			t.Fatalf("並列バッチが失敗したのだ: %v", err)
		}
		if stats.Succeeded != 5 {
			t.Errorf("成功数が期待と違うのだ: %+v", stats)
		}

		got := out.contents["out/report.txt"]
		pos := -1
		for page := 1; page <= 5; page++ {
			marker := fmt.Sprintf("Page: %d", page)
			idx := strings.Index(got, marker)
			if idx < 0 {
				t.Fatalf("%q が見つからないのだ", marker)
			}
			if idx < pos {
				t.Errorf("%q の位置が順序を乱しているのだ", marker)
			}
			pos = idx
		}
	})
}

func TestListPageFiles(t *testing.T) {
	t.Run("拡張子は大文字小文字を区別しないのだ", func(t *testing.T) {
		dir := makeFolder(t, "a.PNG", "b.jpg", "c.txt", "d.JPEG")
		files, err := ListPageFiles(dir, []string{".png", ".jpg", ".jpeg"})
		if err != nil {
			t.Fatalf("列挙に失敗したのだ: %v", err)
		}
		if len(files) != 3 {
			t.Errorf("対象ファイル数が期待と違うのだ: %v", files)
		}
		for _, f := range files {
			if strings.HasSuffix(f, ".txt") {
				t.Error("対象外の拡張子が混ざっているのだ")
			}
		}
	})

	t.Run("存在しないフォルダは ErrFolderNotFound なのだ", func(t *testing.T) {
		_, err := ListPageFiles("/no/such/folder", []string{".png"})
		if !errors.Is(err, ErrFolderNotFound) {
			t.Errorf("エラー種別が違うのだ: %v", err)
		}
	})

	t.Run("ドットなし指定の拡張子も受け付けるのだ", func(t *testing.T) {
		dir := makeFolder(t, "a.png")
		files, err := ListPageFiles(dir, []string{"png"})
		if err != nil || len(files) != 1 {
			t.Errorf("ドットなし拡張子が扱えていないのだ: %v, %v", files, err)
		}
	})
}
