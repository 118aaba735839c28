package batch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrFolderNotFound は、バッチ対象のフォルダが存在しないことを示すのだ。
// この場合は1ファイルも処理せずにバッチ失敗を報告するのだよ。
var ErrFolderNotFound = errors.New("対象フォルダが見つからないのだ")

// ListPageFiles は、対応拡張子に一致するファイルを列挙して辞書順に返すのだ。
// この並び順がそのままページ番号の正なのだ。拡張子の大文字小文字は区別しないのだ。
func ListPageFiles(folder string, extensions []string) ([]string, error) {
	info, err := os.Stat(folder)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrFolderNotFound, folder)
	}

	allowed := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		allowed[ext] = struct{}{}
	}

	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, fmt.Errorf("フォルダの読み取りに失敗したのだ %s: %w", folder, err)
	}

	seen := make(map[string]struct{})
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if _, ok := allowed[ext]; !ok {
			continue
		}
		path := filepath.Join(folder, entry.Name())
		if _, dup := seen[path]; dup {
			continue
		}
		seen[path] = struct{}{}
		files = append(files, path)
	}

	sort.Strings(files)
	return files, nil
}
