package path

import (
	"os"
	"path/filepath"
	"runtime"
)

// RootPath 專案根目錄；相對的 --env / --config 以此為基準
func RootPath() string {
	// 此檔位於 <root>/utils/path/path.go
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		panic("無法取得 caller 位置")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(filename), "..", ".."))
}

// Resolve 相對路徑接到 base 之後；絕對路徑原樣回傳
func Resolve(base, p string, elem ...string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(append(append([]string{base}, elem...), p)...)
}

// Exists 路徑是否存在
func Exists(p string) (bool, error) {
	_, err := os.Stat(p)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}
