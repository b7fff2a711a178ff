// 文件路径: internal/template/store.go
// 模块说明: 模板仓库，先找自定义目录下的模板文件，找不到再用内置默认模板。加载后只读。
package template

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

//go:embed defaults/clash.yaml defaults/loon.conf
var embeddedDefaults embed.FS

const (
	ClashFile = "clash.yaml"
	LoonFile  = "loon.conf"
)

var (
	ErrTemplateDir   = errors.New("template: directory unavailable / 模板目录不可用")
	ErrEmptyTemplate = errors.New("template: empty template / 模板内容为空")
)

// Options 控制模板加载。
type Options struct {
	// Dir may hold clash.yaml and loon.conf overrides. Empty means embedded only.
	Dir    string
	Logger *slog.Logger
}

// Store holds the raw template text for each output format.
// It is never mutated after Load, so it can be shared across requests.
type Store struct {
	clash string
	loon  string
}

// New builds a Store from literal template text.
func New(clash, loon string) *Store {
	return &Store{clash: clash, loon: loon}
}

// Load reads the templates once: custom directory first, embedded defaults second.
func Load(opts Options) (*Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	dir := strings.TrimSpace(opts.Dir)
	if dir != "" {
		info, err := os.Stat(dir)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrTemplateDir, dir, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%w: %s is not a directory", ErrTemplateDir, dir)
		}
	}

	clash, err := loadOne(dir, ClashFile, logger)
	if err != nil {
		return nil, err
	}
	loon, err := loadOne(dir, LoonFile, logger)
	if err != nil {
		return nil, err
	}
	return &Store{clash: clash, loon: loon}, nil
}

func loadOne(dir, name string, logger *slog.Logger) (string, error) {
	if dir != "" {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if strings.TrimSpace(string(data)) == "" {
				return "", fmt.Errorf("%w: %s", ErrEmptyTemplate, path)
			}
			logger.Info("using custom template", "file", path)
			return string(data), nil
		case errors.Is(err, fs.ErrNotExist):
			logger.Debug("custom template not found, falling back to embedded", "file", path)
		default:
			return "", fmt.Errorf("read template %s: %w", path, err)
		}
	}

	data, err := embeddedDefaults.ReadFile("defaults/" + name)
	if err != nil {
		return "", fmt.Errorf("read embedded template %s: %w", name, err)
	}
	return string(data), nil
}

// Clash 返回 Clash YAML 模板原文。
func (s *Store) Clash() string { return s.clash }

// Loon 返回 Loon 文本模板原文。
func (s *Store) Loon() string { return s.loon }
