package store

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"animatronic/animation"
)

// Ext 动画文件扩展名
const Ext = ".anim"

var (
	ErrInvalidName = errors.New("无效的动画名称")
	ErrNotFound    = errors.New("动画文件不存在")
)

var namePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidName 名称只能包含字母、数字、下划线和连字符，最长 64 个字符
func ValidName(name string) bool {
	return namePattern.MatchString(name)
}

// Store 以 <name>.anim 文件保存动画的目录
type Store struct {
	dir   string
	mutex sync.Mutex
}

// Open 打开动画目录，不存在时创建
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("创建动画目录失败：%w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Dir() string { return s.dir }

func (s *Store) path(name string) (string, error) {
	if !ValidName(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(s.dir, name+Ext), nil
}

// Save 以动画名称保存
func (s *Store) Save(anim *animation.Animation) error {
	path, err := s.path(anim.Name())
	if err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := SaveFile(path, anim); err != nil {
		return err
	}
	slog.Info("💾 动画已保存", "name", anim.Name(), "path", path, "keyframes", anim.Len())
	return nil
}

// Load 读取动画，opts.Name 被替换为 name
func (s *Store) Load(name string, opts animation.DecodeOptions) (*animation.Animation, []animation.Diagnostic, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, nil, err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	opts.Name = name
	return LoadFile(path, opts)
}

// List 按名称排序返回目录中的全部动画
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("读取动画目录失败：%w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), Ext) {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), Ext)
		if ValidName(name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *Store) Exists(name string) bool {
	path, err := s.path(name)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

func (s *Store) Delete(name string) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return fmt.Errorf("删除动画文件失败：%w", err)
	}
	slog.Info("🗑️ 动画已删除", "name", name)
	return nil
}

// SaveFile 先写入同目录下的临时文件再重命名，失败时不留下不完整的文件
func SaveFile(path string, anim *animation.Animation) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("创建临时文件失败：%w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = animation.Encode(tmp, anim); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("同步文件失败：%w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("关闭文件失败：%w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("重命名文件失败：%w", err)
	}
	return nil
}

// LoadFile 读取任意路径的动画文件
func LoadFile(path string, opts animation.DecodeOptions) (*animation.Animation, []animation.Diagnostic, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, nil, fmt.Errorf("打开动画文件失败：%w", err)
	}
	defer f.Close()

	if opts.Name == "" {
		opts.Name = strings.TrimSuffix(filepath.Base(path), Ext)
	}
	return animation.Decode(f, opts)
}
