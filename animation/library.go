package animation

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"animatronic/servo"
)

// ErrNotFound 动画未注册
var ErrNotFound = errors.New("动画不存在")

// Source 动画来源
type Source string

const (
	SourceBuiltin  Source = "builtin"
	SourceScript   Source = "script"
	SourceStore    Source = "store"
	SourceRecorded Source = "recorded"
	SourceAPI      Source = "api"
)

// Info 动画摘要
type Info struct {
	Name       string `json:"name"`
	Keyframes  int    `json:"keyframes"`
	DurationMs int64  `json:"durationMs"`
	Source     Source `json:"source"`
}

type libraryEntry struct {
	anim   *Animation
	source Source
}

// Library 按名称管理可播放的动画
type Library struct {
	animations map[string]libraryEntry
	mutex      sync.RWMutex
}

func NewLibrary() *Library {
	return &Library{animations: make(map[string]libraryEntry)}
}

// Register 注册动画，同名动画被覆盖
func (l *Library) Register(anim *Animation, source Source) {
	if anim == nil {
		slog.Warn("⚠️ 尝试注册一个空动画")
		return
	}

	l.mutex.Lock()
	defer l.mutex.Unlock()

	name := anim.Name()
	if prev, exists := l.animations[name]; exists {
		slog.Warn("⚠️ 动画已注册，将被覆盖", "name", name, "previous", prev.source, "source", source)
	}
	l.animations[name] = libraryEntry{anim: anim, source: source}
	slog.Debug("✅ 动画已注册", "name", name, "keyframes", anim.Len(), "source", source)
}

func (l *Library) Get(name string) (*Animation, error) {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	entry, exists := l.animations[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return entry.anim, nil
}

func (l *Library) Remove(name string) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if _, exists := l.animations[name]; !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	delete(l.animations, name)
	return nil
}

// Names 按名称排序
func (l *Library) Names() []string {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	names := make([]string, 0, len(l.animations))
	for name := range l.animations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (l *Library) Describe(name string) (Info, error) {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	entry, exists := l.animations[name]
	if !exists {
		return Info{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return describe(name, entry), nil
}

// List 按名称排序返回全部动画摘要
func (l *Library) List() []Info {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	infos := make([]Info, 0, len(l.animations))
	for name, entry := range l.animations {
		infos = append(infos, describe(name, entry))
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

func describe(name string, entry libraryEntry) Info {
	return Info{
		Name:       name,
		Keyframes:  entry.anim.Len(),
		DurationMs: entry.anim.DurationMs(),
		Source:     entry.source,
	}
}

// RigResolver 以舵机组作为执行器解析器
func RigResolver(rig *servo.Rig) Resolver {
	return func(name string) (Actuator, bool) {
		s, ok := rig.Lookup(name)
		if !ok {
			return nil, false
		}
		return s, true
	}
}
