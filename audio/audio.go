package audio

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"sync"
)

// TrackPlayer 按编号触发一次音轨播放，不阻塞调用方
type TrackPlayer interface {
	PlayTrack(track int) error
}

// trackFile 匹配 0001.mp3、0012_hello.mp3 这类以四位编号开头的文件
var trackFile = regexp.MustCompile(`^(\d{4})[^/]*\.mp3$`)

// ScanTracks 扫描目录中的编号音轨文件，返回 编号 → 路径
func ScanTracks(dir string) (map[int]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("读取音轨目录失败：%w", err)
	}

	tracks := make(map[int]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := trackFile.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		if n == 0 {
			continue
		}
		if prev, exists := tracks[n]; exists {
			slog.Warn("⚠️ 音轨编号重复，忽略", "track", n, "file", entry.Name(), "kept", filepath.Base(prev))
			continue
		}
		tracks[n] = filepath.Join(dir, entry.Name())
	}
	return tracks, nil
}

// Null 不输出声音，只记录触发过的音轨
type Null struct {
	played []int
	mutex  sync.Mutex
}

func NewNull() *Null { return &Null{} }

func (n *Null) PlayTrack(track int) error {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	n.played = append(n.played, track)
	slog.Debug("🔇 音轨触发（静音）", "track", track)
	return nil
}

// Played 返回按触发顺序记录的音轨编号
func (n *Null) Played() []int {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	return slices.Clone(n.played)
}
