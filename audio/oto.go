package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/ebitengine/oto/v3"
	"github.com/hajimehoshi/go-mp3"

	"animatronic/define"
)

// ErrUnknownTrack 音轨不存在
var ErrUnknownTrack = errors.New("音轨不存在")

// OtoPlayer 启动时把 MP3 音轨解码为 PCM 缓存，播放时通过 oto 输出
type OtoPlayer struct {
	ctx     *oto.Context
	tracks  map[int][]byte
	volume  float64
	players []*oto.Player
	mutex   sync.Mutex
}

// NewOtoPlayer 预加载目录中的全部音轨。所有音轨必须使用同一采样率，不一致的音轨被跳过。
func NewOtoPlayer(cfg define.AudioConfig) (*OtoPlayer, error) {
	paths, err := ScanTracks(cfg.Dir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("目录 %s 中没有音轨", cfg.Dir)
	}

	tracks := make(map[int][]byte, len(paths))
	sampleRate := 0
	for n, path := range paths {
		pcm, rate, err := decodeMP3(path)
		if err != nil {
			slog.Warn("⚠️ 音轨解码失败，跳过", "track", n, "file", path, "error", err)
			continue
		}
		if sampleRate == 0 {
			sampleRate = rate
		} else if rate != sampleRate {
			slog.Warn("⚠️ 音轨采样率不一致，跳过", "track", n, "rate", rate, "expected", sampleRate)
			continue
		}
		tracks[n] = pcm
	}
	if len(tracks) == 0 {
		return nil, fmt.Errorf("目录 %s 中没有可用的音轨", cfg.Dir)
	}

	// go-mp3 固定输出 16 位小端双声道
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化音频输出失败：%w", err)
	}
	<-ready

	slog.Info("🔊 音轨已加载", "dir", cfg.Dir, "tracks", len(tracks), "sampleRate", sampleRate)
	return &OtoPlayer{ctx: ctx, tracks: tracks, volume: clampVolume(cfg.Volume)}, nil
}

func decodeMP3(path string) ([]byte, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, 0, err
	}
	pcm, err := io.ReadAll(dec)
	if err != nil {
		return nil, 0, err
	}
	return pcm, dec.SampleRate(), nil
}

func clampVolume(v float64) float64 {
	return max(0, min(1, v))
}

// PlayTrack 开始播放并立即返回，多个音轨可以叠加
func (p *OtoPlayer) PlayTrack(track int) error {
	pcm, ok := p.tracks[track]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownTrack, track)
	}

	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.prune()
	player := p.ctx.NewPlayer(bytes.NewReader(pcm))
	player.SetVolume(p.volume)
	player.Play()
	p.players = append(p.players, player)
	return nil
}

// prune 关闭已经播放完毕的播放器
func (p *OtoPlayer) prune() {
	active := p.players[:0]
	for _, player := range p.players {
		if player.IsPlaying() {
			active = append(active, player)
			continue
		}
		player.Close()
	}
	clear(p.players[len(active):])
	p.players = active
}

func (p *OtoPlayer) SetVolume(v float64) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.volume = clampVolume(v)
}

// Tracks 返回已加载的音轨数量
func (p *OtoPlayer) Tracks() int { return len(p.tracks) }

func (p *OtoPlayer) Close() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	for _, player := range p.players {
		player.Close()
	}
	p.players = nil
	return nil
}
