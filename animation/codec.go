package animation

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"animatronic/clock"
	"animatronic/ramp"
)

// 动画文件的行格式为 "key: value"，每个 duration_ms 行开始一个新关键帧：
//
//	duration_ms: 1000
//	track_index: 3
//	servo: eye_left
//	target_scalar: 1
//	ramp_mode: 4
//
// 也接受显式的 keyframe_start / keyframe_end 标记。空行和 # 注释被忽略。
const (
	keyDuration      = "duration_ms"
	keyTrack         = "track_index"
	keyServo         = "servo"
	keyTarget        = "target_scalar"
	keyRamp          = "ramp_mode"
	markerStart      = "keyframe_start"
	markerEnd        = "keyframe_end"
	commentDelimiter = "#"

	// maxLineBytes 单行长度上限，超出的行被跳过
	maxLineBytes = 64 * 1024
	// diagTextBytes 诊断信息中保留的行首长度
	diagTextBytes = 64
)

// Encode 写出动画。只有 TrackCue 副作用会被保存，其它副作用被忽略。
func Encode(w io.Writer, anim *Animation) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# %s\n", anim.Name())

	for i, kf := range anim.Keyframes() {
		if i > 0 {
			bw.WriteString("\n")
		}
		fmt.Fprintf(bw, "%s: %d\n", keyDuration, kf.Duration())
		if cue, ok := kf.Effect().(TrackCue); ok {
			fmt.Fprintf(bw, "%s: %d\n", keyTrack, cue.Track)
		}
		for _, t := range kf.Targets() {
			fmt.Fprintf(bw, "%s: %s\n", keyServo, t.Actuator.Name())
			fmt.Fprintf(bw, "%s: %s\n", keyTarget, strconv.FormatFloat(t.Position, 'f', -1, 64))
			fmt.Fprintf(bw, "%s: %d\n", keyRamp, int(t.Mode))
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("写入动画 %s 失败：%w", anim.Name(), err)
	}
	return nil
}

// Diagnostic 解码时被跳过的一行
type Diagnostic struct {
	Line   int    `json:"line"`
	Text   string `json:"text"`
	Reason string `json:"reason"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("第 %d 行 %q：%s", d.Line, d.Text, d.Reason)
}

// DecodeOptions 解码参数
type DecodeOptions struct {
	Name    string
	Clock   clock.Clock
	Resolve Resolver
	// Cue 把 track_index 转换为副作用，为 nil 时绑定不带播放器的 TrackCue
	Cue func(track int) Effect
}

// pendingTarget 正在解析的 servo/target_scalar/ramp_mode 条目
type pendingTarget struct {
	actuator Actuator
	line     int
	position float64
	hasPos   bool
	mode     ramp.Mode
	invalid  bool
}

type decoder struct {
	opts  DecodeOptions
	anim  *Animation
	diags []Diagnostic

	cur              *Keyframe
	awaitingDuration bool
	entry            *pendingTarget
}

// Decode 读取动画。无法解析或无法解析执行器的条目被跳过并记录诊断信息，
// 只有读取错误会中止解码。
func Decode(r io.Reader, opts DecodeOptions) (*Animation, []Diagnostic, error) {
	if opts.Resolve == nil {
		opts.Resolve = func(string) (Actuator, bool) { return nil, false }
	}
	d := &decoder{opts: opts, anim: New(opts.Name, opts.Clock)}

	br := bufio.NewReader(r)
	for lineNo := 1; ; lineNo++ {
		text, long, err := readLine(br)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, d.diags, fmt.Errorf("读取动画 %s 失败：%w", opts.Name, err)
		}
		if long {
			d.skip(lineNo, strings.ToValidUTF8(text[:diagTextBytes], "")+"...", "行过长")
			continue
		}
		d.line(lineNo, text)
	}
	d.flushEntry()

	for _, diag := range d.diags {
		slog.Warn("⚠️ 动画记录已跳过", "animation", opts.Name, "line", diag.Line, "text", diag.Text, "reason", diag.Reason)
	}
	return d.anim, d.diags, nil
}

// readLine 读取一行，超过 maxLineBytes 的部分被丢弃并返回 long
func readLine(br *bufio.Reader) (string, bool, error) {
	var (
		buf  []byte
		long bool
	)
	for {
		chunk, isPrefix, err := br.ReadLine()
		if err != nil {
			return string(buf), long, err
		}
		if len(buf)+len(chunk) <= maxLineBytes {
			buf = append(buf, chunk...)
		} else {
			long = true
		}
		if !isPrefix {
			return string(buf), long, nil
		}
	}
}

func (d *decoder) skip(lineNo int, text, reason string) {
	d.diags = append(d.diags, Diagnostic{Line: lineNo, Text: text, Reason: reason})
}

func (d *decoder) line(lineNo int, raw string) {
	text := strings.TrimSpace(raw)
	if text == "" || strings.HasPrefix(text, commentDelimiter) {
		return
	}

	switch text {
	case markerStart:
		d.flushEntry()
		d.startKeyframe(0)
		d.awaitingDuration = true
		return
	case markerEnd:
		d.flushEntry()
		d.cur = nil
		d.awaitingDuration = false
		return
	}

	key, value, ok := strings.Cut(text, ":")
	if !ok {
		d.skip(lineNo, text, "无法识别的行")
		return
	}
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)

	switch key {
	case keyDuration:
		d.duration(lineNo, text, value)
	case keyTrack:
		d.track(lineNo, text, value)
	case keyServo:
		d.servo(lineNo, text, value)
	case keyTarget:
		d.target(lineNo, text, value)
	case keyRamp:
		d.ramp(lineNo, text, value)
	default:
		d.skip(lineNo, text, "未知字段")
	}
}

func (d *decoder) startKeyframe(durationMs int64) {
	d.cur = NewKeyframe(durationMs)
	d.anim.Add(d.cur)
}

func (d *decoder) duration(lineNo int, text, value string) {
	d.flushEntry()

	ms, err := strconv.ParseUint(value, 10, 63)
	if err != nil {
		// 关键帧保留，时长为 0
		d.skip(lineNo, text, "无效的时长")
		if d.awaitingDuration {
			d.awaitingDuration = false
			return
		}
		d.startKeyframe(0)
		return
	}

	if d.awaitingDuration {
		d.cur.SetDuration(int64(ms))
		d.awaitingDuration = false
		return
	}
	d.startKeyframe(int64(ms))
}

func (d *decoder) track(lineNo int, text, value string) {
	if d.cur == nil {
		d.skip(lineNo, text, "音轨不属于任何关键帧")
		return
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		d.skip(lineNo, text, "无效的音轨编号")
		return
	}

	var effect Effect = TrackCue{Track: n}
	if d.opts.Cue != nil {
		effect = d.opts.Cue(n)
	}
	d.cur.BindEffect(effect)
}

func (d *decoder) servo(lineNo int, text, value string) {
	d.flushEntry()
	if d.cur == nil {
		d.skip(lineNo, text, "舵机条目不属于任何关键帧")
		d.entry = &pendingTarget{line: lineNo, invalid: true}
		return
	}

	a, ok := d.opts.Resolve(value)
	if !ok {
		d.skip(lineNo, text, "未知的舵机")
		d.entry = &pendingTarget{line: lineNo, invalid: true}
		return
	}
	d.entry = &pendingTarget{actuator: a, line: lineNo, mode: ramp.Default}
}

func (d *decoder) target(lineNo int, text, value string) {
	if d.entry == nil {
		d.skip(lineNo, text, "目标位置前缺少 servo 行")
		return
	}
	if d.entry.invalid {
		return
	}

	p, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(p) || math.IsInf(p, 0) {
		d.skip(lineNo, text, "无效的目标位置")
		d.entry.invalid = true
		return
	}
	d.entry.position = p
	d.entry.hasPos = true
}

func (d *decoder) ramp(lineNo int, text, value string) {
	if d.entry == nil {
		d.skip(lineNo, text, "缓动模式前缺少 servo 行")
		return
	}
	if d.entry.invalid {
		return
	}

	n, err := strconv.Atoi(value)
	if err != nil || !ramp.Mode(n).Valid() {
		d.skip(lineNo, text, "未知的缓动模式")
		d.entry.invalid = true
		return
	}
	d.entry.mode = ramp.Mode(n)
}

// flushEntry 把完整的条目写入当前关键帧
func (d *decoder) flushEntry() {
	e := d.entry
	d.entry = nil
	if e == nil || e.invalid || d.cur == nil {
		return
	}
	if !e.hasPos {
		d.skip(e.line, keyServo+": "+e.actuator.Name(), "缺少 target_scalar")
		return
	}
	d.cur.SetTarget(e.actuator, e.position, e.mode)
}
