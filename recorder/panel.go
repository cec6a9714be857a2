package recorder

import "sync"

// Page 面板当前显示的页面
type Page string

const (
	PageStart     Page = "start"
	PageRecording Page = "recording"
	PageSave      Page = "save"
	PageCancel    Page = "cancel"
	PageClosed    Page = "closed"
)

// Snapshot 面板内容快照
type Snapshot struct {
	Page Page      `json:"page"`
	Info *PageInfo `json:"info,omitempty"`
}

// SnapshotPanel 保存最近一次推送的页面，供 HTTP 接口读取
type SnapshotPanel struct {
	snapshot Snapshot
	mutex    sync.RWMutex
}

func NewSnapshotPanel() *SnapshotPanel {
	return &SnapshotPanel{snapshot: Snapshot{Page: PageClosed}}
}

func (p *SnapshotPanel) set(page Page, info *PageInfo) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.snapshot = Snapshot{Page: page, Info: info}
}

func (p *SnapshotPanel) StartPage()  { p.set(PageStart, nil) }
func (p *SnapshotPanel) SavePage()   { p.set(PageSave, nil) }
func (p *SnapshotPanel) CancelPage() { p.set(PageCancel, nil) }
func (p *SnapshotPanel) Close()      { p.set(PageClosed, nil) }

func (p *SnapshotPanel) RecordingPage(info PageInfo) { p.set(PageRecording, &info) }

func (p *SnapshotPanel) Snapshot() Snapshot {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return p.snapshot
}

// fanoutPanel 把同一页面推送给多个面板
type fanoutPanel []Panel

// Fanout 组合多个面板，nil 被忽略
func Fanout(panels ...Panel) Panel {
	out := make(fanoutPanel, 0, len(panels))
	for _, p := range panels {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

func (f fanoutPanel) StartPage() {
	for _, p := range f {
		p.StartPage()
	}
}

func (f fanoutPanel) RecordingPage(info PageInfo) {
	for _, p := range f {
		p.RecordingPage(info)
	}
}

func (f fanoutPanel) SavePage() {
	for _, p := range f {
		p.SavePage()
	}
}

func (f fanoutPanel) CancelPage() {
	for _, p := range f {
		p.CancelPage()
	}
}

func (f fanoutPanel) Close() {
	for _, p := range f {
		p.Close()
	}
}
