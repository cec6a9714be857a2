package animation

// Handle 关键帧在序列中的槽位
type Handle int

// NoFrame 空槽位
const NoFrame Handle = -1

type slot struct {
	kf   *Keyframe
	prev Handle
	next Handle
}

// Sequence 以槽位数组存放的双向关键帧链。删除时由序列自己重新连接前后节点，
// 释放的槽位会被复用。
type Sequence struct {
	slots []slot
	free  []Handle
	head  Handle
	tail  Handle
	n     int
}

func NewSequence() *Sequence {
	return &Sequence{head: NoFrame, tail: NoFrame}
}

func (s *Sequence) alloc(kf *Keyframe) Handle {
	var h Handle
	if n := len(s.free); n > 0 {
		h = s.free[n-1]
		s.free = s.free[:n-1]
		s.slots[h] = slot{kf: kf, prev: NoFrame, next: NoFrame}
	} else {
		h = Handle(len(s.slots))
		s.slots = append(s.slots, slot{kf: kf, prev: NoFrame, next: NoFrame})
	}
	kf.seq = s
	kf.handle = h
	s.n++
	return h
}

// Valid 槽位是否指向本序列中的关键帧
func (s *Sequence) Valid(h Handle) bool {
	return h >= 0 && int(h) < len(s.slots) && s.slots[h].kf != nil
}

// PushBack 追加到链尾。关键帧已属于某个序列时不做任何事并返回 NoFrame。
func (s *Sequence) PushBack(kf *Keyframe) Handle {
	if kf == nil || kf.Linked() {
		return NoFrame
	}
	return s.InsertAfter(s.tail, kf)
}

// InsertAfter 插入到 at 之后，at 为 NoFrame 时插入到链头
func (s *Sequence) InsertAfter(at Handle, kf *Keyframe) Handle {
	if kf == nil || kf.Linked() {
		return NoFrame
	}
	if at != NoFrame && !s.Valid(at) {
		return NoFrame
	}

	h := s.alloc(kf)
	if at == NoFrame {
		s.slots[h].next = s.head
		if s.head != NoFrame {
			s.slots[s.head].prev = h
		}
		s.head = h
		if s.tail == NoFrame {
			s.tail = h
		}
		return h
	}

	next := s.slots[at].next
	s.slots[h].prev = at
	s.slots[h].next = next
	s.slots[at].next = h
	if next != NoFrame {
		s.slots[next].prev = h
	} else {
		s.tail = h
	}
	return h
}

// Remove 摘除关键帧并连接其前后节点，返回被摘除的关键帧
func (s *Sequence) Remove(h Handle) *Keyframe {
	if !s.Valid(h) {
		return nil
	}

	sl := s.slots[h]
	if sl.prev != NoFrame {
		s.slots[sl.prev].next = sl.next
	} else {
		s.head = sl.next
	}
	if sl.next != NoFrame {
		s.slots[sl.next].prev = sl.prev
	} else {
		s.tail = sl.prev
	}

	s.slots[h] = slot{prev: NoFrame, next: NoFrame}
	s.free = append(s.free, h)
	s.n--

	sl.kf.seq = nil
	sl.kf.handle = NoFrame
	return sl.kf
}

func (s *Sequence) Front() Handle { return s.head }
func (s *Sequence) Back() Handle  { return s.tail }
func (s *Sequence) Len() int      { return s.n }

func (s *Sequence) Next(h Handle) Handle {
	if !s.Valid(h) {
		return NoFrame
	}
	return s.slots[h].next
}

func (s *Sequence) Prev(h Handle) Handle {
	if !s.Valid(h) {
		return NoFrame
	}
	return s.slots[h].prev
}

// ChainFront 从 h 沿 prev 回溯到链头
func (s *Sequence) ChainFront(h Handle) Handle {
	if !s.Valid(h) {
		return NoFrame
	}
	for s.slots[h].prev != NoFrame {
		h = s.slots[h].prev
	}
	return h
}

func (s *Sequence) Keyframe(h Handle) *Keyframe {
	if !s.Valid(h) {
		return nil
	}
	return s.slots[h].kf
}

// HandleOf 返回关键帧在本序列中的槽位
func (s *Sequence) HandleOf(kf *Keyframe) Handle {
	if kf == nil || kf.seq != s {
		return NoFrame
	}
	return kf.handle
}

// Handles 按链顺序返回全部槽位
func (s *Sequence) Handles() []Handle {
	handles := make([]Handle, 0, s.n)
	for h := s.head; h != NoFrame; h = s.slots[h].next {
		handles = append(handles, h)
	}
	return handles
}

// Keyframes 按链顺序返回全部关键帧
func (s *Sequence) Keyframes() []*Keyframe {
	kfs := make([]*Keyframe, 0, s.n)
	for h := s.head; h != NoFrame; h = s.slots[h].next {
		kfs = append(kfs, s.slots[h].kf)
	}
	return kfs
}

// Index 返回槽位在链中的序号（从 0 开始），不存在时返回 -1
func (s *Sequence) Index(h Handle) int {
	i := 0
	for cur := s.head; cur != NoFrame; cur = s.slots[cur].next {
		if cur == h {
			return i
		}
		i++
	}
	return -1
}

// Clone 深拷贝每个关键帧，得到独立的新链
func (s *Sequence) Clone() *Sequence {
	c := NewSequence()
	for _, kf := range s.Keyframes() {
		c.PushBack(kf.Clone())
	}
	return c
}
