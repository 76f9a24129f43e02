package proc

import (
	"github.com/ceyert/kuzne/kernel"
	"github.com/ceyert/kuzne/kernel/cpu"
	"github.com/ceyert/kuzne/kernel/gate"
	"github.com/ceyert/kuzne/kernel/kfmt"
	"github.com/ceyert/kuzne/kernel/mem/heap"
	"github.com/ceyert/kuzne/kernel/mem/vmm"
)

var (
	// returnToUserFn is used by tests to override calls to
	// cpu.ReturnToUser.
	returnToUserFn = cpu.ReturnToUser

	errTaskSlotTaken = &kernel.Error{Module: "sched", Message: "slot already has a task", Code: kernel.CodeProcessSlotTaken}
	errNoTasks       = &kernel.Error{Module: "sched", Message: "no tasks to run", Code: kernel.CodeInvalidArgument}
	errNoCurrentTask = &kernel.Error{Module: "sched", Message: "no current task", Code: kernel.CodeInvalidArgument}
)

// Scheduler keeps the ready list of tasks and tracks the one that is
// currently running. Tasks are stored in an arena indexed by process slot
// and linked through slot indices.
type Scheduler struct {
	cfg       *kernel.Config
	heap      *heap.Heap
	kernelDir *vmm.PageDirectoryTable

	tasks               []*Task
	head, tail, current int
}

// NewScheduler returns an empty scheduler. Task page directories are
// allocated from h; kernelDir is activated whenever the kernel runs.
func NewScheduler(cfg *kernel.Config, h *heap.Heap, kernelDir *vmm.PageDirectoryTable) *Scheduler {
	return &Scheduler{
		cfg:       cfg,
		heap:      h,
		kernelDir: kernelDir,
		tasks:     make([]*Task, cfg.MaxProcesses),
		head:      noTask,
		tail:      noTask,
		current:   noTask,
	}
}

// NewTask creates the task for p, gives it a fresh address space and
// appends it to the ready list. The first task ever added also becomes the
// current one.
func (s *Scheduler) NewTask(p *Process) (*Task, *kernel.Error) {
	if p.ID < 0 || p.ID >= len(s.tasks) {
		return nil, errSlotOutOfRange
	}

	if s.tasks[p.ID] != nil {
		return nil, errTaskSlotTaken
	}

	dir, err := vmm.New(s.heap, vmm.FlagPresent|vmm.FlagUserAccessible)
	if err != nil {
		return nil, err
	}

	entry := uint32(s.cfg.ProgramVirtualAddress)
	if img := p.Image(); img != nil && img.Entry() != 0 {
		entry = uint32(img.Entry())
	}

	t := &Task{
		Directory: dir,
		Process:   p,
		Registers: cpu.Registers{
			EIP: entry,
			CS:  s.cfg.UserCodeSelector,
			SS:  s.cfg.UserDataSelector,
			ESP: uint32(s.cfg.StackVirtualTop),
		},
		slot:  p.ID,
		prev:  s.tail,
		next:  noTask,
		sched: s,
	}
	s.tasks[t.slot] = t

	if s.head == noTask {
		s.head = t.slot
		s.tail = t.slot
		s.current = t.slot
		return t, nil
	}

	s.tasks[s.tail].next = t.slot
	s.tail = t.slot
	return t, nil
}

// FreeTask releases the task's address space and unlinks it from the ready
// list. If t was current, its successor (or the new head) becomes current.
func (s *Scheduler) FreeTask(t *Task) {
	if t == nil || s.tasks[t.slot] != t {
		return
	}

	t.Directory.Free()

	if t.prev != noTask {
		s.tasks[t.prev].next = t.next
	}
	if t.next != noTask {
		s.tasks[t.next].prev = t.prev
	}
	if s.head == t.slot {
		s.head = t.next
	}
	if s.tail == t.slot {
		s.tail = t.prev
	}
	if s.current == t.slot {
		if t.next != noTask {
			s.current = t.next
		} else {
			s.current = s.head
		}
	}

	s.tasks[t.slot] = nil
	t.prev, t.next = noTask, noTask
}

// Current returns the running task or nil.
func (s *Scheduler) Current() *Task {
	return s.task(s.current)
}

// Head returns the first task in the ready list or nil.
func (s *Scheduler) Head() *Task {
	return s.task(s.head)
}

// Next returns the task after t, wrapping around to the head of the list.
// A nil t yields the head.
func (s *Scheduler) Next(t *Task) *Task {
	if t == nil || t.next == noTask {
		return s.Head()
	}

	return s.tasks[t.next]
}

// Len returns the number of tasks in the ready list.
func (s *Scheduler) Len() int {
	var n int
	for t := s.Head(); t != nil; t = s.task(t.next) {
		n++
	}
	return n
}

// SwitchTo makes t the current task and activates its page directory.
func (s *Scheduler) SwitchTo(t *Task) {
	s.current = t.slot
	t.Page()
}

// RunNext switches to the task after the current one and resumes it in
// user mode. It is fatal to call RunNext with an empty ready list.
func (s *Scheduler) RunNext() {
	next := s.Next(s.Current())
	if next == nil {
		kfmt.Panic(errNoTasks)
		return
	}

	s.SwitchTo(next)
	returnToUserFn(&next.Registers)
}

// RunFirst starts the task at the head of the ready list.
func (s *Scheduler) RunFirst() {
	if s.Current() == nil {
		kfmt.Panic(errNoCurrentTask)
		return
	}

	head := s.Head()
	s.SwitchTo(head)
	returnToUserFn(&head.Registers)
}

// SaveCurrentState stores frame as the saved state of the current task.
func (s *Scheduler) SaveCurrentState(frame *gate.Frame) {
	cur := s.Current()
	if cur == nil {
		kfmt.Panic(errNoCurrentTask)
		return
	}

	cur.SaveState(frame)
}

// KernelPage activates the kernel page directory.
func (s *Scheduler) KernelPage() {
	s.kernelDir.Activate()
}

// TaskPage re-activates the page directory of the current task, if any.
func (s *Scheduler) TaskPage() {
	if cur := s.Current(); cur != nil {
		s.SwitchTo(cur)
	}
}

func (s *Scheduler) task(slot int) *Task {
	if slot == noTask {
		return nil
	}
	return s.tasks[slot]
}
