package kernel

import (
	"encoding/binary"
	"fmt"
	"io"
)

// TransitionKind is the enum byte spec.md §6.3's wire protocol uses to tag
// a serialized transition. Only the simcall kinds spec.md §4.H lists as
// visible get one; everything else is handled eagerly and never reaches
// the model checker.
type TransitionKind byte

const (
	TransRandom TransitionKind = iota
	TransCommSend
	TransCommRecv
	TransCommTest
	TransCommWait
	TransTestAny
	TransWaitAny
	TransMutexLockAsync
	TransMutexWait
	TransMutexUnlock
	TransMutexTryLock
	TransSemLock
	TransSemUnlock
	TransSemWait
	TransBarrierLock
	TransBarrierWait
	TransCondLockAsync
	TransCondWait
	TransCondSignal
	TransCondBroadcast
	TransActorJoin
	TransActorExit
	TransActorSleep
	TransActorCreate
	TransObjectAccess
)

// field is one named, typed value a baseObserver carries for serialization.
// Supported value types: uint64, int64, int, float64, bool, string.
type field struct {
	name  string
	value any
}

// baseObserver is the concrete Observer implementation shared by every
// visible simcall kind (spec.md §4.H, §9: "Observer becomes a trait with a
// bounded set of concrete implementors — one per visible transition
// kind"). A single struct with a kind tag plays that role in Go; each
// constructor in this file fills in the fields relevant to its transition.
type baseObserver struct {
	kind        TransitionKind
	issuer      ActorID
	maxConsider int
	enabled     bool

	prepared    int
	hasPrepared bool

	result   any
	timedOut bool

	file string
	line int

	fields []field
}

func newObserver(kind TransitionKind, issuer ActorID, maxConsider int) *baseObserver {
	return &baseObserver{kind: kind, issuer: issuer, maxConsider: maxConsider, enabled: true}
}

func (o *baseObserver) SetLocation(file string, line int) {
	o.file = file
	o.line = line
}

func (o *baseObserver) SetEnabled(enabled bool) { o.enabled = enabled }

func (o *baseObserver) addField(name string, value any) {
	o.fields = append(o.fields, field{name: name, value: value})
}

// Enabled implements Observer: whether the model checker could usefully
// schedule this actor right now.
func (o *baseObserver) Enabled() bool { return o.enabled }

// MaxConsider implements Observer: how many distinct outcomes this simcall
// has, e.g. random(a,b) has b-a+1, wait_any has len(activities)+1.
func (o *baseObserver) MaxConsider() int { return o.maxConsider }

// Prepare implements Observer: the model checker requests the k-th outcome
// before the kernel executes the simcall.
func (o *baseObserver) Prepare(timesConsidered int) {
	o.prepared = timesConsidered
	o.hasPrepared = true
}

func (o *baseObserver) Prepared() (int, bool) { return o.prepared, o.hasPrepared }

func (o *baseObserver) Visible() bool { return true }

func (o *baseObserver) SetResult(v any) { o.result = v }
func (o *baseObserver) Result() any     { return o.result }

func (o *baseObserver) MarkTimedOut()  { o.timedOut = true }
func (o *baseObserver) TimedOut() bool { return o.timedOut }

// Serialize implements spec.md §6.3's wire protocol: one enum byte, then
// each typed field in declaration order, with strings length-prefixed.
func (o *baseObserver) Serialize(w io.Writer) error {
	if err := binary.Write(w, binary.BigEndian, byte(o.kind)); err != nil {
		return err
	}

	if err := binary.Write(w, binary.BigEndian, uint64(o.issuer)); err != nil {
		return err
	}

	for _, f := range o.fields {
		if err := serializeField(w, f); err != nil {
			return fmt.Errorf("mc: field %q: %w", f.name, err)
		}
	}

	return serializeString(w, fmt.Sprintf("%s:%d", o.file, o.line))
}

func serializeField(w io.Writer, f field) error {
	switch v := f.value.(type) {
	case uint64:
		return binary.Write(w, binary.BigEndian, v)
	case int64:
		return binary.Write(w, binary.BigEndian, v)
	case int:
		return binary.Write(w, binary.BigEndian, int64(v))
	case float64:
		return binary.Write(w, binary.BigEndian, v)
	case bool:
		var b byte
		if v {
			b = 1
		}

		return binary.Write(w, binary.BigEndian, b)
	case string:
		return serializeString(w, v)
	default:
		return fmt.Errorf("unsupported observer field type %T", v)
	}
}

func serializeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.BigEndian, uint32(len(s))); err != nil {
		return err
	}

	_, err := io.WriteString(w, s)

	return err
}

// ActorStatus is one per-actor triple in the "actor-status" reply spec.md
// §6.3 describes: "a count + repeated per-actor triples (pid, enabled,
// max_considered)".
type ActorStatus struct {
	PID           ActorID
	Enabled       bool
	MaxConsidered int
}

// SerializeActorStatuses writes spec.md §6.3's actor-status reply.
func SerializeActorStatuses(w io.Writer, statuses []ActorStatus) error {
	if err := binary.Write(w, binary.BigEndian, uint32(len(statuses))); err != nil {
		return err
	}

	for _, s := range statuses {
		if err := binary.Write(w, binary.BigEndian, uint64(s.PID)); err != nil {
			return err
		}

		var enabled byte
		if s.Enabled {
			enabled = 1
		}

		if err := binary.Write(w, binary.BigEndian, enabled); err != nil {
			return err
		}

		if err := binary.Write(w, binary.BigEndian, int64(s.MaxConsidered)); err != nil {
			return err
		}
	}

	return nil
}
