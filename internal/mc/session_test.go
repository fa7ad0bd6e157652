package mc

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/roasbeef/simkernel/internal/kernel"
	"github.com/roasbeef/simkernel/internal/resourcemodel"
	"github.com/stretchr/testify/require"
)

// pipeBuffer is an in-memory io.ReadWriter splitting reads and writes into
// two independent buffers, so a test can pre-load every command a Session
// will read without needing a second goroutine to interleave replies.
type pipeBuffer struct {
	in  *bytes.Buffer
	out *bytes.Buffer
}

func (p *pipeBuffer) Read(b []byte) (int, error)  { return p.in.Read(b) }
func (p *pipeBuffer) Write(b []byte) (int, error) { return p.out.Write(b) }

func newPipeBuffer() *pipeBuffer {
	return &pipeBuffer{in: &bytes.Buffer{}, out: &bytes.Buffer{}}
}

func (p *pipeBuffer) writeCommand(cmd Command) {
	p.in.WriteByte(byte(cmd))
}

func (p *pipeBuffer) writeChoice(choice uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], choice)
	p.in.Write(b[:])
}

func TestSessionNextTransitionThenChooseOutcomeDrivesRandom(t *testing.T) {
	model := resourcemodel.New()
	e := kernel.NewEngine(model)
	host := e.NewHost("h")

	done := make(chan int, 1)

	e.Spawn("r", host, func(ctx *kernel.ActorContext) {
		v, err := ctx.Random(0, 3)
		require.NoError(t, err)
		done <- v
	})

	sess := NewSession(e)
	pb := newPipeBuffer()

	pb.writeCommand(CmdNextTransition)

	// Consume the command byte the way Serve does, so the choice written
	// below is the next thing handleChooseOutcome reads.
	cmd, _ := pb.in.ReadByte()

	require.NoError(t, sess.handle(pb, Command(cmd)))

	out := pb.out.Bytes()
	require.NotEmpty(t, out)
	require.Equal(t, byte(ReplyTransition), out[0])

	pb.out.Reset()
	pb.writeChoice(2)

	require.NoError(t, sess.handle(pb, CmdChooseOutcome))

	out = pb.out.Bytes()
	require.Equal(t, byte(ReplyTransition), out[0])

	e.Run()

	require.Equal(t, 2, <-done)
}

func TestSessionActorStatuses(t *testing.T) {
	model := resourcemodel.New()
	e := kernel.NewEngine(model)
	host := e.NewHost("h")

	e.Spawn("idle", host, func(ctx *kernel.ActorContext) {
		_, _ = ctx.Random(0, 1)
	})

	sess := NewSession(e)
	pb := newPipeBuffer()

	require.NoError(t, sess.handle(pb, CmdActorStatuses))

	out := pb.out.Bytes()
	require.Equal(t, byte(ReplyActorStatuses), out[0])
	require.Equal(t, uint32(1), binary.BigEndian.Uint32(out[1:5]))
}

func TestSessionChooseOutcomeWithoutPendingTransitionErrors(t *testing.T) {
	model := resourcemodel.New()
	e := kernel.NewEngine(model)

	sess := NewSession(e)
	pb := newPipeBuffer()
	pb.writeChoice(0)

	require.NoError(t, sess.handle(pb, CmdChooseOutcome))

	out := pb.out.Bytes()
	require.Equal(t, byte(ReplyError), out[0])
}
