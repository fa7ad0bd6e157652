// Package mc implements the host side of the model-checker wire protocol
// (spec.md §6.3): a raw byte-level channel the checker drives to single-step
// the kernel's Engine one visible transition at a time, observe each
// transition's serialized fields, decide which of its possible outcomes to
// explore, and query actor-status snapshots between rounds. It is
// deliberately not layered on gRPC/protobuf: the wire format the spec
// describes (an enum byte, typed fields, length-prefixed strings, fixed-size
// records) is simple enough that a framework would add ceremony without
// adding anything the checker needs.
package mc

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/roasbeef/simkernel/internal/kernel"
)

// Command is the one-byte request tag a checker sends on the wire.
type Command byte

const (
	// CmdNextTransition asks the session to drive the engine until the
	// next visible simcall is ready to be decided, or the run has
	// quiesced.
	CmdNextTransition Command = iota

	// CmdChooseOutcome supplies the checker's choice for the transition
	// most recently reported by CmdNextTransition, then dispatches it.
	CmdChooseOutcome

	// CmdActorStatuses requests the current per-actor enabled/
	// max-considered snapshot.
	CmdActorStatuses
)

// Reply is the one-byte tag a session writes before any payload, so the
// checker can distinguish "a transition follows" from "the run is over"
// without needing to pre-negotiate message boundaries.
type Reply byte

const (
	ReplyTransition Reply = iota
	ReplyQuiesced
	ReplyActorStatuses
	ReplyError
)

// serializableObserver is implemented by every Observer the kernel package
// actually constructs (see observer.go's baseObserver.Serialize); it is not
// part of the kernel.Observer contract itself since most of the kernel
// never needs to serialize one.
type serializableObserver interface {
	Serialize(w io.Writer) error
}

// Session drives one kernel.Engine on behalf of a single connected checker.
// It is not safe for concurrent use by more than one connection — spec.md
// §1 is explicit that this is a single-threaded, single-client protocol.
type Session struct {
	id     uuid.UUID
	engine *kernel.Engine

	pendingIssuer kernel.ActorID
	pendingCall   *kernel.Simcall
	hasPending    bool
}

// NewSession wraps engine for wire-protocol driving, under a fresh session
// id used to correlate log lines with a particular checker connection.
func NewSession(engine *kernel.Engine) *Session {
	return &Session{id: uuid.New(), engine: engine}
}

// ID returns this session's unique id.
func (s *Session) ID() uuid.UUID { return s.id }

// Serve reads commands from rw until it returns an error (typically the
// connection closing) or ctx-like caller-driven io.EOF. One command is
// fully handled — read, acted on, replied to — before the next is read.
func (s *Session) Serve(rw io.ReadWriter) error {
	for {
		var cmdByte [1]byte

		if _, err := io.ReadFull(rw, cmdByte[:]); err != nil {
			if err == io.EOF {
				return nil
			}

			return err
		}

		if err := s.handle(rw, Command(cmdByte[0])); err != nil {
			return err
		}
	}
}

func (s *Session) handle(rw io.ReadWriter, cmd Command) error {
	switch cmd {
	case CmdNextTransition:
		return s.handleNextTransition(rw)

	case CmdChooseOutcome:
		return s.handleChooseOutcome(rw)

	case CmdActorStatuses:
		return s.handleActorStatuses(rw)

	default:
		return s.writeError(rw, fmt.Errorf("mc: unknown command %d", cmd))
	}
}

// handleNextTransition drives the engine — stepping actors and advancing
// simulated time as needed — until either a visible simcall is parked
// awaiting a decision, or the engine has quiesced entirely.
func (s *Session) handleNextTransition(rw io.ReadWriter) error {
	if s.hasPending {
		return s.writeError(rw, fmt.Errorf("mc: transition %v still awaiting a choice", s.pendingIssuer))
	}

	for {
		issuer, sc, ok := s.engine.Step()
		if ok {
			s.pendingIssuer = issuer
			s.pendingCall = sc
			s.hasPending = true

			log.Debugf("mc[%s]: transition ready for actor %v", s.id, issuer)

			if err := binary.Write(rw, binary.BigEndian, byte(ReplyTransition)); err != nil {
				return err
			}

			if sc.Observer == nil {
				return fmt.Errorf("mc: simcall from actor %v has no observer", issuer)
			}

			ser, ok := sc.Observer.(serializableObserver)
			if !ok {
				return fmt.Errorf("mc: observer for actor %v is not serializable", issuer)
			}

			return ser.Serialize(rw)
		}

		if !s.engine.AdvanceTime() {
			log.Debugf("mc[%s]: run quiesced", s.id)
			return binary.Write(rw, binary.BigEndian, byte(ReplyQuiesced))
		}
	}
}

// handleChooseOutcome reads a uint32 outcome index, applies it to the
// pending transition's Observer via Prepare, and dispatches the simcall.
func (s *Session) handleChooseOutcome(rw io.ReadWriter) error {
	if !s.hasPending {
		return s.writeError(rw, fmt.Errorf("mc: no transition pending a choice"))
	}

	var choice uint32

	if err := binary.Read(rw, binary.BigEndian, &choice); err != nil {
		return err
	}

	if s.pendingCall.Observer != nil {
		s.pendingCall.Observer.Prepare(int(choice))
	}

	s.engine.Dispatch(s.pendingIssuer, s.pendingCall)

	s.pendingCall = nil
	s.hasPending = false

	return binary.Write(rw, binary.BigEndian, byte(ReplyTransition))
}

func (s *Session) handleActorStatuses(rw io.ReadWriter) error {
	if err := binary.Write(rw, binary.BigEndian, byte(ReplyActorStatuses)); err != nil {
		return err
	}

	return kernel.SerializeActorStatuses(rw, s.engine.ActorStatuses())
}

func (s *Session) writeError(rw io.ReadWriter, cause error) error {
	if err := binary.Write(rw, binary.BigEndian, byte(ReplyError)); err != nil {
		return err
	}

	msg := cause.Error()

	if err := binary.Write(rw, binary.BigEndian, uint32(len(msg))); err != nil {
		return err
	}

	_, err := io.WriteString(rw, msg)

	return err
}
