package packet

import (
	"encoding/binary"
	"fmt"

	"go.uber.org/zap"
)

// HandlerFunc is the callback signature for packet handlers. The peer is
// passed as an opaque value to avoid an import cycle with the net package;
// a returned error means the frame was rejected (bad schema, bad state).
type HandlerFunc func(peer any, r *Reader) error

// Registry maps opcodes to handlers. Registration happens once at startup
// on the main goroutine; dispatch runs on the network pump.
type Registry struct {
	handlers map[Opcode]HandlerFunc
	log      *zap.Logger
}

func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{
		handlers: make(map[Opcode]HandlerFunc),
		log:      log,
	}
}

// Register maps an opcode to a handler. A duplicate registration is a
// wiring bug and is rejected.
func (reg *Registry) Register(op Opcode, fn HandlerFunc) error {
	if _, dup := reg.handlers[op]; dup {
		return fmt.Errorf("handler already registered for %s", op)
	}
	reg.handlers[op] = fn
	return nil
}

// MustRegister panics on duplicate registration; used from startup wiring
// where a duplicate is unrecoverable.
func (reg *Registry) MustRegister(op Opcode, fn HandlerFunc) {
	if err := reg.Register(op, fn); err != nil {
		panic(err)
	}
}

// Dispatch verifies the envelope, routes by opcode, and invokes the handler
// synchronously. Malformed frames and unknown opcodes are logged and
// dropped; they never reach handler logic.
func (reg *Registry) Dispatch(peer any, data []byte) {
	if len(data) < 2 {
		reg.log.Warn("dropped frame: envelope too short", zap.Int("size", len(data)))
		return
	}
	op := Opcode(binary.LittleEndian.Uint16(data[0:2]))

	fn, ok := reg.handlers[op]
	if !ok {
		reg.log.Warn("dropped frame: unknown opcode",
			zap.Uint16("opcode", uint16(op)),
			zap.Int("size", len(data)),
		)
		return
	}

	r := NewReader(data[2:])
	if err := reg.safeCall(fn, peer, r, op); err != nil {
		reg.log.Warn("dropped frame", zap.Stringer("opcode", op), zap.Error(err))
	}
}

// safeCall executes a handler with panic recovery so a single bad frame
// cannot take down the pump.
func (reg *Registry) safeCall(fn HandlerFunc, peer any, r *Reader, op Opcode) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			reg.log.Error("handler panic recovered",
				zap.Stringer("opcode", op),
				zap.Any("panic", rec),
			)
			err = fmt.Errorf("handler panic: %v", rec)
		}
	}()
	return fn(peer, r)
}
