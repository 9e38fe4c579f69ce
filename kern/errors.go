package kern

import "errors"

var (
	ErrCreate        = errors.New("could not create process")
	ErrStackTooSmall = errors.New("stack region too small for the initial frame")
)

// AssertionError is the panic value of a broken kernel invariant.
type AssertionError struct {
	Msg string
}

func (e *AssertionError) Error() string {
	return "kernel assertion failed: " + e.Msg
}

func (k *Kernel) assert(cond bool, msg string) {
	if cond {
		return
	}
	k.log.WithField("assertion", msg).Error("kernel invariant broken")
	panic(&AssertionError{Msg: msg})
}
