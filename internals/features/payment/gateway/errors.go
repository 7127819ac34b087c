package gateway

import (
	"errors"
	"fmt"
)

// Klasifikasi error provider. Retry hanya untuk transient & not-found
// (indexing provider bisa telat dari delivery webhook); permanent langsung
// berhenti. Jangan pernah membedakan lewat substring pesan error.
type ErrorClass int

const (
	ClassTransient ErrorClass = iota
	ClassPermanent
	ClassNotFound
)

type Error struct {
	Class   ErrorClass
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gateway %s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("gateway %s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func classOf(err error) (ErrorClass, bool) {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Class, true
	}
	return 0, false
}

// IsTransient: layak dicoba ulang (timeout, error jaringan, 5xx).
func IsTransient(err error) bool {
	class, ok := classOf(err)
	return ok && class == ClassTransient
}

// IsNotFound: provider belum/tidak punya record untuk reference ini.
func IsNotFound(err error) bool {
	class, ok := classOf(err)
	return ok && class == ClassNotFound
}

// IsPermanent: penolakan eksplisit, jangan retry.
func IsPermanent(err error) bool {
	class, ok := classOf(err)
	return ok && class == ClassPermanent
}
