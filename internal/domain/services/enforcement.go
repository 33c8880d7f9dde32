package services

import (
	"os"
	"sync"

	"github.com/ochairo/appguard/internal/domain/interfaces/services"
)

// enforcer terminates the process once; later calls do nothing
type enforcer struct {
	once sync.Once
	exit func(code int)
}

// NewEnforcer creates the enforcement action. A nil exit selects os.Exit.
func NewEnforcer(exit func(code int)) services.Enforcer {
	if exit == nil {
		exit = os.Exit
	}
	return &enforcer{exit: exit}
}

// SilentQuit exits with status zero and no output
func (e *enforcer) SilentQuit() {
	e.once.Do(func() {
		e.exit(0)
	})
}
