package subprocess

import (
	"fmt"
	"strings"
)

// Error - единая форма отказа внешнего процесса: ненулевой код
// завершения либо невозможность запуска (Spawn).
type Error struct {
	Executable string
	Args       []string
	ExitCode   int
	Stderr     string
	Spawn      bool
	Err        error
}

func (e *Error) Error() string {
	if e.Spawn {
		return fmt.Sprintf("не удалось запустить процесс %s: %v", e.Executable, e.Err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "процесс %s завершился с кодом %d", e.Executable, e.ExitCode)
	// -1: процесс убит сигналом или не дождались закрытия пайпов
	if e.ExitCode == -1 && e.Err != nil {
		fmt.Fprintf(&b, " (%v)", e.Err)
	}
	if e.Stderr != "" {
		b.WriteString(": ")
		b.WriteString(e.Stderr)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}
