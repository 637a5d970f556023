package subprocess

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement - внешний исполняемый файл, от которого зависит сервис.
type Requirement struct {
	Name    string
	Command string
}

type Status struct {
	Name      string
	Command   string
	Available bool
	Detail    string
}

// CheckBinaries проверяет, что исполняемые файлы находятся через PATH.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{Name: req.Name, Command: cmd}
		if cmd == "" {
			status.Detail = "команда не задана"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Detail = fmt.Sprintf("исполняемый файл %q не найден", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}
