package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/AlexZinkM/record-agent/internal/errs"
)

const (
	programSuffix   = ".aleo"
	mainProgramFile = "main.aleo"
)

// Program is program source together with the identifiers it declares and imports.
type Program struct {
	ID        string
	Source    string
	Imports   []string
	Functions []string
}

// HasFunction reports whether the program declares function name.
func (p *Program) HasFunction(name string) bool {
	for _, f := range p.Functions {
		if f == name {
			return true
		}
	}
	return false
}

// ParseProgram reads the "program" and "import" statements out of source. The body
// is passed to the engine untouched.
func ParseProgram(source string) (*Program, error) {
	p := &Program{Source: source}
	for _, line := range strings.Split(source, "\n") {
		line = strings.TrimSpace(line)
		if i := strings.Index(line, "//"); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}
		switch {
		case strings.HasPrefix(line, "import "):
			id, err := statementID(line, "import ")
			if err != nil {
				return nil, err
			}
			p.Imports = append(p.Imports, id)
		case strings.HasPrefix(line, "program "):
			if p.ID != "" {
				return nil, errs.Validation("program declared twice: %s and %s", p.ID, line)
			}
			id, err := statementID(line, "program ")
			if err != nil {
				return nil, err
			}
			p.ID = id
		case strings.HasPrefix(line, "function "):
			name := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(line, "function "), ":"))
			if err := ValidateIdentifier(name); err != nil {
				return nil, err
			}
			p.Functions = append(p.Functions, name)
		}
	}
	if p.ID == "" {
		return nil, errs.Validation("source has no program declaration")
	}
	for _, imp := range p.Imports {
		if imp == p.ID {
			return nil, errs.Validation("program %s imports itself", p.ID)
		}
	}
	return p, nil
}

func statementID(line, keyword string) (string, error) {
	id := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(line, keyword), ";"))
	if err := ValidateProgramID(id); err != nil {
		return "", err
	}
	return id, nil
}

// ValidateProgramID checks the "<name>.aleo" shape.
func ValidateProgramID(id string) error {
	name, ok := strings.CutSuffix(id, programSuffix)
	if !ok || name == "" {
		return errs.Validation("invalid program id %q", id)
	}
	for _, r := range name {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return errs.Validation("invalid program id %q", id)
		}
	}
	return nil
}

// ValidateIdentifier checks a function or mapping name: a letter followed by
// letters, digits or underscores.
func ValidateIdentifier(name string) error {
	if name == "" {
		return errs.Validation("empty identifier")
	}
	for i, r := range name {
		letter := r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'
		if !letter && (i == 0 || !(r == '_' || r >= '0' && r <= '9')) {
			return errs.Validation("invalid identifier %q", name)
		}
	}
	return nil
}

// LoadProgram reads a program from a source file or from main.aleo in a directory.
func LoadProgram(path string) (*Program, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat program: %w", err)
	}
	if info.IsDir() {
		path = filepath.Join(path, mainProgramFile)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read program: %w", err)
	}
	return ParseProgram(string(data))
}
