package blueprint

import (
	"fmt"

	"github.com/vektah/gqlparser/v2/ast"
)

type Violation struct {
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

type ValidationError []*Violation

func (e ValidationError) Error() string {
	msg := "violations found:\n"
	for _, v := range e {
		line := "- " + v.Message
		if v.File != "" {
			line += fmt.Sprintf(" %s:%d:%d", v.File, v.Line, v.Column)
		}
		msg += line + "\n"
	}
	return msg
}

func violationAt(pos *ast.Position, format string, args ...any) *Violation {
	v := &Violation{Message: fmt.Sprintf(format, args...)}
	if pos != nil && pos.Src != nil {
		v.File = pos.Src.Name
		v.Line = pos.Line
		v.Column = pos.Column
	}
	return v
}
