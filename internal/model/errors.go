package model

import "fmt"

// InputError reports malformed or missing input data. It names the table and
// column at fault and, when known, the 1-based spreadsheet row.
type InputError struct {
	Table  string
	Column string
	Row    int
	Err    error
}

func (e *InputError) Error() string {
	loc := e.Table
	if e.Column != "" {
		loc += "." + e.Column
	}
	if e.Row > 0 {
		loc = fmt.Sprintf("%s (row %d)", loc, e.Row)
	}
	return fmt.Sprintf("invalid input %s: %v", loc, e.Err)
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// NewInputError builds an InputError with a formatted message.
func NewInputError(table, column string, row int, format string, args ...any) *InputError {
	return &InputError{Table: table, Column: column, Row: row, Err: fmt.Errorf(format, args...)}
}

// EmptyCurriculumError is returned when the requested term yields no sessions to schedule.
type EmptyCurriculumError struct {
	Term      int
	Programme string
}

func (e *EmptyCurriculumError) Error() string {
	if e.Programme != "" {
		return fmt.Sprintf("no sessions to schedule for programme %s in term %d", e.Programme, e.Term)
	}
	return fmt.Sprintf("no sessions to schedule in term %d", e.Term)
}
