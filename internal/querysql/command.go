package querysql

import "strconv"

// Command collects the out-of-band parameters of one statement.
//
// Literal values are never rendered into SQL text. AddParameter stores the
// value and returns the positional placeholder ($1, $2, ...) to embed
// instead. A Command belongs to a single compilation.
type Command struct {
	args []any
}

// NewCommand creates an empty Command.
func NewCommand() *Command {
	return &Command{}
}

// AddParameter appends v and returns its placeholder.
func (c *Command) AddParameter(v any) string {
	c.args = append(c.args, v)
	return "$" + strconv.Itoa(len(c.args))
}

// Args returns a copy of the parameters in placeholder order.
func (c *Command) Args() []any {
	return append([]any(nil), c.args...)
}

// Len returns the number of bound parameters.
func (c *Command) Len() int {
	return len(c.args)
}
