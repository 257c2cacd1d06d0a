package console

import (
	"fmt"

	"github.com/dop251/goja"
)

// PlainText is a console that renders each call to the exact line a text
// console prints and hands it to out:
//
//	console.<kind>: <name>: <text>\n
//
// The "<name>: " part is omitted when name is empty.
type PlainText struct {
	out  func(string)
	name string
}

// NewPlainText returns a console printing through out, prefixed with name.
func NewPlainText(out func(string), name string) *PlainText {
	return &PlainText{out: out, name: name}
}

// Line returns the text printed for one call of the given kind.
func (c *PlainText) Line(kind Kind, text string) string {
	if c.name == "" {
		return fmt.Sprintf("console.%s: %s\n", kind, text)
	}
	return fmt.Sprintf("console.%s: %s: %s\n", kind, c.name, text)
}

func (c *PlainText) emit(kind Kind, text string) {
	if c.out != nil {
		c.out(c.Line(kind, text))
	}
}

func (c *PlainText) Log(args ...goja.Value)   { c.emit(KindLog, Format(args)) }
func (c *PlainText) Info(args ...goja.Value)  { c.emit(KindInfo, Format(args)) }
func (c *PlainText) Warn(args ...goja.Value)  { c.emit(KindWarn, Format(args)) }
func (c *PlainText) Error(args ...goja.Value) { c.emit(KindError, Format(args)) }
func (c *PlainText) Debug(args ...goja.Value) { c.emit(KindDebug, Format(args)) }

func (c *PlainText) Exception(args ...goja.Value) {
	c.emit(KindException, FormatException(args))
}
