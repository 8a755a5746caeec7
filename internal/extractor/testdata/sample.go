// Package sample exercises the extractor.
package sample

import "fmt"

// Version is the application version.
const Version = "1.0.0"

const (
	// StatusOK indicates success.
	StatusOK = 200
	// StatusError indicates failure.
	StatusError = 500
)

// GlobalVar is a global variable.
var GlobalVar = "hello"

// Base is a base struct.
type Base struct {
	ID int
}

// User is a complex struct.
type User struct {
	Base
	Name, Nickname string `json:"name"`
	Age            int    `json:"age"`
}

// Handler is an interface.
type Handler interface {
	fmt.Stringer
	// Handle processes data.
	Handle(ctx string, data interface{}) (int, error)
	Close()
}

// Set is a generic container.
type Set[T comparable] map[T]struct{}

// MyFunc is a function.
//
// Args:
//     a: first operand
//     b: label
func MyFunc(a int, b string) bool {
	const local = 1
	MyFunction("test")
	return true
}

// MyFunction is another function.
func MyFunction(s string) {}

// Join concatenates parts.
func Join(sep string, parts ...string) string {
	return fmt.Sprint(sep, parts)
}

// MyMethod is a method.
func (u *User) MyMethod(msg string) {
	fmt.Println(msg)
	_ = Base{ID: 1}
}

func (s Set[T]) add(v T) {
	s[v] = struct{}{}
}
