package core

// Logger is any service that can report messages & errors.
// args may hold errors, extra data maps or the calling Person.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Person identifies the caller attached to a log entry.
type Person struct {
	ID    string
	Name  string
	Email string
}
