package core

// Logger is the app-wide structured logger contract. Implementations may ship
// entries to an error tracker; a user.User passed in args attaches the acting
// user to the entry.
type Logger interface {
	Enable(enabled bool)
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
