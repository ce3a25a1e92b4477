package core

// Logger is any leveled logger. Extra args may be errors, maps of extra data
// or the participant acting on the request.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
