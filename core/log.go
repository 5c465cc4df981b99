package core

// Logger is any service that can log messages with optional context arguments
// (errors, maps, a coach.Coach to scope the report to a person).
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
