package logger

// Get returns the global logger tagged with the given component name.
// It is evaluated on every call so components created before Init still
// pick up the configured logger.
func Get(name string) *Logger {
	return GetGlobalLogger().WithComponent(name)
}
