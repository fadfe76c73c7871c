// Package exitcode defines process exit codes shared by the commands.
package exitcode

const (
	// Success - command completed
	Success = 0

	// ApplicationError - the request failed (unreadable catalog, corrupt raster, missing epoch)
	ApplicationError = 1

	// UsageError - bad flags, arguments or configuration
	// Don't retry: fix the invocation first
	UsageError = 2
)
