/*
Package executor runs scheduler binaries as argument vectors, never through
a shell.

Every command gets a timeout. When it expires the whole process group is
killed, so children started through sudo do not outlive it. Failures are
returned as *CommandError, which matches ErrCommandFailed and, on timeout,
ErrTimeout:

	out, err := executor.NewProcessExecutor().Output(ctx, executor.NewCommand("sinfo", "-h"), 30*time.Second)
	if errors.Is(err, executor.ErrTimeout) {
		...
	}

Values that end up on a command line are checked with ValidateArgument.
Tests use the in-memory executor from package executortest.
*/
package executor
