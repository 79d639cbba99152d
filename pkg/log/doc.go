/*
Package log provides structured logging for slurmgate using zerolog.

A single global zerolog.Logger is configured once by Init from the CLI flags and
shared by every package. Packages derive child loggers carrying their context:

	logger := log.WithComponent("slurm")
	logger.Info().Str("state", "down").Msg("updating nodes")

	plog := log.WithPartition("compute")
	plog.Error().Err(err).Msg("failed to set partition state")

Output is human readable console text by default and JSON when JSONOutput is
set, which is the format expected when the process runs under a supervisor
that ships logs. The level filter is global (zerolog.SetGlobalLevel).

Until Init is called the logger writes JSON to stderr, so library users that
never call Init still see warnings and errors.
*/
package log
