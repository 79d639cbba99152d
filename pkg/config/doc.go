/*
Package config loads the slurmgate YAML configuration.

Missing fields keep the values of DefaultConfig. Paths to the scheduler
binaries, the ownership mapping and the command journal are derived from
the loaded values:

	cfg, err := config.Load("/etc/slurmgate/config.yaml")
	if err != nil {
		return err
	}
	scontrol := cfg.ScontrolPath()
*/
package config
