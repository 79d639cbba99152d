/*
Package slurm drives the Slurm scheduler on behalf of the nodes and
partitions a cluster owns.

Writes go through "scontrol update". Node updates are split into batches
of node range tokens so a single invocation never carries an unbounded
node list; node addresses and hostnames travel in the same batch as the
node tokens they belong to. Every value placed on a command line is
checked by executor.ValidateArgument before anything runs.

Reads use "scontrol show" and "sinfo". Queries without an explicit node
range are restricted to the partitions listed in the ownership mapping.

	client := slurm.NewClient(cfg, executor.NewProcessExecutor(), ownership.NewCache(cfg.MappingPath()))
	if err := client.SetNodesDown(ctx, nodelist.MustParse("queue1-dy-c5xlarge-[1-4]"), "unhealthy"); err != nil {
		return err
	}
*/
package slurm
