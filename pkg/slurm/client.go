package slurm

import (
	"github.com/cuemby/slurmgate/pkg/config"
	"github.com/cuemby/slurmgate/pkg/executor"
	"github.com/cuemby/slurmgate/pkg/log"
	"github.com/cuemby/slurmgate/pkg/ownership"
	"github.com/cuemby/slurmgate/pkg/parser"
	"github.com/cuemby/slurmgate/pkg/retry"
	"github.com/rs/zerolog"
)

// Client issues scheduler administration commands and status queries for
// the nodes and partitions listed in the ownership mapping
type Client struct {
	cfg            *config.Config
	exec           executor.Executor
	owners         *ownership.Cache
	parser         *parser.Parser
	powerDownRetry retry.Policy
	logger         zerolog.Logger
}

// NewClient creates a client. owners restricts the default scope of status queries.
func NewClient(cfg *config.Config, exec executor.Executor, owners *ownership.Cache) *Client {
	c := &Client{
		cfg:            cfg,
		exec:           exec,
		owners:         owners,
		parser:         parser.New(),
		powerDownRetry: retry.PowerDownPolicy(),
		logger:         log.WithComponent("slurm"),
	}
	c.powerDownRetry.OnRetry = c.logRetry("power_down")
	return c
}

// WithParser replaces the status parser
func (c *Client) WithParser(p *parser.Parser) *Client {
	c.parser = p
	return c
}

// WithPowerDownRetry replaces the retry policy of SetNodesPowerDown
func (c *Client) WithPowerDownRetry(p retry.Policy) *Client {
	if p.OnRetry == nil {
		p.OnRetry = c.logRetry("power_down")
	}
	c.powerDownRetry = p
	return c
}

// Owners returns the partition ownership cache
func (c *Client) Owners() *ownership.Cache {
	return c.owners
}
