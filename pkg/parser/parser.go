package parser

import (
	"bufio"
	"strings"
	"time"

	"github.com/cuemby/slurmgate/pkg/log"
	"github.com/cuemby/slurmgate/pkg/metrics"
	"github.com/cuemby/slurmgate/pkg/types"
	"github.com/rs/zerolog"
)

// RecordSeparator may separate node records in place of a blank line
const RecordSeparator = "######"

// TimeLayout is the timestamp format printed by scontrol
const TimeLayout = "2006-01-02T15:04:05"

// Node record keys kept by ParseNodes
const (
	KeyNodeName        = "NodeName"
	KeyNodeAddr        = "NodeAddr"
	KeyNodeHostName    = "NodeHostName"
	KeyState           = "State"
	KeyPartitions      = "Partitions"
	KeyReason          = "Reason"
	KeySlurmdStartTime = "SlurmdStartTime"
	KeyLastBusyTime    = "LastBusyTime"
)

var nodeKeys = map[string]bool{
	KeyNodeName:        true,
	KeyNodeAddr:        true,
	KeyNodeHostName:    true,
	KeyState:           true,
	KeyPartitions:      true,
	KeyReason:          true,
	KeySlurmdStartTime: true,
	KeyLastBusyTime:    true,
}

// Record is the allow-listed Key=Value fields of one node record
type Record map[string]string

// Parser converts scheduler dump output into typed entities
type Parser struct {
	// Location is the time zone of the timestamps printed by the scheduler
	Location *time.Location
	logger   zerolog.Logger
}

// New creates a parser reading timestamps in time.Local, so parsed
// instants depend on the host time zone. Use WithLocation when the
// scheduler runs in a different zone than this process.
func New() *Parser {
	return &Parser{
		Location: time.Local,
		logger:   log.WithComponent("parser"),
	}
}

// WithLocation sets the time zone of the scheduler timestamps
func (p *Parser) WithLocation(loc *time.Location) *Parser {
	p.Location = loc
	return p
}

// SplitRecords splits "scontrol show nodes" output into allow-listed
// records. Records are separated by blank lines or RecordSeparator lines.
// Within a record, fields are whitespace separated Key=Value tokens, except
// Reason which extends to the end of its line.
func SplitRecords(output string) []Record {
	var records []Record
	current := Record{}
	flush := func() {
		if len(current) > 0 {
			records = append(records, current)
			current = Record{}
		}
	}

	scanner := bufio.NewScanner(strings.NewReader(output))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line == RecordSeparator {
			flush()
			continue
		}
		parseLine(line, current)
	}
	flush()
	return records
}

func parseLine(line string, rec Record) {
	for line != "" {
		if strings.HasPrefix(line, KeyReason+"=") {
			rec[KeyReason] = strings.TrimPrefix(line, KeyReason+"=")
			return
		}
		token := line
		rest := ""
		if i := strings.IndexAny(line, " \t"); i >= 0 {
			token, rest = line[:i], strings.TrimLeft(line[i:], " \t")
		}
		if key, value, ok := strings.Cut(token, "="); ok && nodeKeys[key] {
			rec[key] = value
		}
		line = rest
	}
}

// ParseNodes builds nodes from "scontrol show nodes" output. Records whose
// name does not follow the node naming convention are dropped.
func (p *Parser) ParseNodes(output string) []types.SlurmNode {
	var nodes []types.SlurmNode
	for _, rec := range SplitRecords(output) {
		name, ok := rec[KeyNodeName]
		if !ok {
			p.logger.Warn().Interface("record", rec).Msg("ignoring node record without NodeName")
			continue
		}

		info := types.NodeInfo{
			Name:     name,
			Addr:     rec[KeyNodeAddr],
			Hostname: rec[KeyNodeHostName],
			State:    rec[KeyState],
			Reason:   rec[KeyReason],
		}
		if partitions := rec[KeyPartitions]; partitions != "" {
			info.Partitions = strings.Split(partitions, ",")
		}
		info.SlurmdStartTime = p.parseTime(name, KeySlurmdStartTime, rec[KeySlurmdStartTime])
		info.LastBusyTime = p.parseTime(name, KeyLastBusyTime, rec[KeyLastBusyTime])

		node, err := types.NewSlurmNode(info)
		if err != nil {
			metrics.NodesDroppedTotal.Inc()
			p.logger.Warn().Str("node", name).Msg("ignoring node because it has an invalid name")
			continue
		}
		nodes = append(nodes, node)
	}
	return nodes
}

// ParseTime parses a scheduler timestamp in loc and returns it in UTC.
// "None", "Unknown" and empty values are absent.
func ParseTime(value string, loc *time.Location) (*time.Time, error) {
	switch value {
	case "", "None", "Unknown":
		return nil, nil
	}
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(TimeLayout, value, loc)
	if err != nil {
		return nil, err
	}
	t = t.UTC()
	return &t, nil
}

func (p *Parser) parseTime(node, key, value string) *time.Time {
	t, err := ParseTime(value, p.Location)
	if err != nil {
		p.logger.Warn().Err(err).Str("node", node).Str("field", key).Msg("ignoring unparseable timestamp")
		return nil
	}
	return t
}

// PartitionRecord is the name and state of one partition line
type PartitionRecord struct {
	Name  string
	State types.PartitionStatus
}

// ParsePartitions reads "scontrol show partitions -o" output, one partition
// per line, keeping only the partitions accepted by owned. A nil owned keeps
// every partition.
func ParsePartitions(output string, owned func(name string) bool) []PartitionRecord {
	var records []PartitionRecord
	for _, line := range strings.Split(output, "\n") {
		var rec PartitionRecord
		for _, token := range strings.Fields(line) {
			key, value, ok := strings.Cut(token, "=")
			if !ok {
				continue
			}
			switch key {
			case "PartitionName":
				rec.Name = value
			case KeyState:
				rec.State = types.ParsePartitionStatus(value)
			}
		}
		if rec.Name == "" {
			continue
		}
		if owned != nil && !owned(rec.Name) {
			continue
		}
		records = append(records, rec)
	}
	return records
}

// ParseNodeListing reads sinfo output printing one entry per line
func ParseNodeListing(output string) []string {
	var names []string
	for _, line := range strings.Split(output, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			names = append(names, line)
		}
	}
	return names
}
