package parser

import (
	"testing"
	"time"

	"github.com/cuemby/slurmgate/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Output of the node dump reshaped with the record separator
const separatedNodeOutput = `NodeName=compute-dy-c5xlarge-1
NodeAddr=1.2.3.4
NodeHostName=compute-dy-c5xlarge-1
State=IDLE+CLOUD+POWER
Partitions=compute,compute2
SlurmdStartTime=2023-01-26T09:57:15
Reason=some reason
######
NodeName=compute-dy-c5xlarge-2
NodeAddr=1.2.3.4
NodeHostName=compute-dy-c5xlarge-2
State=IDLE+CLOUD+POWER
Partitions=compute,compute2
SlurmdStartTime=2023-01-26T09:57:15
Reason=(Code:InsufficientInstanceCapacity)Failure when resuming nodes
######
NodeName=compute-st-c5xlarge-3
NodeAddr=1.2.3.4
NodeHostName=compute-st-c5xlarge-3
State=IDLE+CLOUD+POWER
Partitions=compute,compute2
SlurmdStartTime=2023-01-26T09:57:15
LastBusyTime=2023-01-26T10:01:00
######
NodeName=compute-dy-c5xlarge-50001
NodeAddr=1.2.3.4
NodeHostName=compute-dy-c5xlarge-50001
State=IDLE+CLOUD+POWER
SlurmdStartTime=None
######
`

// Raw "scontrol show nodes" output
const rawNodeOutput = `NodeName=queue1-dy-c5xlarge-1 CoresPerSocket=1
   CPUAlloc=0 CPUEfctv=4 CPUTot=4 CPULoad=0.00
   AvailableFeatures=dynamic,c5.xlarge,c5xlarge
   ActiveFeatures=dynamic,c5.xlarge,c5xlarge
   Gres=(null)
   NodeAddr=192.168.1.10 NodeHostName=ip-192-168-1-10 Version=23.02.4
   OS=Linux 5.10.186-179.751.amzn2.x86_64 #1 SMP Tue Aug 1 20:51:38 UTC 2023
   RealMemory=7680 AllocMem=0 FreeMem=6840 Sockets=4 Boards=1
   State=MIXED+CLOUD ThreadsPerCore=1 TmpDisk=0 Weight=1 Owner=N/A MCS_label=N/A
   NextState=RESUME
   Partitions=queue1
   BootTime=2023-08-10T08:12:44 SlurmdStartTime=2023-08-10T08:13:02
   LastBusyTime=Unknown ResumeAfterTime=None
   CfgTRES=cpu=4,mem=7680M,billing=4
   AllocTRES=cpu=2

NodeName=queue1-st-c5xlarge-2 CoresPerSocket=1
   NodeAddr=queue1-st-c5xlarge-2 NodeHostName=queue1-st-c5xlarge-2
   State=DOWN+CLOUD+POWERED_DOWN ThreadsPerCore=1
   Partitions=queue1
   BootTime=None SlurmdStartTime=None
   LastBusyTime=2023-08-10T07:00:00 ResumeAfterTime=None
   Reason=Scheduler health check failed [root@2023-08-10T09:00:00]

NodeName=login-node-1 CoresPerSocket=1
   NodeAddr=10.0.0.5 NodeHostName=login-node-1
   State=IDLE

`

func TestSplitRecords(t *testing.T) {
	records := SplitRecords(rawNodeOutput)
	require.Len(t, records, 3)

	first := records[0]
	assert.Equal(t, "queue1-dy-c5xlarge-1", first[KeyNodeName])
	assert.Equal(t, "192.168.1.10", first[KeyNodeAddr])
	assert.Equal(t, "ip-192-168-1-10", first[KeyNodeHostName])
	assert.Equal(t, "MIXED+CLOUD", first[KeyState], "NextState must not override State")
	assert.Equal(t, "queue1", first[KeyPartitions])
	assert.Equal(t, "2023-08-10T08:13:02", first[KeySlurmdStartTime])
	assert.Equal(t, "Unknown", first[KeyLastBusyTime])
	_, hasReason := first[KeyReason]
	assert.False(t, hasReason)
	_, hasCPU := first["CPUTot"]
	assert.False(t, hasCPU, "fields outside the allow-list are dropped")

	assert.Equal(t, "Scheduler health check failed [root@2023-08-10T09:00:00]", records[1][KeyReason])
}

func TestSplitRecordsSeparators(t *testing.T) {
	assert.Len(t, SplitRecords(separatedNodeOutput), 4)
	assert.Empty(t, SplitRecords(""))
	assert.Empty(t, SplitRecords("\n\n######\n"))
}

func TestParseNodesSeparated(t *testing.T) {
	nodes := New().WithLocation(time.UTC).ParseNodes(separatedNodeOutput)
	require.Len(t, nodes, 4)

	first := nodes[0].Info()
	assert.IsType(t, &types.DynamicNode{}, nodes[0])
	assert.Equal(t, "compute-dy-c5xlarge-1", first.Name)
	assert.Equal(t, "1.2.3.4", first.Addr)
	assert.Equal(t, "compute-dy-c5xlarge-1", first.Hostname)
	assert.Equal(t, "IDLE+CLOUD+POWER", first.State)
	assert.Equal(t, []string{"compute", "compute2"}, first.Partitions)
	assert.Equal(t, "some reason", first.Reason)
	require.NotNil(t, first.SlurmdStartTime)
	assert.Equal(t, "2023-01-26T09:57:15+00:00", first.SlurmdStartTime.Format("2006-01-02T15:04:05-07:00"))
	assert.Equal(t, time.UTC, first.SlurmdStartTime.Location())
	assert.Nil(t, first.LastBusyTime)

	assert.Equal(t, "(Code:InsufficientInstanceCapacity)Failure when resuming nodes", nodes[1].Info().Reason)

	assert.IsType(t, &types.StaticNode{}, nodes[2])
	require.NotNil(t, nodes[2].Info().LastBusyTime)
	assert.Equal(t, time.Date(2023, 1, 26, 10, 1, 0, 0, time.UTC), *nodes[2].Info().LastBusyTime)

	last := nodes[3].Info()
	assert.Nil(t, last.SlurmdStartTime)
	assert.Nil(t, last.Partitions, "nodes outside any partition have no Partitions field")
}

func TestParseNodesRaw(t *testing.T) {
	nodes := New().WithLocation(time.UTC).ParseNodes(rawNodeOutput)

	// login-node-1 does not follow the naming convention and is dropped
	require.Len(t, nodes, 2)
	assert.Equal(t, "queue1-dy-c5xlarge-1", nodes[0].Info().Name)
	assert.Equal(t, types.ProvisioningDynamic, nodes[0].Mode())
	assert.Nil(t, nodes[0].Info().LastBusyTime)

	static := nodes[1].Info()
	assert.Equal(t, types.ProvisioningStatic, nodes[1].Mode())
	assert.True(t, static.IsNodeAddrReset())
	assert.True(t, static.HasStateFlag(types.NodeStateDown))
	assert.Nil(t, static.SlurmdStartTime)
}

func TestParseNodesTimeZone(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	nodes := New().WithLocation(loc).ParseNodes("NodeName=q-st-c5-1\nSlurmdStartTime=2023-01-26T09:57:15\n")
	require.Len(t, nodes, 1)
	assert.Equal(t, time.Date(2023, 1, 26, 7, 57, 15, 0, time.UTC), *nodes[0].Info().SlurmdStartTime)
}

func TestNewUsesHostTimeZone(t *testing.T) {
	p := New()
	assert.Equal(t, time.Local, p.Location)

	nodes := p.ParseNodes("NodeName=q-st-c5-1\nSlurmdStartTime=2023-01-26T09:57:15\n")
	require.Len(t, nodes, 1)
	want := time.Date(2023, 1, 26, 9, 57, 15, 0, time.Local).UTC()
	assert.Equal(t, want, *nodes[0].Info().SlurmdStartTime)
}

func TestParseNodesBadTimestamp(t *testing.T) {
	nodes := New().ParseNodes("NodeName=q-st-c5-1\nSlurmdStartTime=yesterday\n")
	require.Len(t, nodes, 1)
	assert.Nil(t, nodes[0].Info().SlurmdStartTime)
}

func TestParseNodesWithoutName(t *testing.T) {
	nodes := New().ParseNodes("NodeAddr=1.2.3.4\nState=IDLE\n\nNodeName=q-dy-c5-1\n")
	require.Len(t, nodes, 1)
	assert.Equal(t, "q-dy-c5-1", nodes[0].Info().Name)
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		value   string
		want    *time.Time
		wantErr bool
	}{
		{value: "None"},
		{value: "Unknown"},
		{value: ""},
		{value: "2023-01-26T09:57:15", want: ptr(time.Date(2023, 1, 26, 9, 57, 15, 0, time.UTC))},
		{value: "26/01/2023", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, err := ParseTime(tt.value, time.UTC)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func ptr(t time.Time) *time.Time {
	return &t
}

const partitionOutput = `PartitionName=queue1 AllowGroups=ALL AllowAccounts=ALL AllowQos=ALL AllocNodes=ALL Default=YES QoS=N/A DefaultTime=NONE DisableRootJobs=NO ExclusiveUser=NO GraceTime=0 Hidden=NO MaxNodes=UNLIMITED MaxTime=UNLIMITED MinNodes=0 LLN=NO MaxCPUsPerNode=UNLIMITED Nodes=queue1-dy-c5xlarge-[1-10],queue1-st-c5xlarge-1 PriorityJobFactor=1 PriorityTier=1 RootOnly=NO ReqResv=NO OverSubscribe=NO OverTimeLimit=NONE PreemptMode=OFF State=UP TotalCPUs=44 TotalNodes=11 SelectTypeParameters=NONE JobDefaults=(null) DefMemPerNode=UNLIMITED MaxMemPerNode=UNLIMITED
PartitionName=queue2 AllowGroups=ALL Nodes=queue2-st-t2micro-[1-5] PreemptMode=OFF State=INACTIVE TotalCPUs=5
PartitionName=debug AllowGroups=ALL Nodes=debug-[1-2] State=DOWN TotalCPUs=2
`

func TestParsePartitions(t *testing.T) {
	owned := map[string]bool{"queue1": true, "queue2": true}
	records := ParsePartitions(partitionOutput, func(name string) bool { return owned[name] })

	assert.Equal(t, []PartitionRecord{
		{Name: "queue1", State: types.PartitionStatusUp},
		{Name: "queue2", State: types.PartitionStatusInactive},
	}, records)

	all := ParsePartitions(partitionOutput, nil)
	require.Len(t, all, 3)
	assert.Equal(t, types.PartitionStatusDown, all[2].State)

	assert.Empty(t, ParsePartitions("", nil))
}

func TestParseNodeListing(t *testing.T) {
	output := "queue1-dy-c5xlarge-1\nqueue1-dy-c5xlarge-2\n\n  queue1-st-c5xlarge-1  \n"
	assert.Equal(t, []string{"queue1-dy-c5xlarge-1", "queue1-dy-c5xlarge-2", "queue1-st-c5xlarge-1"}, ParseNodeListing(output))
	assert.Empty(t, ParseNodeListing(""))
}
