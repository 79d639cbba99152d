/*
Package nodelist handles comma separated node range expressions such as
"queue1-dy-c5xlarge-[1-10],queue2-st-t2micro-5".

Parse splits an expression into tokens at top-level commas; commas inside
brackets belong to their range. Ranges are never expanded. Split groups the
tokens into batches for "scontrol update", keeping node addresses and
hostnames aligned with the node tokens they belong to:

	batches, err := nodelist.Split(nodes, addrs, nil, nodelist.DefaultBatchSize)
*/
package nodelist
