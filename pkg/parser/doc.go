// Package parser turns "scontrol show" and "sinfo" output into types values.
package parser
