// Package retry wraps github.com/cenkalti/backoff/v4 with the fixed
// attempt and delay policies used for scheduler updates.
package retry
