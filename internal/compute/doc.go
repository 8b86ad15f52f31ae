// Package compute runs the acceleration field off the control goroutine.
//
// Two layers:
//
//   - [Backend]: evaluates the field for a snapshot. [CPUBackend] splits the
//     bodies into contiguous chunks across goroutines; [SerialBackend] runs
//     on the calling goroutine.
//   - [Executor]: the asynchronous substrate. [Worker] owns one goroutine
//     that receives a snapshot, evaluates it with a Backend and posts a
//     [Result] on a channel.
//
// # Usage
//
//	w := compute.NewWorker(compute.NewCPUBackend(0), params, logger)
//	w.Start(ctx)
//	defer w.Close()
//	_ = w.Submit(snapshot)
//	res := <-w.Results()
//
// Every body sums its neighbours in ascending index order regardless of how
// the work is chunked, so all backends return bit-identical results.
package compute
