// Package crawler checks every reference reachable from a start URL.
//
// # Components
//
//   - Registry: every URL seen so far, keyed by its fragment-less form,
//     with the documents that referenced it in discovery order
//   - Scheduler: a FIFO queue of fetches with a bounded number in flight
//   - Classifier: decides healthy (status 200) and crawlable (text-like and
//     inside the start URL prefix) for each outcome
//   - Checker: the crawl driver tying them together
//
// # Concurrency
//
// Fetches run on goroutines, at most Concurrency at a time. Their outcomes
// are handed to the driver goroutine, which runs completion handlers one
// after another. The registry, the tally and the scheduler's queue are
// therefore only ever touched by one goroutine and need no locks.
//
// A crawl moves through Seeding, Crawling, Draining and Done. After each
// handled outcome the driver asks the scheduler whether anything is still
// pending or in flight; only a confirmed idle scheduler ends the crawl.
//
// # Usage
//
//	checker, err := crawler.NewChecker("http://localhost:3000/", crawler.WithProgress(os.Stdout))
//	if err != nil {
//		return err
//	}
//	result, err := checker.Run(ctx)
package crawler
