package features

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/acousticlab/featex/logging"
)

// ExtractBatch extracts features for many independent waveform buffers
// with a bounded worker pool. Results are returned in input order. The
// first extraction error aborts the batch.
//
// Do not call To on the extractor while a batch is running.
func ExtractBatch(ex Extractor, buffers []NumericBuffer, samplingRate int) ([]NumericBuffer, error) {
	if ex == nil {
		return nil, fmt.Errorf("extractor must not be nil")
	}
	if len(buffers) == 0 {
		return nil, nil
	}

	logger := logging.WithFields(logging.Fields{
		"component": "extract_batch",
		"extractor": ex.Name(),
	})

	numWorkers := batchWorkerCount(len(buffers))

	results := make([]NumericBuffer, len(buffers))
	errs := make([]error, len(buffers))
	jobs := make(chan int, len(buffers))

	var wg sync.WaitGroup
	for _i := 0; _i < numWorkers; _i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i], errs[i] = ex.Extract(buffers[i], samplingRate)
			}
		}()
	}

	for i := range buffers {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("extraction failed for buffer %d of %d: %w", i, len(buffers), err)
		}
	}

	logger.Debug("batch extraction complete", logging.Fields{
		"buffers": len(buffers),
		"workers": numWorkers,
	})
	return results, nil
}

func batchWorkerCount(n int) int {
	return max(min(runtime.NumCPU(), n), 1)
}
