package parser

import (
	"runtime"
	"sync"

	"tessera-hq/meshlens/pkg/mesh/model"
)

// ParseParallel parses documents on a worker pool. Each document parses
// into independent immutable models, so workers share nothing; results
// are collected per document index and flattened in document order by a
// single-threaded reduction, making the parallel run observationally
// equivalent to the sequential one.
func (r *Registry) ParseParallel(docs []*Document, ctx *Context, plane model.Plane, workers int) *Result {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(docs) {
		workers = len(docs)
	}
	if workers <= 1 {
		return r.parse(docs, ctx, plane)
	}

	type slot struct {
		models []*model.FunctionModel
		err    *ParseError
	}
	slots := make([]slot, len(docs))
	indexes := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				models, perr := r.parseDocument(docs[i], ctx, plane)
				slots[i] = slot{models: models, err: perr}
			}
		}()
	}
	for i := range docs {
		indexes <- i
	}
	close(indexes)
	wg.Wait()

	res := &Result{}
	for _, s := range slots {
		if s.err != nil {
			res.Errors = append(res.Errors, s.err)
			continue
		}
		res.Models = append(res.Models, s.models...)
	}
	return res
}
