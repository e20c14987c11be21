package query

import (
	"context"

	"github.com/roach88/spider/bag"
	"github.com/roach88/spider/ir"
	"github.com/roach88/spider/normalize"
)

// All executes a RETRIEVE command and returns every matching record in
// backend order. No match is an empty slice, never nil and never an
// error. A single match is still a one-element slice.
func (b *Builder) All(ctx context.Context) ([]ir.Record, error) {
	res, err := b.retrieve(ctx, "All", nil)
	if err != nil {
		return nil, err
	}
	return res.Records, nil
}

// Get is an alias of All; the result is bounded by Limit.
func (b *Builder) Get(ctx context.Context) ([]ir.Record, error) {
	res, err := b.retrieve(ctx, "Get", nil)
	if err != nil {
		return nil, err
	}
	return res.Records, nil
}

// First executes with a limit of one and returns the first record in
// backend order. No match is a NO_RESULTS error; several matches are not
// an error.
func (b *Builder) First(ctx context.Context) (ir.Record, error) {
	res, err := b.retrieve(ctx, "First", func(bg *bag.Bag) { bg.Limit = 1 })
	if err != nil {
		return nil, err
	}
	rec, ok := res.First()
	if !ok {
		return nil, ir.Errorf(ir.CodeNoResults, "First", "no record matched")
	}
	return rec, nil
}

// One returns the only matching record. No match is a NO_RESULTS error
// and more than one is an AMBIGUOUS_RESULT error. It fetches at least two
// records even under Limit(1), so a caller limit never hides a second
// match; a successful result holds one record and so satisfies any limit.
func (b *Builder) One(ctx context.Context) (ir.Record, error) {
	res, err := b.retrieve(ctx, "One", func(bg *bag.Bag) {
		if bg.Limit < 2 {
			bg.Limit = 2
		}
	})
	if err != nil {
		return nil, err
	}
	switch res.Len() {
	case 0:
		return nil, ir.Errorf(ir.CodeNoResults, "One", "no record matched")
	case 1:
		return res.Records[0], nil
	default:
		return nil, ir.Errorf(ir.CodeAmbiguousResult, "One", "%d records matched, expected exactly one", res.Len())
	}
}

// Go executes any command and returns the records it produced: the
// created, updated or deleted records for writes, when the backend
// reports them.
func (b *Builder) Go(ctx context.Context) ([]ir.Record, error) {
	res, err := b.execute(ctx, "Go")
	if err != nil {
		return nil, err
	}
	return res.Records, nil
}

// Execute executes any command and returns the full normalized response.
func (b *Builder) Execute(ctx context.Context) (*normalize.Response, error) {
	return b.execute(ctx, "Execute")
}

func (b *Builder) execute(ctx context.Context, op string) (*normalize.Response, error) {
	final, err := b.finish(op)
	if err != nil {
		return nil, err
	}
	return b.exec.ExecuteBag(ctx, &final)
}

// Run executes any command and discards its result.
func (b *Builder) Run(ctx context.Context) error {
	final, err := b.finish("Run")
	if err != nil {
		return err
	}
	return b.exec.RunBag(ctx, &final)
}

func (b *Builder) retrieve(ctx context.Context, op string, adjust func(*bag.Bag)) (*normalize.Response, error) {
	if b.err == nil && !b.done && b.bag.Command != bag.Retrieve {
		b.usage(op, "needs a Select command; use Go for writes")
	}
	final, err := b.finish(op)
	if err != nil {
		return nil, err
	}
	if adjust != nil {
		adjust(&final)
	}
	return b.exec.ExecuteBag(ctx, &final)
}

// finish finalizes the builder and returns the validated Bag.
func (b *Builder) finish(op string) (bag.Bag, error) {
	if !b.ok(op) {
		return bag.Bag{}, b.err
	}
	b.done = true

	if b.into != "" && b.bag.Command == "" {
		b.usage(op, "Into without Create")
		return bag.Bag{}, b.err
	}
	if b.exec == nil {
		b.usage(op, "builder has no executor")
		return bag.Bag{}, b.err
	}

	final := b.bag.Clone()
	if err := bag.Validate(&final); err != nil {
		if e, ok := err.(*ir.Error); ok {
			e.Op = op
		}
		b.err = err
		return bag.Bag{}, err
	}
	return final, nil
}
