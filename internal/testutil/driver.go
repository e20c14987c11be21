package testutil

import (
	"context"
	"sync"

	"github.com/roach88/spider/driver"
	"github.com/roach88/spider/ir"
)

// Call is one command a StubDriver received.
type Call struct {
	Method  string
	Command ir.Command
}

// StubDriver is an in-memory driver.Driver that records every command and
// answers with canned results.
//
// Results are consumed in order; once the queue is empty Execute calls
// return Fallback (driver.Empty() by default). Err, when set, is returned
// by every command method instead.
type StubDriver struct {
	mu sync.Mutex

	Results  []driver.Result
	Fallback driver.Result
	Err      error
	OpenErr  error

	// Transactions makes Start/StopTransaction report support.
	Transactions bool

	Config driver.Config
	Calls  []Call
	Opened bool
	Closed bool
	InTx   bool
}

var _ driver.Driver = (*StubDriver)(nil)

// NewStubDriver returns a stub that answers with results in order.
func NewStubDriver(results ...driver.Result) *StubDriver {
	return &StubDriver{Results: results, Fallback: driver.Empty()}
}

func (s *StubDriver) Open(ctx context.Context, cfg driver.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.OpenErr != nil {
		return s.OpenErr
	}
	s.Config = cfg
	s.Opened = true
	s.Closed = false
	return nil
}

func (s *StubDriver) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Opened = false
	s.Closed = true
	return nil
}

func (s *StubDriver) ExecuteReadCommand(ctx context.Context, cmd ir.Command) (driver.Result, error) {
	return s.execute(ctx, "ExecuteReadCommand", cmd)
}

func (s *StubDriver) ExecuteWriteCommand(ctx context.Context, cmd ir.Command) (driver.Result, error) {
	return s.execute(ctx, "ExecuteWriteCommand", cmd)
}

func (s *StubDriver) RunReadCommand(ctx context.Context, cmd ir.Command) error {
	_, err := s.execute(ctx, "RunReadCommand", cmd)
	return err
}

func (s *StubDriver) RunWriteCommand(ctx context.Context, cmd ir.Command) error {
	_, err := s.execute(ctx, "RunWriteCommand", cmd)
	return err
}

func (s *StubDriver) execute(ctx context.Context, method string, cmd ir.Command) (driver.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Calls = append(s.Calls, Call{Method: method, Command: cmd})
	if err := ctx.Err(); err != nil {
		return driver.Result{}, err
	}
	if !s.Opened {
		return driver.Result{}, driver.ErrNotOpen
	}
	if s.Err != nil {
		return driver.Result{}, s.Err
	}
	if len(s.Results) == 0 {
		return s.Fallback, nil
	}
	res := s.Results[0]
	s.Results = s.Results[1:]
	return res, nil
}

func (s *StubDriver) StartTransaction(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.Transactions {
		return false, nil
	}
	if s.InTx {
		return false, driver.ErrTransactionOpen
	}
	s.InTx = true
	return true, nil
}

func (s *StubDriver) StopTransaction(ctx context.Context, commit bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.InTx {
		return false, nil
	}
	s.InTx = false
	return true, nil
}

// Commands returns the commands received so far.
func (s *StubDriver) Commands() []ir.Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ir.Command, len(s.Calls))
	for i, c := range s.Calls {
		out[i] = c.Command
	}
	return out
}

// LastCall returns the most recent call, or false when there was none.
func (s *StubDriver) LastCall() (Call, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Calls) == 0 {
		return Call{}, false
	}
	return s.Calls[len(s.Calls)-1], true
}

// NewRecord builds a driver record with an integer reference.
func NewRecord(ref int64, label string, fields map[string]any) *driver.Record {
	return &driver.Record{Data: fields, NativeRef: ref, Class: label}
}
