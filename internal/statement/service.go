package statement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Service reconstructs customer statements. It owns no state across runs:
// every call fetches a fresh snapshot and recomputes the ledger, so identical
// source data always yields an identical statement.
type Service struct {
	sources Sources
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the structured logger used for degraded-source reporting.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock overrides the anchor-row clock. Tests use it for reproducible
// output.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a statement service over the given read sources.
func NewService(sources Sources, opts ...Option) *Service {
	s := &Service{
		sources: sources,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// fetchResult holds one source adapter's outcome from the fan-out.
type fetchResult struct {
	source string
	err    error
}

// BuildStatement runs one full reconciliation for a customer: resolve the
// customer, fan out the source fetches, then run the strictly sequential
// merge pipeline. Non-critical fetch failures degrade the statement instead
// of aborting it; the customer and loan fetches are fatal.
func (s *Service) BuildStatement(ctx context.Context, customerID string) (*Statement, error) {
	customer, loans, err := s.fetchCritical(ctx, customerID)
	if err != nil {
		return nil, err
	}

	loanIDs := make([]string, len(loans))
	for i, loan := range loans {
		loanIDs[i] = loan.ID
	}

	in := rawInputs{loans: loans}

	// The five remaining sources share no state and are read-only, so they
	// fetch concurrently. Each goroutine writes only its own slot.
	var wg sync.WaitGroup
	results := make([]fetchResult, 5)

	wg.Add(5)
	go func() {
		defer wg.Done()
		var err error
		in.wallet, err = s.sources.ListWalletEntries(ctx, customerID)
		results[0] = fetchResult{source: SourceWallet, err: err}
	}()
	go func() {
		defer wg.Done()
		var err error
		in.c2b, err = s.sources.ListC2BPayments(ctx, customerID)
		results[1] = fetchResult{source: SourceC2B, err: err}
	}()
	go func() {
		defer wg.Done()
		var err error
		in.disbursements, err = s.sources.ListDisbursements(ctx, loanIDs)
		results[2] = fetchResult{source: SourceDisbursements, err: err}
	}()
	go func() {
		defer wg.Done()
		var err error
		in.repayments, err = s.sources.ListRepayments(ctx, loanIDs)
		results[3] = fetchResult{source: SourceRepayments, err: err}
	}()
	go func() {
		defer wg.Done()
		var err error
		in.installments, err = s.sources.ListInstallments(ctx, loanIDs)
		results[4] = fetchResult{source: SourceInstallments, err: err}
	}()
	wg.Wait()

	var degraded []string
	for _, res := range results {
		if res.err == nil {
			continue
		}
		degraded = append(degraded, res.source)
		s.logger.Warn("statement source degraded",
			"customer_id", customerID,
			"source", res.source,
			"error", res.err,
		)
	}
	clearDegraded(&in, degraded)

	// From here on the pipeline is single-threaded: ordering and dedup both
	// depend on strictly sequential processing.
	seen := NewReferenceSet()
	events := normalize(in, seen)

	summary, warnings := summarize(in)
	warnings = append(warnings, crossCheck(events, in.repayments)...)
	for _, w := range warnings {
		s.logger.Warn("statement reconciliation warning", "customer_id", customerID, "detail", w)
	}

	now := s.now()
	return &Statement{
		Customer:    *customer,
		Events:      sequence(events, now),
		Summary:     summary,
		Degraded:    degraded,
		Warnings:    warnings,
		GeneratedAt: now,
	}, nil
}

// BuildSummary computes the statement totals without running the ledger
// pipeline. It shares the aggregation path with BuildStatement so the two
// views stay cross-checkable, and it reports the same degradation and
// reconciliation warnings a full statement would.
func (s *Service) BuildSummary(ctx context.Context, customerID string) (*SummaryResult, error) {
	_, loans, err := s.fetchCritical(ctx, customerID)
	if err != nil {
		return nil, err
	}

	loanIDs := make([]string, len(loans))
	for i, loan := range loans {
		loanIDs[i] = loan.ID
	}

	in := rawInputs{loans: loans}

	var wg sync.WaitGroup
	results := make([]fetchResult, 2)

	wg.Add(2)
	go func() {
		defer wg.Done()
		var err error
		in.repayments, err = s.sources.ListRepayments(ctx, loanIDs)
		results[0] = fetchResult{source: SourceRepayments, err: err}
	}()
	go func() {
		defer wg.Done()
		var err error
		in.installments, err = s.sources.ListInstallments(ctx, loanIDs)
		results[1] = fetchResult{source: SourceInstallments, err: err}
	}()
	wg.Wait()

	var degraded []string
	for _, res := range results {
		if res.err != nil {
			degraded = append(degraded, res.source)
			s.logger.Warn("summary source degraded",
				"customer_id", customerID,
				"source", res.source,
				"error", res.err,
			)
		}
	}
	clearDegraded(&in, degraded)

	summary, warnings := summarize(in)
	for _, w := range warnings {
		s.logger.Warn("statement reconciliation warning", "customer_id", customerID, "detail", w)
	}

	return &SummaryResult{
		Summary:  summary,
		Degraded: degraded,
		Warnings: warnings,
	}, nil
}

// fetchCritical resolves the customer and their loans. Either failing aborts
// the run before any other source is touched.
func (s *Service) fetchCritical(ctx context.Context, customerID string) (*Customer, []Loan, error) {
	if customerID == "" {
		return nil, nil, ErrCustomerNotFound
	}

	customer, err := s.sources.GetCustomer(ctx, customerID)
	if err != nil {
		if errors.Is(err, ErrCustomerNotFound) {
			return nil, nil, err
		}
		return nil, nil, &UpstreamError{Source: SourceCustomer, Err: err}
	}
	if customer == nil {
		return nil, nil, ErrCustomerNotFound
	}

	loans, err := s.sources.ListLoans(ctx, customerID)
	if err != nil {
		return nil, nil, &UpstreamError{Source: SourceLoans, Err: fmt.Errorf("list loans: %w", err)}
	}

	return customer, loans, nil
}

// clearDegraded guarantees a failed fetch contributes an empty set, not a
// partially filled slice.
func clearDegraded(in *rawInputs, degraded []string) {
	for _, source := range degraded {
		switch source {
		case SourceWallet:
			in.wallet = nil
		case SourceC2B:
			in.c2b = nil
		case SourceDisbursements:
			in.disbursements = nil
		case SourceRepayments:
			in.repayments = nil
		case SourceInstallments:
			in.installments = nil
		}
	}
}
