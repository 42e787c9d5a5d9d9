package statemachine

import (
	"context"
	"fmt"

	"github.com/looplab/fsm"

	"github.com/bachatgat/ledger/internal/domain"
)

// Events accepted by the loan state machine.
const (
	EventApprove     = "approve"
	EventReject      = "reject"
	EventMarkOverdue = "mark_overdue"
	EventComplete    = "complete"
)

// LoanFSM wraps a loan with its state machine. Transitions:
//
//	pending  --approve-->      approved
//	pending  --reject-->       rejected
//	approved --mark_overdue--> overdue
//	approved/overdue --complete--> completed
type LoanFSM struct {
	loan *domain.Loan
	fsm  *fsm.FSM
}

// NewLoanFSM creates a state machine seeded with the loan's current status.
func NewLoanFSM(loan *domain.Loan) *LoanFSM {
	l := &LoanFSM{loan: loan}

	l.fsm = fsm.NewFSM(
		loan.Status,
		fsm.Events{
			{Name: EventApprove, Src: []string{domain.LoanStatusPending}, Dst: domain.LoanStatusApproved},
			{Name: EventReject, Src: []string{domain.LoanStatusPending}, Dst: domain.LoanStatusRejected},
			{Name: EventMarkOverdue, Src: []string{domain.LoanStatusApproved}, Dst: domain.LoanStatusOverdue},
			{Name: EventComplete, Src: []string{domain.LoanStatusApproved, domain.LoanStatusOverdue}, Dst: domain.LoanStatusCompleted},
		},
		fsm.Callbacks{},
	)

	return l
}

// Approve transitions the loan to approved state
func (l *LoanFSM) Approve(ctx context.Context) error {
	return l.fire(ctx, EventApprove)
}

// Reject transitions the loan to rejected state
func (l *LoanFSM) Reject(ctx context.Context) error {
	return l.fire(ctx, EventReject)
}

// MarkOverdue transitions the loan to overdue state
func (l *LoanFSM) MarkOverdue(ctx context.Context) error {
	return l.fire(ctx, EventMarkOverdue)
}

// Complete transitions the loan to completed state
func (l *LoanFSM) Complete(ctx context.Context) error {
	return l.fire(ctx, EventComplete)
}

func (l *LoanFSM) fire(ctx context.Context, event string) error {
	if err := l.fsm.Event(ctx, event); err != nil {
		return fmt.Errorf("loan cannot %s in current state %s: %w", event, l.loan.Status, err)
	}
	l.loan.Status = l.fsm.Current()
	return nil
}

// Current returns the current state
func (l *LoanFSM) Current() string {
	return l.fsm.Current()
}

// Can checks if a transition is possible
func (l *LoanFSM) Can(event string) bool {
	return l.fsm.Can(event)
}
