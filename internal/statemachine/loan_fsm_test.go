package statemachine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bachatgat/ledger/internal/domain"
)

func TestLoanFSMTransitions(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		from        string
		transition  func(*LoanFSM) error
		expectError bool
		expected    string
	}{
		{
			name:       "pending approves",
			from:       domain.LoanStatusPending,
			transition: func(l *LoanFSM) error { return l.Approve(ctx) },
			expected:   domain.LoanStatusApproved,
		},
		{
			name:       "pending rejects",
			from:       domain.LoanStatusPending,
			transition: func(l *LoanFSM) error { return l.Reject(ctx) },
			expected:   domain.LoanStatusRejected,
		},
		{
			name:       "approved goes overdue",
			from:       domain.LoanStatusApproved,
			transition: func(l *LoanFSM) error { return l.MarkOverdue(ctx) },
			expected:   domain.LoanStatusOverdue,
		},
		{
			name:       "approved completes",
			from:       domain.LoanStatusApproved,
			transition: func(l *LoanFSM) error { return l.Complete(ctx) },
			expected:   domain.LoanStatusCompleted,
		},
		{
			name:       "overdue completes",
			from:       domain.LoanStatusOverdue,
			transition: func(l *LoanFSM) error { return l.Complete(ctx) },
			expected:   domain.LoanStatusCompleted,
		},
		{
			name:        "completed cannot approve",
			from:        domain.LoanStatusCompleted,
			transition:  func(l *LoanFSM) error { return l.Approve(ctx) },
			expectError: true,
			expected:    domain.LoanStatusCompleted,
		},
		{
			name:        "rejected cannot complete",
			from:        domain.LoanStatusRejected,
			transition:  func(l *LoanFSM) error { return l.Complete(ctx) },
			expectError: true,
			expected:    domain.LoanStatusRejected,
		},
		{
			name:        "pending cannot go overdue",
			from:        domain.LoanStatusPending,
			transition:  func(l *LoanFSM) error { return l.MarkOverdue(ctx) },
			expectError: true,
			expected:    domain.LoanStatusPending,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loan := &domain.Loan{Status: tt.from}
			machine := NewLoanFSM(loan)

			err := tt.transition(machine)

			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.expected, loan.Status)
		})
	}
}

func TestLoanFSMCan(t *testing.T) {
	machine := NewLoanFSM(&domain.Loan{Status: domain.LoanStatusApproved})

	assert.True(t, machine.Can(EventComplete))
	assert.True(t, machine.Can(EventMarkOverdue))
	assert.False(t, machine.Can(EventApprove))
	assert.False(t, machine.Can(EventReject))
}
