package errors

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestParseError(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		context   string
		code      string
		retryable bool
	}{
		{"not found company", gorm.ErrRecordNotFound, "find company", CompanyNotFound, false},
		{"not found review", fmt.Errorf("load: %w", gorm.ErrRecordNotFound), "review", ReviewNotFound, false},
		{"duplicate coupon", gorm.ErrDuplicatedKey, "issue coupon", RewardCouponExists, false},
		{"duplicate entry raw", fmt.Errorf(`ERROR: duplicate key value violates unique constraint "idx_lottery_entries_review_id"`), "", RewardEntryExists, false},
		{"timeout", fmt.Errorf("store: %w", context.DeadlineExceeded), "", InternalDatabaseError, true},
		{"connection", fmt.Errorf("dial tcp: connection refused"), "", InternalDatabaseError, true},
		{"unknown", fmt.Errorf("boom"), "", InternalServerError, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			info := ParseError(tc.err, tc.context)
			assert.Equal(t, tc.code, info.Code)
			assert.Equal(t, tc.retryable, info.Retryable)
			assert.NotEmpty(t, info.Message)
		})
	}
}
