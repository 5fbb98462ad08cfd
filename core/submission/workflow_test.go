package submission

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mamamind47/sfa-efilling-sub001/core"
)

func TestNext(t *testing.T) {
	tests := []struct {
		from    Status
		action  Action
		want    Status
		wantErr func(error) bool
	}{
		{from: StatusPending, action: ActionApprove, want: StatusApproved},
		{from: StatusPending, action: ActionReject, want: StatusRejected},
		{from: StatusApproved, action: ActionApprove, wantErr: core.IsConflict},
		{from: StatusApproved, action: ActionReject, wantErr: core.IsConflict},
		{from: StatusRejected, action: ActionApprove, wantErr: core.IsConflict},
		{from: StatusPending, action: "escalate", wantErr: core.IsValidation},
	}
	for _, tt := range tests {
		t.Run(string(tt.action)+" "+string(tt.from), func(t *testing.T) {
			got, err := Next(tt.from, tt.action)
			if tt.wantErr != nil {
				assert.True(t, tt.wantErr(err), "Next() error = %v", err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
